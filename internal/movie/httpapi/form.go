package httpapi

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

// in-memory part of a multipart form, the rest spills to temp files
const formMemory = 32 << 20

// parseMovieForm reads a multipart movie submission. Callers must call
// the returned cleanup once the files are no longer needed.
func parseMovieForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (models.MovieInput, models.MovieFiles, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.MovieInput{}, models.MovieFiles{}, noop, models.NewValidationError("body", "request is too large")
		}
		return models.MovieInput{}, models.MovieFiles{}, noop, models.NewValidationError("body", "invalid multipart form")
	}
	form := r.MultipartForm
	cleanup := func() { _ = form.RemoveAll() }

	in, err := movieInput(form)
	if err != nil {
		cleanup()
		return models.MovieInput{}, models.MovieFiles{}, noop, err
	}

	files := models.MovieFiles{
		Thumbnail: formFile(form, "thumbnail"),
		Movie:     formFile(form, "movie"),
		Trailer:   formFile(form, "trailer"),
	}
	return in, files, cleanup, nil
}

func movieInput(form *multipart.Form) (models.MovieInput, error) {
	in := models.MovieInput{
		Name:     value(form, "name"),
		Synopsis: value(form, "synopsis"),
		AgeTag:   models.AgeTag(value(form, "ageTag")),
	}

	var err error
	if in.PremieresOn, err = parseTime(form, "premieresOn"); err != nil {
		return in, err
	}
	if in.AvailableTill, err = parseTime(form, "availableTill"); err != nil {
		return in, err
	}

	if v := value(form, "downloadable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return in, models.NewValidationError("downloadable", "downloadable must be true or false")
		}
		in.Downloadable = &b
	}

	if v := value(form, "status"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, models.NewValidationError("status", "status must be 0 or 1")
		}
		st := models.MovieStatus(n)
		in.Status = &st
	}

	raw := slices.Concat(form.Value["categories[]"], form.Value["categories"])
	if in.CategoryIDs, err = parseIDs("categories", raw); err != nil {
		return in, err
	}
	return in, nil
}

func value(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

// parseTime accepts RFC 3339 timestamps and plain dates, which are read
// as midnight UTC.
func parseTime(form *multipart.Form, key string) (*time.Time, error) {
	v := value(form, key)
	if v == "" || v == "null" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, models.NewValidationError(key, "must be an RFC 3339 date")
}

// parseIDs accepts repeated values as well as comma separated lists.
func parseIDs(field string, raw []string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return nil, models.NewValidationError(field, "invalid id "+strconv.Quote(part))
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func formFile(form *multipart.Form, key string) *models.File {
	fhs := form.File[key]
	if len(fhs) == 0 {
		return nil
	}
	fh := fhs[0]
	return &models.File{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadSeekCloser, error) {
			return fh.Open()
		},
	}
}
