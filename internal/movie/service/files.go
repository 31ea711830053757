package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

// sniff detects the real content type of an uploaded file from its leading
// bytes and checks it against the wanted family ("image/" or "video/").
func sniff(f *models.File, field, family string) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", field, err)
	}
	defer r.Close()

	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("detect %s type: %w", field, err)
	}
	if !strings.HasPrefix(mt.String(), family) {
		return "", models.NewValidationError(field, fmt.Sprintf("invalid file type %s, expected %s*", mt.String(), family))
	}
	return mt.String(), nil
}

type sniffed struct {
	thumbnailType string
}

// checkFiles validates every provided file before anything external runs.
func checkFiles(files models.MovieFiles, thumbnailRequired, movieRequired bool) (sniffed, error) {
	var out sniffed

	switch {
	case files.Thumbnail != nil:
		t, err := sniff(files.Thumbnail, "thumbnail", "image/")
		if err != nil {
			return out, err
		}
		out.thumbnailType = t
	case thumbnailRequired:
		return out, models.NewValidationError("thumbnail", "thumbnail is required")
	}

	switch {
	case files.Movie != nil:
		if _, err := sniff(files.Movie, "movie", "video/"); err != nil {
			return out, err
		}
	case movieRequired:
		return out, models.NewValidationError("movie", "movie is required")
	}

	if files.Trailer != nil {
		if _, err := sniff(files.Trailer, "trailer", "video/"); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *Service) storeThumbnail(ctx context.Context, movieID uuid.UUID, f *models.File, contentType string) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open thumbnail: %w", err)
	}
	defer r.Close()

	ext := strings.ToLower(path.Ext(f.Name))
	if ext == "" {
		if mt := mimetype.Lookup(contentType); mt != nil {
			ext = mt.Extension()
		}
	}
	key := fmt.Sprintf("movies/%s/thumbnail-%d%s", movieID, s.clock().Unix(), ext)

	url, err := s.thumbnails.Put(ctx, key, contentType, r, f.Size)
	if err != nil {
		return "", fmt.Errorf("store thumbnail: %w", err)
	}
	return url, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Service) ensureCategories(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return models.NewValidationError("categories", "categories must have at least one item")
	}
	n, err := s.categories.CountExisting(ctx, ids)
	if err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if n != len(ids) {
		return models.NewValidationError("categories", "unknown category")
	}
	return nil
}
