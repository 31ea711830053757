package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
	"github.com/romariotrain/streaming-platform/internal/movie/service"
	"github.com/romariotrain/streaming-platform/internal/videohost"
)

type MarkUploadedRequest struct {
	MovieUploaded   bool `json:"movieUploaded"`
	TrailerUploaded bool `json:"trailerUploaded"`
}

type SetStatusRequest struct {
	Status *models.MovieStatus `json:"status"`
}

type CategoryRequest struct {
	Name   string                 `json:"name"`
	Status *models.CategoryStatus `json:"status"`
}

type FavouriteCategoriesRequest struct {
	CategoryIDs []uuid.UUID `json:"categoryIds"`
}

// WebhookRequest is the body the video host posts on every state change.
type WebhookRequest struct {
	VideoLibraryID int    `json:"VideoLibraryId"`
	VideoGUID      string `json:"VideoGuid"`
	Status         *int   `json:"Status"`
}

type AssetResponse struct {
	ExternalID      *string                 `json:"externalVideoId"`
	Uploaded        bool                    `json:"uploaded"`
	Status          models.ProcessingStatus `json:"status"`
	DurationSeconds int                     `json:"durationSeconds"`
}

// MovieResponse is the creator and admin view, processing state included.
type MovieResponse struct {
	ID            uuid.UUID          `json:"id"`
	Name          string             `json:"name"`
	Synopsis      string             `json:"synopsis"`
	AgeTag        models.AgeTag      `json:"ageTag"`
	Categories    []uuid.UUID        `json:"categories"`
	PremieresOn   time.Time          `json:"premieresOn"`
	AvailableTill *time.Time         `json:"availableTill"`
	Status        models.MovieStatus `json:"status"`
	Downloadable  bool               `json:"downloadable"`
	Views         int64              `json:"views"`
	ThumbnailURL  string             `json:"thumbnail"`
	Movie         AssetResponse      `json:"movie"`
	Trailer       AssetResponse      `json:"trailer"`
	CreatedBy     uuid.UUID          `json:"createdBy"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// PublicMovieResponse is what end users see. Upload bookkeeping stays
// private.
type PublicMovieResponse struct {
	ID              uuid.UUID     `json:"id"`
	Name            string        `json:"name"`
	Synopsis        string        `json:"synopsis"`
	AgeTag          models.AgeTag `json:"ageTag"`
	Categories      []uuid.UUID   `json:"categories"`
	PremieresOn     time.Time     `json:"premieresOn"`
	AvailableTill   *time.Time    `json:"availableTill"`
	Downloadable    bool          `json:"downloadable"`
	Views           int64         `json:"views"`
	ThumbnailURL    string        `json:"thumbnail"`
	VideoID         string        `json:"videoId"`
	TrailerVideoID  string        `json:"trailerVideoId,omitempty"`
	DurationSeconds int           `json:"durationSeconds"`
}

type SubmitResponse struct {
	Movie   MovieResponse         `json:"movie"`
	Uploads map[string]UploadInfo `json:"uploads"`
}

type UploadInfo struct {
	Attempted bool   `json:"attempted"`
	Uploaded  bool   `json:"uploaded"`
	Error     string `json:"error,omitempty"`
}

type CategoryResponse struct {
	ID        uuid.UUID             `json:"id"`
	Name      string                `json:"name"`
	Status    models.CategoryStatus `json:"status"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type PageResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
}

type FavouriteCategoriesResponse struct {
	FavouriteCategories []CategoryResponse `json:"favouriteCategories"`
}

type SectionResponse struct {
	Title   string                `json:"title"`
	Slug    string                `json:"slug"`
	Movies  []PublicMovieResponse `json:"movies"`
	HasMore bool                  `json:"hasMore"`
}

type DashboardResponse struct {
	Categories []CategoryResponse `json:"categories"`
	Sections   []SectionResponse  `json:"sections"`
}

type ProgressResponse struct {
	State     models.UploadState `json:"state"`
	Progress  float64            `json:"progress"`
	Sent      int64              `json:"sent"`
	Total     int64              `json:"total"`
	Message   string             `json:"message,omitempty"`
	UpdatedAt *time.Time         `json:"updatedAt,omitempty"`
}

type CredentialsResponse struct {
	Endpoint  string    `json:"endpoint"`
	VideoID   string    `json:"videoId"`
	LibraryID string    `json:"libraryId"`
	Signature string    `json:"signature"`
	ExpiresAt time.Time `json:"expiresAt"`
	Expire    int64     `json:"expire"`
}

func toAssetResponse(a models.Asset) AssetResponse {
	return AssetResponse{
		ExternalID:      a.ExternalID,
		Uploaded:        a.Uploaded,
		Status:          a.Status,
		DurationSeconds: a.DurationSeconds,
	}
}

func toMovieResponse(m *models.Movie) MovieResponse {
	return MovieResponse{
		ID:            m.ID,
		Name:          m.Name,
		Synopsis:      m.Synopsis,
		AgeTag:        m.AgeTag,
		Categories:    nonNil(m.CategoryIDs),
		PremieresOn:   m.PremieresOn,
		AvailableTill: m.AvailableTill,
		Status:        m.Status,
		Downloadable:  m.Downloadable,
		Views:         m.Views,
		ThumbnailURL:  m.ThumbnailURL,
		Movie:         toAssetResponse(m.Body),
		Trailer:       toAssetResponse(m.Trailer),
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toPublicMovieResponse(m *models.Movie) PublicMovieResponse {
	resp := PublicMovieResponse{
		ID:              m.ID,
		Name:            m.Name,
		Synopsis:        m.Synopsis,
		AgeTag:          m.AgeTag,
		Categories:      nonNil(m.CategoryIDs),
		PremieresOn:     m.PremieresOn,
		AvailableTill:   m.AvailableTill,
		Downloadable:    m.Downloadable,
		Views:           m.Views,
		ThumbnailURL:    m.ThumbnailURL,
		DurationSeconds: m.Body.DurationSeconds,
	}
	if m.Body.HasExternalID() {
		resp.VideoID = *m.Body.ExternalID
	}
	if m.Trailer.HasExternalID() {
		resp.TrailerVideoID = *m.Trailer.ExternalID
	}
	return resp
}

func toSubmitResponse(res *service.SubmitResult) SubmitResponse {
	return SubmitResponse{
		Movie: toMovieResponse(res.Movie),
		Uploads: map[string]UploadInfo{
			"movie":   UploadInfo(res.Body),
			"trailer": UploadInfo(res.Trailer),
		},
	}
}

func toCategoryResponse(c models.Category) CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toDashboardResponse(d *service.Dashboard) DashboardResponse {
	sections := mapItems(d.Sections, func(s service.DashboardSection) SectionResponse {
		return SectionResponse{
			Title:   s.Title,
			Slug:    s.Slug,
			Movies:  mapItems(s.Movies, toPublicMovieResponse),
			HasMore: s.HasMore,
		}
	})
	return DashboardResponse{
		Categories: mapItems(d.Categories, toCategoryResponse),
		Sections:   sections,
	}
}

func toProgressResponse(p models.UploadProgress) ProgressResponse {
	resp := ProgressResponse{
		State:    p.State,
		Progress: p.Progress,
		Sent:     p.Sent,
		Total:    p.Total,
		Message:  p.Message,
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

func toCredentialsResponse(c videohost.UploadCredentials) CredentialsResponse {
	return CredentialsResponse{
		Endpoint:  c.Endpoint,
		VideoID:   c.VideoID,
		LibraryID: c.LibraryID,
		Signature: c.Signature,
		ExpiresAt: c.ExpiresAt,
		Expire:    c.ExpiresAt.Unix(),
	}
}

func mapItems[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, it := range items {
		out = append(out, fn(it))
	}
	return out
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
