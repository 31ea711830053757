package models

import (
	"time"

	"github.com/google/uuid"
)

type ProcessingStatus string

const (
	StatusQueued             ProcessingStatus = "queued"
	StatusUploading          ProcessingStatus = "uploading"
	StatusUploaded           ProcessingStatus = "uploaded"
	StatusProcessing         ProcessingStatus = "processing"
	StatusEncoding           ProcessingStatus = "encoding"
	StatusResolutionFinished ProcessingStatus = "resolution-finished"
	StatusCaptionsGenerated  ProcessingStatus = "captions-generated"
	StatusTitleGenerated     ProcessingStatus = "title-generated"
	StatusFinished           ProcessingStatus = "finished"
	StatusUploadFailed       ProcessingStatus = "upload-failed"
	StatusProcessingFailed   ProcessingStatus = "processing-failed"
)

type AssetKind string

const (
	AssetBody    AssetKind = "body"
	AssetTrailer AssetKind = "trailer"
)

func ParseAssetKind(s string) (AssetKind, error) {
	switch AssetKind(s) {
	case AssetBody, AssetTrailer:
		return AssetKind(s), nil
	case "movie":
		return AssetBody, nil
	default:
		return "", NewValidationError("asset", "must be one of body, trailer")
	}
}

type MovieStatus int

const (
	MovieInactive MovieStatus = 0
	MovieActive   MovieStatus = 1
)

func (s MovieStatus) Valid() bool { return s == MovieInactive || s == MovieActive }

type AgeTag string

const (
	AgeG    AgeTag = "G"
	AgePG   AgeTag = "PG"
	AgePG13 AgeTag = "PG-13"
	AgeR    AgeTag = "R"
	AgeNC17 AgeTag = "NC-17"
)

var AgeTags = []AgeTag{AgeG, AgePG, AgePG13, AgeR, AgeNC17}

func (t AgeTag) Valid() bool {
	for _, v := range AgeTags {
		if v == t {
			return true
		}
	}
	return false
}

// Asset is one uploadable video of a movie: the body or the trailer.
type Asset struct {
	Kind            AssetKind        `json:"kind"`
	ExternalID      *string          `json:"external_id"`
	Uploaded        bool             `json:"uploaded"`
	Status          ProcessingStatus `json:"status"`
	DurationSeconds int              `json:"duration_seconds"`
}

func (a Asset) HasExternalID() bool { return a.ExternalID != nil && *a.ExternalID != "" }

type Movie struct {
	ID            uuid.UUID
	Name          string
	Synopsis      string
	AgeTag        AgeTag
	CategoryIDs   []uuid.UUID
	PremieresOn   time.Time
	AvailableTill *time.Time
	Status        MovieStatus
	Downloadable  bool
	Views         int64
	ThumbnailURL  string
	Body          Asset
	Trailer       Asset
	CreatedBy     uuid.UUID
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Asset returns a pointer to the sub-record of the given kind.
func (m *Movie) Asset(kind AssetKind) *Asset {
	if kind == AssetTrailer {
		return &m.Trailer
	}
	return &m.Body
}

// AssetByExternalID resolves which asset carries the given host id.
func (m *Movie) AssetByExternalID(externalID string) (*Asset, bool) {
	if m.Body.HasExternalID() && *m.Body.ExternalID == externalID {
		return &m.Body, true
	}
	if m.Trailer.HasExternalID() && *m.Trailer.ExternalID == externalID {
		return &m.Trailer, true
	}
	return nil, false
}

// Clone returns a deep copy safe to mutate.
func (m *Movie) Clone() *Movie {
	cp := *m
	cp.CategoryIDs = append([]uuid.UUID(nil), m.CategoryIDs...)
	if m.AvailableTill != nil {
		t := *m.AvailableTill
		cp.AvailableTill = &t
	}
	cp.Body.ExternalID = cloneString(m.Body.ExternalID)
	cp.Trailer.ExternalID = cloneString(m.Trailer.ExternalID)
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

type SortField string

const (
	SortPremieresOn SortField = "premieresOn"
	SortName        SortField = "name"
	SortCreatedAt   SortField = "createdAt"
	SortViews       SortField = "views"
)

// MovieFilter drives every movie listing. Published restricts the result
// to movies passing the publication gate with at least one active category.
type MovieFilter struct {
	CreatedBy   *uuid.UUID
	CategoryIDs []uuid.UUID
	Query       string
	Published   bool
	Now         time.Time
	Sort        SortField
	Desc        bool
	Limit       int
	Offset      int
}

// Page is one slice of a listing plus the total count matching the filter.
type Page[T any] struct {
	Items      []T
	TotalCount int
}
