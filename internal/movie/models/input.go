package models

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// MovieInput carries the creator-editable metadata of a movie.
// Pointer fields distinguish "not sent" from a zero value.
type MovieInput struct {
	Name          string
	Synopsis      string
	AgeTag        AgeTag
	CategoryIDs   []uuid.UUID
	PremieresOn   *time.Time
	AvailableTill *time.Time
	Status        *MovieStatus
	Downloadable  *bool
}

// File is an uploaded part of a multipart submission.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadSeekCloser, error)
}

type MovieFiles struct {
	Thumbnail *File
	Movie     *File
	Trailer   *File
}

type UploadState string

const (
	UploadIdle      UploadState = "idle"
	UploadLoading   UploadState = "loading"
	UploadFulfilled UploadState = "fulfilled"
	UploadRejected  UploadState = "rejected"
)

// UploadProgress is the transient, non-persisted state of one transfer.
type UploadProgress struct {
	State     UploadState `json:"state"`
	Progress  float64     `json:"progress"`
	Sent      int64       `json:"sent"`
	Total     int64       `json:"total"`
	Message   string      `json:"message,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}
