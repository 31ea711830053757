package domain

import "github.com/romariotrain/streaming-platform/internal/movie/models"

func IsFailure(s models.ProcessingStatus) bool {
	return s == models.StatusUploadFailed || s == models.StatusProcessingFailed
}

// IsPreUpload reports whether the host has not yet acknowledged the bytes.
func IsPreUpload(s models.ProcessingStatus) bool {
	switch s {
	case "", models.StatusQueued, models.StatusUploading, models.StatusUploadFailed:
		return true
	}
	return false
}

func Known(s models.ProcessingStatus) bool {
	switch s {
	case models.StatusQueued, models.StatusUploading, models.StatusUploaded,
		models.StatusProcessing, models.StatusEncoding, models.StatusResolutionFinished,
		models.StatusCaptionsGenerated, models.StatusTitleGenerated, models.StatusFinished,
		models.StatusUploadFailed, models.StatusProcessingFailed:
		return true
	}
	return false
}

// ShouldApply decides whether a host notification replaces the stored
// status. Delivery is last-write-wins except that a finished asset only
// moves again on a failure: post-processing stages and stale
// out-of-order stages arrive after finished and must not hide the movie.
func ShouldApply(current, next models.ProcessingStatus) bool {
	if !Known(next) {
		return false
	}
	if current == models.StatusFinished {
		return next == models.StatusFinished || IsFailure(next)
	}
	return true
}

// MarkUploaded flips the uploaded flag after a completed transfer and
// moves a pre-upload status to uploaded. Later stages set by the host
// are kept. Returns false when the asset was already uploaded.
func MarkUploaded(a *models.Asset) bool {
	if a.Uploaded {
		return false
	}
	a.Uploaded = true
	if IsPreUpload(a.Status) {
		a.Status = models.StatusUploaded
	}
	return true
}
