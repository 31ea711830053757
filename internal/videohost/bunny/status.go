package bunny

import "github.com/romariotrain/streaming-platform/internal/movie/models"

// Webhook status codes sent to the video-updates endpoint.
var webhookStatuses = map[int]models.ProcessingStatus{
	0:  models.StatusQueued,
	1:  models.StatusProcessing,
	2:  models.StatusEncoding,
	3:  models.StatusFinished,
	4:  models.StatusResolutionFinished,
	5:  models.StatusProcessingFailed,
	6:  models.StatusUploading,
	7:  models.StatusUploaded,
	8:  models.StatusUploadFailed,
	9:  models.StatusCaptionsGenerated,
	10: models.StatusTitleGenerated,
}

// MapWebhookStatus translates a webhook status code. ok is false for codes
// this service does not know.
func MapWebhookStatus(code int) (models.ProcessingStatus, bool) {
	s, ok := webhookStatuses[code]
	return s, ok
}

// MapVideoStatus translates the status field of the video object returned
// by the read API, which uses its own numbering.
func MapVideoStatus(code int) models.ProcessingStatus {
	switch code {
	case 0:
		return models.StatusQueued
	case 1:
		return models.StatusUploaded
	case 2:
		return models.StatusProcessing
	case 3:
		return models.StatusEncoding
	case 4:
		return models.StatusFinished
	case 5:
		return models.StatusProcessingFailed
	case 6:
		return models.StatusUploadFailed
	default:
		return ""
	}
}
