package domain

import (
	"time"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNotYetPremiered   Reason = "not-yet-premiered"
	ReasonInactive          Reason = "inactive"
	ReasonStillProcessing   Reason = "still-processing"
	ReasonTrailerProcessing Reason = "trailer-processing"
	ReasonExpired           Reason = "expired"
)

type Verdict struct {
	Visible bool
	Reason  Reason
}

// Check is the publication gate. Reasons are evaluated in a fixed order
// so a future premiere always wins over every other field.
func Check(m *models.Movie, now time.Time) Verdict {
	switch {
	case m.PremieresOn.After(now):
		return Verdict{Reason: ReasonNotYetPremiered}
	case m.Status != models.MovieActive:
		return Verdict{Reason: ReasonInactive}
	case m.Body.Status != models.StatusFinished:
		return Verdict{Reason: ReasonStillProcessing}
	case m.Trailer.HasExternalID() && m.Trailer.Status != models.StatusFinished:
		return Verdict{Reason: ReasonTrailerProcessing}
	case m.AvailableTill != nil && !m.AvailableTill.After(now):
		return Verdict{Reason: ReasonExpired}
	}
	return Verdict{Visible: true}
}
