package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

const (
	MaxSynopsisLength = 250
	MaxNameLength     = 200
	MinLeadTime       = 24 * time.Hour
	MinAvailability   = 24 * time.Hour
)

// ValidateMovieInput checks metadata of a new movie against now.
func ValidateMovieInput(in models.MovieInput, now time.Time) error {
	if err := validateFields(in); err != nil {
		return err
	}
	if in.PremieresOn == nil {
		return models.NewValidationError("premieresOn", "premiere date is required")
	}
	if err := validatePremiere(*in.PremieresOn, now); err != nil {
		return err
	}
	return validateAvailability(*in.PremieresOn, in.AvailableTill)
}

// ValidateMovieUpdate checks metadata of an existing movie. The premiere
// lead time only applies when the premiere date actually moves.
func ValidateMovieUpdate(in models.MovieInput, existing *models.Movie, now time.Time) error {
	if err := validateFields(in); err != nil {
		return err
	}
	premiere := existing.PremieresOn
	if in.PremieresOn != nil {
		premiere = *in.PremieresOn
		if !premiere.Equal(existing.PremieresOn) {
			if err := validatePremiere(premiere, now); err != nil {
				return err
			}
		}
	}
	return validateAvailability(premiere, in.AvailableTill)
}

func validateFields(in models.MovieInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.NewValidationError("name", "name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return models.NewValidationError("name", "name is too long")
	}
	if strings.TrimSpace(in.Synopsis) == "" {
		return models.NewValidationError("synopsis", "synopsis is required")
	}
	if utf8.RuneCountInString(in.Synopsis) > MaxSynopsisLength {
		return models.NewValidationError("synopsis", "synopsis must be at most 250 characters")
	}
	if !in.AgeTag.Valid() {
		return models.NewValidationError("ageTag", "age tag must be one of G, PG, PG-13, R, NC-17")
	}
	if len(in.CategoryIDs) == 0 {
		return models.NewValidationError("categories", "categories must have at least one item")
	}
	if in.Downloadable == nil {
		return models.NewValidationError("downloadable", "downloadable is required")
	}
	if in.Status != nil && !in.Status.Valid() {
		return models.NewValidationError("status", "status must be 0 or 1")
	}
	return nil
}

func validatePremiere(premiere, now time.Time) error {
	if !premiere.After(now.Add(MinLeadTime)) {
		return models.NewValidationError("premieresOn", "premiere date must be at least one day after current date")
	}
	return nil
}

func validateAvailability(premiere time.Time, till *time.Time) error {
	if till == nil {
		return nil
	}
	if till.Before(premiere.Add(MinAvailability)) {
		return models.NewValidationError("availableTill", "available till date must be at least one day after the premiere date")
	}
	return nil
}
