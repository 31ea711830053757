package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() uuid.UUID
	OccurredAt() time.Time
}

type eventBase struct {
	eventID    uuid.UUID
	movieID    uuid.UUID
	occurredAt time.Time
}

func newEventBase(movieID uuid.UUID, at time.Time) eventBase {
	return eventBase{eventID: uuid.New(), movieID: movieID, occurredAt: at}
}

func (e eventBase) EventID() uuid.UUID     { return e.eventID }
func (e eventBase) AggregateID() uuid.UUID { return e.movieID }
func (e eventBase) OccurredAt() time.Time  { return e.occurredAt }

type MovieCreated struct {
	eventBase
	createdBy uuid.UUID
	name      string
}

func NewMovieCreated(m *Movie, at time.Time) *MovieCreated {
	return &MovieCreated{eventBase: newEventBase(m.ID, at), createdBy: m.CreatedBy, name: m.Name}
}

func (e *MovieCreated) EventType() string { return "MovieCreated" }

func (e *MovieCreated) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventID    uuid.UUID `json:"event_id"`
		MovieID    uuid.UUID `json:"movie_id"`
		CreatedBy  uuid.UUID `json:"created_by"`
		Name       string    `json:"name"`
		OccurredAt time.Time `json:"occurred_at"`
	}{e.eventID, e.movieID, e.createdBy, e.name, e.occurredAt})
}

type MovieAssetUploaded struct {
	eventBase
	kind       AssetKind
	externalID string
}

func NewMovieAssetUploaded(movieID uuid.UUID, a Asset, at time.Time) *MovieAssetUploaded {
	ev := &MovieAssetUploaded{eventBase: newEventBase(movieID, at), kind: a.Kind}
	if a.ExternalID != nil {
		ev.externalID = *a.ExternalID
	}
	return ev
}

func (e *MovieAssetUploaded) EventType() string { return "MovieAssetUploaded" }
func (e *MovieAssetUploaded) Kind() AssetKind   { return e.kind }

func (e *MovieAssetUploaded) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventID    uuid.UUID `json:"event_id"`
		MovieID    uuid.UUID `json:"movie_id"`
		Asset      AssetKind `json:"asset"`
		ExternalID string    `json:"external_id"`
		OccurredAt time.Time `json:"occurred_at"`
	}{e.eventID, e.movieID, e.kind, e.externalID, e.occurredAt})
}

type MovieAssetStatusChanged struct {
	eventBase
	kind AssetKind
	from ProcessingStatus
	to   ProcessingStatus
}

func NewMovieAssetStatusChanged(movieID uuid.UUID, kind AssetKind, from, to ProcessingStatus, at time.Time) *MovieAssetStatusChanged {
	return &MovieAssetStatusChanged{eventBase: newEventBase(movieID, at), kind: kind, from: from, to: to}
}

func (e *MovieAssetStatusChanged) EventType() string      { return "MovieAssetStatusChanged" }
func (e *MovieAssetStatusChanged) Kind() AssetKind        { return e.kind }
func (e *MovieAssetStatusChanged) From() ProcessingStatus { return e.from }
func (e *MovieAssetStatusChanged) To() ProcessingStatus   { return e.to }

func (e *MovieAssetStatusChanged) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventID    uuid.UUID        `json:"event_id"`
		MovieID    uuid.UUID        `json:"movie_id"`
		Asset      AssetKind        `json:"asset"`
		From       ProcessingStatus `json:"from"`
		To         ProcessingStatus `json:"to"`
		OccurredAt time.Time        `json:"occurred_at"`
	}{e.eventID, e.movieID, e.kind, e.from, e.to, e.occurredAt})
}

type MovieStatusChanged struct {
	eventBase
	from MovieStatus
	to   MovieStatus
}

func NewMovieStatusChanged(movieID uuid.UUID, from, to MovieStatus, at time.Time) *MovieStatusChanged {
	return &MovieStatusChanged{eventBase: newEventBase(movieID, at), from: from, to: to}
}

func (e *MovieStatusChanged) EventType() string { return "MovieStatusChanged" }

func (e *MovieStatusChanged) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventID    uuid.UUID   `json:"event_id"`
		MovieID    uuid.UUID   `json:"movie_id"`
		From       MovieStatus `json:"from"`
		To         MovieStatus `json:"to"`
		OccurredAt time.Time   `json:"occurred_at"`
	}{e.eventID, e.movieID, e.from, e.to, e.occurredAt})
}
