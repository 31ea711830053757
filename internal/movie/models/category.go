package models

import (
	"time"

	"github.com/google/uuid"
)

type CategoryStatus int

const (
	CategoryInactive CategoryStatus = 0
	CategoryActive   CategoryStatus = 1
)

func (s CategoryStatus) Valid() bool { return s == CategoryInactive || s == CategoryActive }

type Category struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Status    CategoryStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

type CategoryFilter struct {
	Query      string
	ActiveOnly bool
	Limit      int
	Offset     int
}
