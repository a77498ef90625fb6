package models

import "time"

// SequenceCounter stores the last value handed out by a named counter. It backs the
// table counter store on databases without native sequences.
type SequenceCounter struct {
	Name      string    `gorm:"primaryKey;size:64" json:"name"`
	LastValue int64     `gorm:"not null" json:"last_value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SequenceCounter) TableName() string { return "sequence_counters" }

// SequenceCounterFilter provides filter fields for repository queries
type SequenceCounterFilter struct {
	Name          *string
	NamePrefix    *string
	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time
}
