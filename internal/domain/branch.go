package domain

import "time"

// Branch is a venue location. OpeningTime and ClosingTime are stored as
// timestamps but only their wall-clock time of day is meaningful.
type Branch struct {
	ID          int64
	Name        string
	Address     string
	Email       string
	OpeningTime *time.Time
	ClosingTime *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasSchedule reports whether both opening and closing times are configured.
func (b *Branch) HasSchedule() bool {
	return b.OpeningTime != nil && b.ClosingTime != nil
}
