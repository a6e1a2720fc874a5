// Package domain holds the snapshot types shared by readers and the trainer
package domain

import (
	"time"

	"churnlearn/internal/core/frame"
)

// Snapshot is one dated extraction of the customer feature table
type Snapshot struct {
	Date     time.Time
	Keys     []string
	Features *frame.Frame

	// Labels are 0/1 outcomes aligned with Keys; nil when the source has none
	Labels []float64
}

// Len is the number of customers in the snapshot
func (s Snapshot) Len() int { return len(s.Keys) }

// Take returns the rows at the given positions as a new snapshot
func (s Snapshot) Take(rows []int) Snapshot {
	out := Snapshot{Date: s.Date, Keys: make([]string, len(rows)), Features: s.Features.Take(rows)}
	for i, r := range rows {
		out.Keys[i] = s.Keys[r]
	}
	if s.Labels != nil {
		out.Labels = make([]float64, len(rows))
		for i, r := range rows {
			out.Labels[i] = s.Labels[r]
		}
	}
	return out
}

// Columns names the roles of snapshot columns
type Columns struct {
	Key   string
	Label string

	// Drop lists columns that are never features (dates, audit fields)
	Drop []string

	// Eligible lists boolean flag columns; a row is kept only when all are set
	Eligible []string
}
