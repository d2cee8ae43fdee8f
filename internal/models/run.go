package models

import (
	"fmt"
	"time"
)

// RunStatus is the outcome of a station pipeline run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped" // Dry runs: enrichment done, no playlist written
)

// Run records the outcome of one station's pipeline run.
type Run struct {
	id         string
	sequence   int
	createdAt  time.Time
	Station    string
	Stage      string
	Status     RunStatus
	PlaylistID string
	Link       string
	Tracks     int
	URIs       int
	Invalid    int
	Error      string
}

// NewRun creates a [Run] for the given station.
func NewRun(sequence int, station string, status RunStatus) *Run {
	return &Run{
		sequence:  sequence,
		createdAt: time.Now(),
		Station:   station,
		Status:    status,
	}
}

func (r *Run) ID() string           { return r.id }
func (r *Run) Sequence() int        { return r.sequence }
func (r *Run) CreatedAt() time.Time { return r.createdAt }

func (r *Run) SetID(id string)          { r.id = id }
func (r *Run) SetSequence(seq int)      { r.sequence = seq }
func (r *Run) SetCreatedAt(t time.Time) { r.createdAt = t }

// Validate checks required fields.
func (r *Run) Validate() error {
	if r.Station == "" {
		return fmt.Errorf("station is required")
	}
	switch r.Status {
	case RunSucceeded, RunFailed, RunSkipped:
	default:
		return fmt.Errorf("invalid run status %q", r.Status)
	}
	if r.Status == RunFailed && r.Error == "" {
		return fmt.Errorf("failed runs must carry an error")
	}
	return nil
}
