// Package measurement stores blood-pressure and heart-rate readings per user
// and serves them over HTTP behind the session guard.
package measurement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrNotFound is returned when a measurement does not exist or belongs to another user.
	ErrNotFound = errors.New("measurement: not found")

	// ErrInvalid is returned for out-of-range readings.
	ErrInvalid = errors.New("measurement: invalid")
)

// Measurement is a single reading. TakenAt is always UTC.
type Measurement struct {
	ID        string
	UserID    string
	Systolic  int
	Diastolic int
	HeartRate int
	TakenAt   time.Time
}

// Average summarizes a user's readings. Count is zero when there are none.
type Average struct {
	Systolic  float64
	Diastolic float64
	HeartRate float64
	Count     int64
}

// Rounded returns a copy with every mean rounded to one decimal.
func (a Average) Rounded() Average {
	a.Systolic = round1(a.Systolic)
	a.Diastolic = round1(a.Diastolic)
	a.HeartRate = round1(a.HeartRate)
	return a
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// Upper bounds for accepted readings.
const (
	MaxSystolic  = 300
	MaxDiastolic = 250
	MaxHeartRate = 300
)

// Validate checks the reading values. Identity fields are not inspected.
func (m Measurement) Validate() error {
	switch {
	case m.Systolic <= 0 || m.Systolic > MaxSystolic:
		return fmt.Errorf("%w: systolic must be in [1..%d]", ErrInvalid, MaxSystolic)
	case m.Diastolic <= 0 || m.Diastolic > MaxDiastolic:
		return fmt.Errorf("%w: diastolic must be in [1..%d]", ErrInvalid, MaxDiastolic)
	case m.HeartRate <= 0 || m.HeartRate > MaxHeartRate:
		return fmt.Errorf("%w: heart rate must be in [1..%d]", ErrInvalid, MaxHeartRate)
	case m.TakenAt.IsZero():
		return fmt.Errorf("%w: timestamp is required", ErrInvalid)
	}
	return nil
}

// Store persists measurements. Every read and delete is scoped to userID.
type Store interface {
	// Create assigns an ID and stores m.
	Create(ctx context.Context, m Measurement) (Measurement, error)
	// List returns the user's readings, newest first.
	List(ctx context.Context, userID string) ([]Measurement, error)
	// Delete removes one reading. It returns ErrNotFound when nothing matched.
	Delete(ctx context.Context, userID, id string) error
	// Average returns unrounded means.
	Average(ctx context.Context, userID string) (Average, error)
}
