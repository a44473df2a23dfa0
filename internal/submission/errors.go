package submission

import (
	"errors"
	"fmt"

	"presence/internal/token"
)

// ErrExpiredToken means the scanned code's window has passed; the teacher's
// presented code has rotated and the student must rescan.
var ErrExpiredToken = errors.New("attendance token expired")

// LocationFailure classifies why coordinates could not be acquired.
type LocationFailure int

const (
	PermissionDenied LocationFailure = iota
	Unavailable
	Timeout
)

func (f LocationFailure) String() string {
	switch f {
	case PermissionDenied:
		return "permission denied"
	case Unavailable:
		return "unavailable"
	case Timeout:
		return "timeout"
	}
	return "unknown"
}

// LocationError reports a failed coordinate acquisition. An expected failure
// mode, never fatal to the client.
type LocationError struct {
	Reason LocationFailure
	Err    error
}

func (e *LocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("location %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("location %s", e.Reason)
}

func (e *LocationError) Unwrap() error { return e.Err }

// OutsideGeofenceError reports a presence claim outside the session's fence,
// carrying the exact shortfall for display.
type OutsideGeofenceError struct {
	DistanceMeters       float64
	RequiredRadiusMeters float64
}

func (e *OutsideGeofenceError) Error() string {
	return fmt.Sprintf("outside geofence: %.0fm away, %.0fm allowed", e.DistanceMeters, e.RequiredRadiusMeters)
}

// SubmissionError means the backend rejected or never received the event.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string { return fmt.Sprintf("submission failed: %v", e.Err) }
func (e *SubmissionError) Unwrap() error { return e.Err }

// UserMessage maps any submission failure to a user-visible message with an
// actionable next step. Nothing in this flow may fail silently.
func UserMessage(err error) string {
	var locErr *LocationError
	var fenceErr *OutsideGeofenceError
	var subErr *SubmissionError
	switch {
	case errors.Is(err, token.ErrMalformedToken):
		return "That code could not be read. Rescan the attendance code or enter the fields manually."
	case errors.Is(err, ErrExpiredToken):
		return "That code has expired. The teacher's code rotates; rescan the current one."
	case errors.As(err, &locErr):
		switch locErr.Reason {
		case PermissionDenied:
			return "Location access was denied. Enable location for this app and try again."
		case Timeout:
			return "Finding your location took too long. Move somewhere with better reception and try again."
		default:
			return "Your location is unavailable right now. Check that location services are on and try again."
		}
	case errors.As(err, &fenceErr):
		return fmt.Sprintf("You appear to be %.0fm from the class; attendance requires being within %.0fm. Move closer and try again.",
			fenceErr.DistanceMeters, fenceErr.RequiredRadiusMeters)
	case errors.As(err, &subErr):
		return "Your attendance could not be recorded. Check your connection and try again."
	case err != nil:
		return "Something went wrong. Try again."
	}
	return ""
}
