// Package submission orchestrates one student scan: decode the token, check
// freshness, acquire and verify location, fingerprint the device, and submit
// a single attendance event. Each failure is typed and user-recoverable;
// retries redo location and geofence checks from scratch.
package submission

import (
	"context"
	"errors"
	"time"

	"presence/internal/attendance"
	"presence/internal/geo"
	"presence/internal/session"
	"presence/internal/token"
)

// DefaultLocationTimeout bounds coordinate acquisition; past it the attempt
// fails with a Timeout LocationError rather than hanging.
const DefaultLocationTimeout = 15 * time.Second

// LocationProvider acquires the device's current coordinates. Failures are
// reported as *LocationError.
type LocationProvider interface {
	Current(ctx context.Context) (geo.Coordinate, error)
}

// Fingerprinter yields the stable device identity. Total by contract.
type Fingerprinter interface {
	GetOrCreate() string
}

// Recorder submits a verified event to the backend.
type Recorder interface {
	Record(ctx context.Context, evt attendance.Event) (attendance.Event, error)
}

// Request is one submission attempt as entered or scanned by the student.
type Request struct {
	Transport    string
	StudentName  string
	RollNo       string
	Announcement session.Announcement
}

// Result is a successful submission. LocationChecked is false when the
// session published no teacher location; the caller surfaces that as
// "location not required for this session".
type Result struct {
	Event           attendance.Event
	LocationChecked bool
	Verification    geo.Result
}

// Submitter runs the scan-to-event flow.
type Submitter struct {
	location    LocationProvider
	fingerprint Fingerprinter
	recorder    Recorder
	locTimeout  time.Duration
	nowFunc     func() time.Time
}

// NewSubmitter wires the flow's collaborators. locTimeout <= 0 uses
// DefaultLocationTimeout.
func NewSubmitter(location LocationProvider, fp Fingerprinter, recorder Recorder, locTimeout time.Duration) *Submitter {
	if locTimeout <= 0 {
		locTimeout = DefaultLocationTimeout
	}
	return &Submitter{
		location:    location,
		fingerprint: fp,
		recorder:    recorder,
		locTimeout:  locTimeout,
		nowFunc:     time.Now,
	}
}

// Submit runs the flow once. It never mutates session state; success is
// terminal with no automatic retry.
func (s *Submitter) Submit(ctx context.Context, req Request) (Result, error) {
	tok, err := token.Decode(req.Transport)
	if err != nil {
		return Result{}, err
	}

	now := s.nowFunc()
	if !tok.Valid(now) {
		return Result{}, ErrExpiredToken
	}

	fenced := req.Announcement.TeacherLoc != nil

	var loc geo.Coordinate
	var verification geo.Result
	if s.location != nil {
		locCtx, cancel := context.WithTimeout(ctx, s.locTimeout)
		loc, err = s.location.Current(locCtx)
		cancel()
		if err != nil {
			// Without a fence the session accepts submissions regardless,
			// so a missing coordinate only aborts fenced sessions.
			if fenced {
				return Result{}, asLocationError(err, locCtx)
			}
			loc = geo.Coordinate{}
		}
	} else if fenced {
		return Result{}, &LocationError{Reason: Unavailable}
	}

	radius := req.Announcement.RadiusM
	if radius <= 0 {
		radius = geo.DefaultRadiusM
	}
	if fenced {
		verification = geo.Verify(loc, *req.Announcement.TeacherLoc, radius)
		if !verification.WithinRadius {
			return Result{}, &OutsideGeofenceError{
				DistanceMeters:       verification.DistanceMeters,
				RequiredRadiusMeters: radius,
			}
		}
	}

	evt := attendance.Event{
		SubjectID:         tok.SubjectID,
		SessionCode:       tok.SessionCode,
		StudentName:       req.StudentName,
		RollNo:            req.RollNo,
		Date:              now.Format(attendance.DateLayout),
		Time:              now.Format("3:04 PM"),
		StudentLoc:        loc,
		TeacherLoc:        req.Announcement.TeacherLoc,
		DistanceMeters:    verification.DistanceMeters,
		RequiredRadiusM:   radius,
		DeviceFingerprint: s.fingerprint.GetOrCreate(),
	}

	recorded, err := s.recorder.Record(ctx, evt)
	if err != nil {
		return Result{}, &SubmissionError{Err: err}
	}
	return Result{Event: recorded, LocationChecked: fenced, Verification: verification}, nil
}

// asLocationError normalizes provider failures into the typed taxonomy.
func asLocationError(err error, ctx context.Context) error {
	var locErr *LocationError
	if errors.As(err, &locErr) {
		return locErr
	}
	if ctx.Err() == context.DeadlineExceeded {
		return &LocationError{Reason: Timeout, Err: err}
	}
	return &LocationError{Reason: Unavailable, Err: err}
}
