package attendance

import (
	"context"
	"errors"
	"time"
)

// Service coordinates event recording and duplicate collapsing.
type Service struct {
	repo        *Repository
	dedupWindow time.Duration
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository, dedupWindow time.Duration) *Service {
	if dedupWindow <= 0 {
		dedupWindow = 5 * time.Minute
	}
	return &Service{repo: repo, dedupWindow: dedupWindow}
}

// Record persists a verified attendance event. A repeat submission from the
// same device within the same session inside the dedup window returns the
// already-recorded event instead of a second row. The fingerprint is
// mandatory: without one the dedup key cannot tell devices apart, and a
// collapsed key would hand one student's event to another.
func (s *Service) Record(ctx context.Context, evt Event) (Event, error) {
	if evt.SubjectID == "" || evt.StudentName == "" || evt.RollNo == "" {
		return Event{}, errors.New("subject, student name and roll number required")
	}
	if evt.DeviceFingerprint == "" {
		return Event{}, errors.New("device fingerprint required")
	}
	if evt.SessionCode != "" {
		if recent, err := s.repo.RecentByDevice(ctx, evt.SessionCode, evt.DeviceFingerprint, s.dedupWindow); err != nil {
			return Event{}, err
		} else if recent != nil {
			return *recent, nil
		}
	}
	return s.repo.InsertEvent(ctx, evt)
}

// Correct replaces name, roll and time on an existing event.
func (s *Service) Correct(ctx context.Context, id, studentName, rollNo, clockTime string) (Event, error) {
	if studentName == "" || rollNo == "" {
		return Event{}, errors.New("student name and roll number required")
	}
	return s.repo.CorrectEvent(ctx, id, studentName, rollNo, clockTime)
}

// Delete removes an event by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteEvent(ctx, id)
}

// Subjects lists a teacher's subjects with resolved status.
func (s *Service) Subjects(ctx context.Context, teacherID string) ([]Subject, error) {
	return s.repo.ListSubjects(ctx, teacherID)
}

// SetSubjectStatus marks a subject active or inactive.
func (s *Service) SetSubjectStatus(ctx context.Context, subjectID string, status SubjectStatus) error {
	if status != SubjectActive && status != SubjectInactive {
		return errors.New("status must be active or inactive")
	}
	return s.repo.SetSubjectStatus(ctx, subjectID, status)
}

// Events lists a subject's recorded events, optionally for one day.
func (s *Service) Events(ctx context.Context, subjectID, day string) ([]Event, error) {
	return s.repo.ListBySubject(ctx, subjectID, day)
}
