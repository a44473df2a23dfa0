package roster

import (
	"time"

	"presence/internal/attendance"
)

// Select picks a subject for the teacher's working view; only active
// subjects can be selected. The date cursor starts on today.
func (a *Aggregator) Select(subjectID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx, ok := a.subjects[subjectID]
	if !ok {
		return ErrUnknownSubject
	}
	if !idx.Subject.Active() {
		return ErrSubjectInactive
	}
	a.selected = subjectID
	a.cursor = a.nowFunc().Format(attendance.DateLayout)
	return nil
}

// Selected returns the current subject id, or false when nothing is picked.
func (a *Aggregator) Selected() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected, a.selected != ""
}

// Deselect returns the view to the no-subject state.
func (a *Aggregator) Deselect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selected = ""
	a.cursor = ""
}

// Cursor returns the working day of the selected subject.
func (a *Aggregator) Cursor() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor, a.cursor != ""
}

// PrevDay moves the cursor one calendar day back.
func (a *Aggregator) PrevDay() (string, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cursor == "" {
		return "", "select a subject first"
	}
	d, err := time.Parse(attendance.DateLayout, a.cursor)
	if err != nil {
		return a.cursor, ""
	}
	a.cursor = d.AddDate(0, 0, -1).Format(attendance.DateLayout)
	return a.cursor, ""
}

// NextDay moves the cursor one calendar day forward. Moving past wall-clock
// today is rejected as a no-op with a notice for the caller.
func (a *Aggregator) NextDay() (string, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cursor == "" {
		return "", "select a subject first"
	}
	d, err := time.Parse(attendance.DateLayout, a.cursor)
	if err != nil {
		return a.cursor, ""
	}
	next := d.AddDate(0, 0, 1)
	today, err := time.Parse(attendance.DateLayout, a.nowFunc().Format(attendance.DateLayout))
	if err == nil && next.After(today) {
		return a.cursor, "already at today; cannot move into the future"
	}
	a.cursor = next.Format(attendance.DateLayout)
	return a.cursor, ""
}
