// Package roster folds the stream of attendance events into a per-subject,
// per-day index the teacher dashboard reads. The index is a local projection
// of server-confirmed events, rebuildable from the stream at any time; it is
// never the source of truth.
package roster

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"presence/internal/attendance"
)

var (
	// ErrUnknownSubject is returned when selecting a subject the aggregator
	// has never seen.
	ErrUnknownSubject = errors.New("unknown subject")
	// ErrSubjectInactive is returned when selecting an inactive subject.
	ErrSubjectInactive = errors.New("subject is inactive")
)

// SubjectIndex is the derived per-subject view: calendar day to the ordered
// events recorded on it. Days with no events carry no key at all.
type SubjectIndex struct {
	Subject attendance.Subject
	ByDate  map[string][]attendance.Event
}

type eventRef struct {
	subjectID string
	date      string
}

// Aggregator maintains subject indexes and the teacher's selection state.
// Safe for concurrent folding and reading.
type Aggregator struct {
	mu       sync.Mutex
	subjects map[string]*SubjectIndex
	refs     map[string]eventRef

	selected string
	cursor   string

	nowFunc func() time.Time
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{
		subjects: make(map[string]*SubjectIndex),
		refs:     make(map[string]eventRef),
		nowFunc:  time.Now,
	}
}

// UpsertSubject registers or updates a subject. When the currently selected
// subject transitions to inactive the selection is force-dropped and the
// transition is surfaced as a notice rather than happening silently.
func (a *Aggregator) UpsertSubject(s attendance.Subject) (notice string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx, ok := a.subjects[s.ID]
	if !ok {
		a.subjects[s.ID] = &SubjectIndex{Subject: s, ByDate: make(map[string][]attendance.Event)}
		return ""
	}
	idx.Subject = s
	if !s.Active() && a.selected == s.ID {
		a.selected = ""
		a.cursor = ""
		return fmt.Sprintf("%s is no longer active; selection cleared", s.Title)
	}
	return ""
}

// Apply folds one confirmed event into its subject's index. Events for
// subjects not yet registered create the index lazily.
func (a *Aggregator) Apply(evt attendance.Event) {
	if evt.ID == "" || evt.SubjectID == "" || evt.Date == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applyLocked(evt)
}

func (a *Aggregator) applyLocked(evt attendance.Event) {
	// A re-delivered event replaces its earlier copy in place.
	if ref, ok := a.refs[evt.ID]; ok {
		a.replaceLocked(ref, evt)
		return
	}

	idx, ok := a.subjects[evt.SubjectID]
	if !ok {
		idx = &SubjectIndex{
			Subject: attendance.Subject{ID: evt.SubjectID, Status: attendance.SubjectActive},
			ByDate:  make(map[string][]attendance.Event),
		}
		a.subjects[evt.SubjectID] = idx
	}
	idx.ByDate[evt.Date] = append(idx.ByDate[evt.Date], evt)
	a.refs[evt.ID] = eventRef{subjectID: evt.SubjectID, date: evt.Date}
}

// Correct replaces the correctable fields of an indexed event. ID and date
// stay as recorded.
func (a *Aggregator) Correct(eventID, studentName, rollNo, clockTime string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	ref, ok := a.refs[eventID]
	if !ok {
		return false
	}
	bucket := a.subjects[ref.subjectID].ByDate[ref.date]
	for i := range bucket {
		if bucket[i].ID == eventID {
			bucket[i].StudentName = studentName
			bucket[i].RollNo = rollNo
			bucket[i].Time = clockTime
			return true
		}
	}
	return false
}

// Delete removes an event from its date bucket; an emptied bucket loses its
// date key entirely so the map never accumulates empty days.
func (a *Aggregator) Delete(eventID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	ref, ok := a.refs[eventID]
	if !ok {
		return false
	}
	delete(a.refs, eventID)

	idx := a.subjects[ref.subjectID]
	bucket := idx.ByDate[ref.date]
	for i := range bucket {
		if bucket[i].ID == eventID {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(idx.ByDate, ref.date)
	} else {
		idx.ByDate[ref.date] = bucket
	}
	return true
}

// Rebuild drops all indexed events and folds the given stream from scratch.
// Registered subjects and the selection survive (unless their events did not).
func (a *Aggregator) Rebuild(events []attendance.Event) {
	a.mu.Lock()
	for _, idx := range a.subjects {
		idx.ByDate = make(map[string][]attendance.Event)
	}
	a.refs = make(map[string]eventRef)
	a.mu.Unlock()
	for _, evt := range events {
		a.Apply(evt)
	}
}

// RecordsFor returns the events recorded for a subject on a day, in
// insertion order. The slice is a copy; callers may sort it freely.
func (a *Aggregator) RecordsFor(subjectID, date string) []attendance.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx, ok := a.subjects[subjectID]
	if !ok {
		return nil
	}
	bucket := idx.ByDate[date]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]attendance.Event, len(bucket))
	copy(out, bucket)
	return out
}

// Dates returns the days holding at least one event for the subject.
func (a *Aggregator) Dates(subjectID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx, ok := a.subjects[subjectID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(idx.ByDate))
	for d := range idx.ByDate {
		out = append(out, d)
	}
	return out
}

// ActiveSubjects returns the subjects not explicitly marked inactive.
func (a *Aggregator) ActiveSubjects() []attendance.Subject {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []attendance.Subject
	for _, idx := range a.subjects {
		if idx.Subject.Active() {
			out = append(out, idx.Subject)
		}
	}
	return out
}

// replaceLocked swaps an already-indexed event for its newer copy, moving it
// between buckets if the redelivery somehow carries a different day.
func (a *Aggregator) replaceLocked(ref eventRef, evt attendance.Event) {
	idx := a.subjects[ref.subjectID]
	bucket := idx.ByDate[ref.date]
	for i := range bucket {
		if bucket[i].ID == evt.ID {
			if ref.date == evt.Date && ref.subjectID == evt.SubjectID {
				bucket[i] = evt
				return
			}
			bucket = append(bucket[:i], bucket[i+1:]...)
			if len(bucket) == 0 {
				delete(idx.ByDate, ref.date)
			} else {
				idx.ByDate[ref.date] = bucket
			}
			break
		}
	}
	delete(a.refs, evt.ID)
	a.applyLocked(evt)
}
