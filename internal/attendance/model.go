package attendance

import (
	"time"

	"presence/internal/geo"
)

// DateLayout is the calendar-day key format for attendance buckets.
const DateLayout = "2006-01-02"

// Event is one recorded attendance proof. id and Date are immutable; name,
// roll and time may be replaced through an explicit correction.
type Event struct {
	ID                string          `json:"id"`
	SubjectID         string          `json:"subject_id"`
	SessionCode       string          `json:"session_code"`
	StudentName       string          `json:"student_name"`
	RollNo            string          `json:"roll_no"`
	Date              string          `json:"date"`
	Time              string          `json:"time"`
	StudentLoc        geo.Coordinate  `json:"student_loc"`
	TeacherLoc        *geo.Coordinate `json:"teacher_loc,omitempty"`
	DistanceMeters    float64         `json:"distance_meters"`
	RequiredRadiusM   float64         `json:"required_radius_m"`
	DeviceFingerprint string          `json:"device_fingerprint"`
	CreatedAt         time.Time       `json:"created_at"`
}

// SubjectStatus is the explicit activity state of a subject, resolved once
// at the data-access boundary instead of re-interpreted by every consumer.
type SubjectStatus string

const (
	SubjectActive   SubjectStatus = "active"
	SubjectInactive SubjectStatus = "inactive"
)

// ResolveStatus collapses the loose upstream representations (a status
// string, an is_active flag, or neither) into the explicit two-state form.
// Absent information means active.
func ResolveStatus(status string, isActive *bool) SubjectStatus {
	switch status {
	case string(SubjectActive):
		return SubjectActive
	case string(SubjectInactive):
		return SubjectInactive
	}
	if isActive != nil && !*isActive {
		return SubjectInactive
	}
	return SubjectActive
}

// Subject is a course unit owning its own sessions and records.
type Subject struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Teacher string        `json:"teacher_id"`
	Status  SubjectStatus `json:"status"`
}

// Active reports whether the subject accepts sessions and selection.
func (s Subject) Active() bool { return s.Status != SubjectInactive }
