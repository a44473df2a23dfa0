package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"presence/internal/geo"
)

// ErrEventNotFound is returned for lookups and mutations of missing events.
var ErrEventNotFound = errors.New("attendance event not found")

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const eventColumns = `id, subject_id, session_code, student_name, roll_no, day, clock_time,
	student_lat, student_lng, student_accuracy, teacher_lat, teacher_lng,
	distance_m, radius_m, device_fp, created_at`

func scanEvent(row interface{ Scan(dest ...any) error }) (Event, error) {
	var evt Event
	var tLat, tLng sql.NullFloat64
	err := row.Scan(&evt.ID, &evt.SubjectID, &evt.SessionCode, &evt.StudentName, &evt.RollNo,
		&evt.Date, &evt.Time,
		&evt.StudentLoc.Lat, &evt.StudentLoc.Lng, &evt.StudentLoc.AccuracyM,
		&tLat, &tLng,
		&evt.DistanceMeters, &evt.RequiredRadiusM, &evt.DeviceFingerprint, &evt.CreatedAt)
	if err != nil {
		return Event{}, err
	}
	if tLat.Valid && tLng.Valid {
		evt.TeacherLoc = &geo.Coordinate{Lat: tLat.Float64, Lng: tLng.Float64}
	}
	return evt, nil
}

// InsertEvent writes a new event, allocating an id when absent.
func (r *Repository) InsertEvent(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	var tLat, tLng any
	if evt.TeacherLoc != nil {
		tLat, tLng = evt.TeacherLoc.Lat, evt.TeacherLoc.Lng
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_events
			(id, subject_id, session_code, student_name, roll_no, day, clock_time,
			 student_lat, student_lng, student_accuracy, teacher_lat, teacher_lng,
			 distance_m, radius_m, device_fp)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at
	`, evt.ID, evt.SubjectID, evt.SessionCode, evt.StudentName, evt.RollNo, evt.Date, evt.Time,
		evt.StudentLoc.Lat, evt.StudentLoc.Lng, evt.StudentLoc.AccuracyM, tLat, tLng,
		evt.DistanceMeters, evt.RequiredRadiusM, evt.DeviceFingerprint)
	if err := row.Scan(&evt.CreatedAt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// GetEvent returns a single event by id.
func (r *Repository) GetEvent(ctx context.Context, id string) (Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM attendance_events WHERE id = $1
	`, id)
	evt, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrEventNotFound
	}
	return evt, err
}

// RecentByDevice returns the latest event recorded by the same device within
// the same session inside the window, for duplicate-submission collapsing.
func (r *Repository) RecentByDevice(ctx context.Context, sessionCode, deviceFP string, window time.Duration) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM attendance_events
		WHERE session_code = $1 AND device_fp = $2
		  AND created_at >= NOW() - ($3 * interval '1 second')
		ORDER BY created_at DESC
		LIMIT 1
	`, sessionCode, deviceFP, window.Seconds())
	evt, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &evt, nil
}

// ListBySubject returns a subject's events, optionally narrowed to one day,
// in insertion order.
func (r *Repository) ListBySubject(ctx context.Context, subjectID, day string) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM attendance_events WHERE subject_id = $1`
	args := []any{subjectID}
	if day != "" {
		query += ` AND day = $2`
		args = append(args, day)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

// DeleteEvent removes a record by id.
func (r *Repository) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// CorrectEvent replaces the correctable fields. id and day stay as recorded.
func (r *Repository) CorrectEvent(ctx context.Context, id, studentName, rollNo, clockTime string) (Event, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_events
		SET student_name = $2, roll_no = $3, clock_time = $4
		WHERE id = $1
	`, id, studentName, rollNo, clockTime)
	if err != nil {
		return Event{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Event{}, ErrEventNotFound
	}
	return r.GetEvent(ctx, id)
}

// ListSubjects returns a teacher's subjects with their resolved status.
func (r *Repository) ListSubjects(ctx context.Context, teacherID string) ([]Subject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, teacher_id, status, is_active
		FROM subjects
		WHERE teacher_id = $1
		ORDER BY title
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var s Subject
		var status sql.NullString
		var isActive sql.NullBool
		if err := rows.Scan(&s.ID, &s.Title, &s.Teacher, &status, &isActive); err != nil {
			return nil, err
		}
		var flag *bool
		if isActive.Valid {
			flag = &isActive.Bool
		}
		s.Status = ResolveStatus(status.String, flag)
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// AllSubjects returns every subject with its resolved status, for processes
// that project the full event stream.
func (r *Repository) AllSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, teacher_id, status, is_active FROM subjects ORDER BY title
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var s Subject
		var status sql.NullString
		var isActive sql.NullBool
		if err := rows.Scan(&s.ID, &s.Title, &s.Teacher, &status, &isActive); err != nil {
			return nil, err
		}
		var flag *bool
		if isActive.Valid {
			flag = &isActive.Bool
		}
		s.Status = ResolveStatus(status.String, flag)
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// SetSubjectStatus flips a subject between active and inactive.
func (r *Repository) SetSubjectStatus(ctx context.Context, subjectID string, status SubjectStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subjects SET status = $2, is_active = $3 WHERE id = $1
	`, subjectID, string(status), status == SubjectActive)
	return err
}
