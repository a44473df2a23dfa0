package roster

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"presence/internal/attendance"
)

// SortKey names a roster column the teacher can sort by.
type SortKey string

const (
	SortRollNo      SortKey = "rollNo"
	SortTime        SortKey = "time"
	SortStudentName SortKey = "studentName"
)

// View carries the sticky sort cursor: asking for the same key twice
// toggles direction, a new key resets to ascending.
type View struct {
	key SortKey
	asc bool
}

// Sorted returns a stably sorted copy of records, advancing the view's
// toggle state.
func (v *View) Sorted(records []attendance.Event, key SortKey) []attendance.Event {
	if v.key == key {
		v.asc = !v.asc
	} else {
		v.key = key
		v.asc = true
	}
	return SortRecords(records, key, v.asc)
}

// Key returns the view's current sort key and direction.
func (v *View) Key() (SortKey, bool) { return v.key, v.asc }

// SortRecords stably sorts a copy of records by the given key.
func SortRecords(records []attendance.Event, key SortKey, asc bool) []attendance.Event {
	out := make([]attendance.Event, len(records))
	copy(out, records)

	var less func(i, j int) bool
	switch key {
	case SortRollNo:
		less = func(i, j int) bool { return rollValue(out[i].RollNo) < rollValue(out[j].RollNo) }
	case SortTime:
		less = func(i, j int) bool { return timeValue(out[i].Time) < timeValue(out[j].Time) }
	case SortStudentName:
		less = func(i, j int) bool {
			return strings.ToLower(out[i].StudentName) < strings.ToLower(out[j].StudentName)
		}
	default:
		return out
	}
	if !asc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(out, less)
	return out
}

// rollValue extracts the numeric ordering of a roll string: the trailing
// segment of a hyphen-delimited roll ("CLASS-014" -> 14), else the first
// embedded digit run, else 0. Lexical order would put 10 before 9.
func rollValue(roll string) int {
	roll = strings.TrimSpace(roll)
	if i := strings.LastIndexByte(roll, '-'); i >= 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(roll[i+1:])); err == nil {
			return n
		}
	}
	start := -1
	for i, r := range roll {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			n, _ := strconv.Atoi(roll[start:i])
			return n
		}
	}
	if start >= 0 {
		n, _ := strconv.Atoi(roll[start:])
		return n
	}
	return 0
}

// timeValue parses a 12-hour ("11:05 AM") or 24-hour ("23:05") clock string
// into same-day minutes. Unparseable times sort first.
func timeValue(s string) int {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"3:04 PM", "03:04 PM", "15:04", "15:04:05"} {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return t.Hour()*60 + t.Minute()
		}
	}
	return -1
}

// FilterRecords matches term case-insensitively against student name, roll
// number or subject title, OR'd. An empty term keeps everything.
func FilterRecords(records []attendance.Event, subjectTitle, term string) []attendance.Event {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return records
	}
	titleHit := strings.Contains(strings.ToLower(subjectTitle), term)
	var out []attendance.Event
	for _, evt := range records {
		if titleHit ||
			strings.Contains(strings.ToLower(evt.StudentName), term) ||
			strings.Contains(strings.ToLower(evt.RollNo), term) {
			out = append(out, evt)
		}
	}
	return out
}

// Page is one pagination window over a record list.
type Page struct {
	Records    []attendance.Event `json:"records"`
	PageNumber int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
	Total      int                `json:"total"`
}

// Paginate slices records into a 1-indexed page, clamping out-of-range page
// numbers to the valid range instead of failing.
func Paginate(records []attendance.Event, pageSize, pageNumber int) Page {
	if pageSize <= 0 {
		pageSize = 10
	}
	total := len(records)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageNumber > totalPages {
		pageNumber = totalPages
	}
	start := (pageNumber - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return Page{
		Records:    records[start:end],
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Total:      total,
	}
}
