package roster

import (
	"testing"

	"presence/internal/attendance"
)

func rec(id, name, roll, clock string) attendance.Event {
	return attendance.Event{ID: id, SubjectID: "sub-1", Date: "2026-03-02",
		StudentName: name, RollNo: roll, Time: clock}
}

func rolls(events []attendance.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.RollNo
	}
	return out
}

func TestRollValueExtraction(t *testing.T) {
	tests := []struct {
		roll string
		want int
	}{
		{roll: "CLASS-014", want: 14},
		{roll: "A-2", want: 2},
		{roll: "A-10", want: 10},
		{roll: "BSCS-2021-107", want: 107},
		{roll: "42A", want: 42},
		{roll: "roll9end", want: 9},
		{roll: "nodigits", want: 0},
		{roll: "", want: 0},
	}
	for _, tt := range tests {
		if got := rollValue(tt.roll); got != tt.want {
			t.Errorf("rollValue(%q) = %d, want %d", tt.roll, got, tt.want)
		}
	}
}

func TestSortByRollIsNumericNotLexical(t *testing.T) {
	records := []attendance.Event{
		rec("1", "b", "A-2", "9:00 AM"),
		rec("2", "a", "A-10", "9:01 AM"),
		rec("3", "c", "A-1", "9:02 AM"),
	}
	sorted := SortRecords(records, SortRollNo, true)
	got := rolls(sorted)
	want := []string{"A-1", "A-2", "A-10"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("roll order = %v, want %v", got, want)
		}
	}
}

func TestTimeValueParsesBothClocks(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "11:05 AM", want: 11*60 + 5},
		{in: "11:05 PM", want: 23*60 + 5},
		{in: "23:05", want: 23*60 + 5},
		{in: "00:10", want: 10},
		{in: "12:00 AM", want: 0},
		{in: "12:30 PM", want: 12*60 + 30},
		{in: "garbage", want: -1},
	}
	for _, tt := range tests {
		if got := timeValue(tt.in); got != tt.want {
			t.Errorf("timeValue(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSortByTimeMixedFormats(t *testing.T) {
	records := []attendance.Event{
		rec("1", "a", "R-1", "23:05"),
		rec("2", "b", "R-2", "9:15 AM"),
		rec("3", "c", "R-3", "11:05 AM"),
	}
	sorted := SortRecords(records, SortTime, true)
	if got := rolls(sorted); got[0] != "R-2" || got[1] != "R-3" || got[2] != "R-1" {
		t.Errorf("time order = %v", got)
	}
}

func TestSortByNameCaseInsensitive(t *testing.T) {
	records := []attendance.Event{
		rec("1", "zara", "R-1", ""),
		rec("2", "Ali", "R-2", ""),
		rec("3", "bea", "R-3", ""),
	}
	sorted := SortRecords(records, SortStudentName, true)
	if sorted[0].StudentName != "Ali" || sorted[1].StudentName != "bea" || sorted[2].StudentName != "zara" {
		t.Errorf("name order = %v %v %v", sorted[0].StudentName, sorted[1].StudentName, sorted[2].StudentName)
	}
}

func TestViewToggleReturnsToAscendingStably(t *testing.T) {
	// Equal roll values keep their relative order through a full toggle cycle.
	records := []attendance.Event{
		rec("first", "a", "A-1", ""),
		rec("second", "b", "A-1", ""),
		rec("third", "c", "A-2", ""),
	}
	var v View
	asc1 := v.Sorted(records, SortRollNo)
	desc := v.Sorted(records, SortRollNo)
	asc2 := v.Sorted(records, SortRollNo)

	if key, asc := v.Key(); key != SortRollNo || !asc {
		t.Fatalf("view state = %v/%v, want rollNo ascending", key, asc)
	}
	if desc[0].RollNo != "A-2" {
		t.Errorf("second request did not descend: %v", rolls(desc))
	}
	for i := range asc1 {
		if asc1[i].ID != asc2[i].ID {
			t.Fatalf("toggle cycle not stable: %v vs %v", asc1, asc2)
		}
	}
	if asc2[0].ID != "first" || asc2[1].ID != "second" {
		t.Errorf("equal keys reordered: %v %v", asc2[0].ID, asc2[1].ID)
	}
}

func TestViewKeyChangeResetsAscending(t *testing.T) {
	records := []attendance.Event{
		rec("1", "b", "A-2", "9:00 AM"),
		rec("2", "a", "A-1", "10:00 AM"),
	}
	var v View
	_ = v.Sorted(records, SortRollNo)
	_ = v.Sorted(records, SortRollNo) // now descending
	byName := v.Sorted(records, SortStudentName)
	if byName[0].StudentName != "a" {
		t.Errorf("key change should reset to ascending, got %v first", byName[0].StudentName)
	}
}

func TestFilterRecords(t *testing.T) {
	records := []attendance.Event{
		rec("1", "Ada Lovelace", "CS-014", ""),
		rec("2", "Alan Turing", "CS-015", ""),
	}
	tests := []struct {
		name  string
		term  string
		title string
		want  int
	}{
		{name: "by name", term: "ada", want: 1},
		{name: "by roll", term: "015", want: 1},
		{name: "by subject title", term: "algebra", title: "Linear Algebra", want: 2},
		{name: "no match", term: "xyz", want: 0},
		{name: "empty term keeps all", term: "", want: 2},
		{name: "case insensitive", term: "ALAN", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterRecords(records, tt.title, tt.term)
			if len(got) != tt.want {
				t.Errorf("FilterRecords(%q) returned %d records, want %d", tt.term, len(got), tt.want)
			}
		})
	}
}

func TestPaginateClamps(t *testing.T) {
	var records []attendance.Event
	for i := 0; i < 25; i++ {
		records = append(records, rec(string(rune('a'+i)), "s", "R-1", ""))
	}
	tests := []struct {
		name     string
		page     int
		wantPage int
		wantLen  int
	}{
		{name: "first page", page: 1, wantPage: 1, wantLen: 10},
		{name: "last partial page", page: 3, wantPage: 3, wantLen: 5},
		{name: "past the end clamps", page: 99, wantPage: 3, wantLen: 5},
		{name: "zero clamps to first", page: 0, wantPage: 1, wantLen: 10},
		{name: "negative clamps to first", page: -2, wantPage: 1, wantLen: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(records, 10, tt.page)
			if p.PageNumber != tt.wantPage || len(p.Records) != tt.wantLen {
				t.Errorf("Paginate(page=%d) = page %d len %d, want page %d len %d",
					tt.page, p.PageNumber, len(p.Records), tt.wantPage, tt.wantLen)
			}
			if p.TotalPages != 3 || p.Total != 25 {
				t.Errorf("totals = %d pages / %d records", p.TotalPages, p.Total)
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate(nil, 10, 5)
	if p.PageNumber != 1 || len(p.Records) != 0 || p.TotalPages != 1 {
		t.Errorf("empty pagination = %+v", p)
	}
}
