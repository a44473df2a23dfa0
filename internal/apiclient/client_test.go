package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"presence/internal/attendance"
	"presence/internal/roster"
)

func TestSubmitRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/submissions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if req.StudentName != "Ada" || req.DeviceFingerprint != "dev-1" {
			t.Errorf("request = %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(SubmitResponse{
			Event:           attendance.Event{ID: "evt-1", StudentName: req.StudentName},
			LocationChecked: true,
			DistanceMeters:  33,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	got, err := c.Submit(context.Background(), SubmitRequest{
		Transport:         "presence://attend?code=C",
		StudentName:       "Ada",
		RollNo:            "CS-014",
		DeviceFingerprint: "dev-1",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got.Event.ID != "evt-1" || !got.LocationChecked || got.DistanceMeters != 33 {
		t.Errorf("Submit() = %+v", got)
	}
}

func TestBackendErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if _, err := c.Submit(context.Background(), SubmitRequest{}); err == nil {
		t.Error("expected error from failing backend")
	}
	if err := c.DeleteEvent(context.Background(), "x"); err == nil {
		t.Error("expected error from failing delete")
	}
}

func TestAttendanceQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/subjects/sub-1/attendance" || r.URL.Query().Get("date") != "2026-03-02" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_ = json.NewEncoder(w).Encode(roster.Page{
			Records:    []attendance.Event{{ID: "1", SubjectID: "sub-1"}},
			PageNumber: 1,
			PageSize:   10,
			TotalPages: 1,
			Total:      1,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	page, err := c.Attendance(context.Background(), "sub-1", "2026-03-02")
	if err != nil {
		t.Fatalf("Attendance() error = %v", err)
	}
	if page.Total != 1 || len(page.Records) != 1 || page.Records[0].ID != "1" {
		t.Errorf("Attendance() = %+v", page)
	}
}
