// Package apiclient is the student/teacher-side HTTP client for the
// attendance backend. The core treats the backend as an external
// collaborator: submit event, fetch subject and events, delete event.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"presence/internal/attendance"
	"presence/internal/roster"
)

// Client calls the attendance REST backend.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a client with a bounded request timeout.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend error %s: %s", resp.Status, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SubmitRequest is one attendance submission as the backend expects it.
type SubmitRequest struct {
	Transport         string   `json:"transport"`
	StudentName       string   `json:"student_name"`
	RollNo            string   `json:"roll_no"`
	Lat               *float64 `json:"lat,omitempty"`
	Lng               *float64 `json:"lng,omitempty"`
	AccuracyM         float64  `json:"accuracy_m,omitempty"`
	DeviceFingerprint string   `json:"device_fingerprint,omitempty"`
}

// SubmitResponse is the backend's answer to a successful submission.
type SubmitResponse struct {
	Event           attendance.Event `json:"event"`
	LocationChecked bool             `json:"location_checked"`
	DistanceMeters  float64          `json:"distance_meters"`
	Notice          string           `json:"notice"`
}

// Submit sends one scanned attendance claim.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	var out SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/v1/submissions", req, &out); err != nil {
		return SubmitResponse{}, err
	}
	return out, nil
}

// Subjects fetches the caller's subjects with resolved status.
func (c *Client) Subjects(ctx context.Context) ([]attendance.Subject, error) {
	var out struct {
		Subjects []attendance.Subject `json:"subjects"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/subjects", nil, &out); err != nil {
		return nil, err
	}
	return out.Subjects, nil
}

// Attendance fetches one page of a subject's roster, optionally narrowed to
// one day.
func (c *Client) Attendance(ctx context.Context, subjectID, day string) (roster.Page, error) {
	path := "/v1/subjects/" + url.PathEscape(subjectID) + "/attendance"
	if day != "" {
		path += "?date=" + url.QueryEscape(day)
	}
	var out roster.Page
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return roster.Page{}, err
	}
	return out, nil
}

// DeleteEvent removes one event by id.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/events/"+url.PathEscape(id), nil, nil)
}

// Health checks whether the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("backend unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("backend unhealthy: %s", resp.Status)
	}
	return nil
}
