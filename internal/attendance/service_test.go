package attendance

import (
	"context"
	"strings"
	"testing"
)

// Validation runs before any repository access, so a nil repository is
// enough to exercise the rejected paths.
func TestRecordValidation(t *testing.T) {
	svc := NewService(nil, 0)

	valid := Event{
		SubjectID:         "sub-1",
		SessionCode:       "MATH-7F",
		StudentName:       "Ada",
		RollNo:            "CS-014",
		DeviceFingerprint: "1a2b3c4d5e6f7a8b",
	}

	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr string
	}{
		{"missing subject", func(e *Event) { e.SubjectID = "" }, "subject"},
		{"missing student name", func(e *Event) { e.StudentName = "" }, "subject"},
		{"missing roll number", func(e *Event) { e.RollNo = "" }, "subject"},
		{"missing device fingerprint", func(e *Event) { e.DeviceFingerprint = "" }, "fingerprint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := valid
			tt.mutate(&evt)
			_, err := svc.Record(context.Background(), evt)
			if err == nil {
				t.Fatal("Record() accepted an incomplete event")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Record() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
