package attendance

import "testing"

func TestResolveStatus(t *testing.T) {
	no := false
	yes := true
	tests := []struct {
		name     string
		status   string
		isActive *bool
		want     SubjectStatus
	}{
		{name: "explicit active", status: "active", want: SubjectActive},
		{name: "explicit inactive", status: "inactive", want: SubjectInactive},
		{name: "flag false", status: "", isActive: &no, want: SubjectInactive},
		{name: "flag true", status: "", isActive: &yes, want: SubjectActive},
		{name: "nothing set defaults to active", status: "", want: SubjectActive},
		{name: "status wins over flag", status: "inactive", isActive: &yes, want: SubjectInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveStatus(tt.status, tt.isActive); got != tt.want {
				t.Errorf("ResolveStatus(%q, %v) = %v, want %v", tt.status, tt.isActive, got, tt.want)
			}
		})
	}
}
