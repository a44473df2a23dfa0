package token

import (
	"errors"
	"testing"
	"time"
)

func TestIssueDecodeRoundTrip(t *testing.T) {
	now := time.UnixMilli(time.Now().UnixMilli()) // trim sub-millisecond precision
	issued, transport := Issue("sub-42", "Linear Algebra", "MATH1", now, 80*time.Second)

	got, err := Decode(transport)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.SubjectID != issued.SubjectID ||
		got.SubjectName != issued.SubjectName ||
		got.SessionCode != issued.SessionCode ||
		!got.IssuedAt.Equal(issued.IssuedAt) ||
		!got.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Errorf("round trip mismatch: got %+v want %+v", got, issued)
	}
}

func TestValidWindow(t *testing.T) {
	t0 := time.Now()
	p := 80 * time.Second
	tok, _ := Issue("s", "S", "C", t0, p)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "at issue", at: t0, want: true},
		{name: "mid window", at: t0.Add(p / 2), want: true},
		{name: "at expiry", at: t0.Add(p), want: true},
		{name: "just past expiry", at: t0.Add(p + time.Millisecond), want: false},
		{name: "before issue", at: t0.Add(-time.Second), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tok.Valid(tt.at); got != tt.want {
				t.Errorf("Valid(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "plain text", input: "hello world"},
		{name: "missing code", input: "presence://attend?subject=s&timestamp=1&expiry=2"},
		{name: "missing subject", input: "presence://attend?code=C&timestamp=1&expiry=2"},
		{name: "bad timestamp", input: "presence://attend?code=C&subject=s&timestamp=abc&expiry=2"},
		{name: "expiry before issue", input: "presence://attend?code=C&subject=s&timestamp=2000&expiry=1000"},
		{name: "json missing fields", input: `{"code":"C"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.input); !errors.Is(err, ErrMalformedToken) {
				t.Errorf("Decode(%q) error = %v, want ErrMalformedToken", tt.input, err)
			}
		})
	}
}

func TestDecodeLegacyJSON(t *testing.T) {
	in := `{"code":"MATH1","subject":"sub-42","subjectName":"Algebra","timestamp":1700000000000,"expiry":1700000080000}`
	tok, err := Decode(in)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if tok.SessionCode != "MATH1" || tok.SubjectID != "sub-42" {
		t.Errorf("legacy decode got %+v", tok)
	}
	if tok.ExpiresAt.Sub(tok.IssuedAt) != 80*time.Second {
		t.Errorf("window = %v, want 80s", tok.ExpiresAt.Sub(tok.IssuedAt))
	}
}

func TestDecodeAnyTagsUnrecognized(t *testing.T) {
	if d := DecodeAny("not a payload"); d.Kind != Unrecognized {
		t.Errorf("Kind = %v, want Unrecognized", d.Kind)
	}
	_, transport := Issue("s", "S", "C", time.Now(), time.Minute)
	if d := DecodeAny(transport); d.Kind != Attendance {
		t.Errorf("Kind = %v, want Attendance", d.Kind)
	}
}
