// Package token encodes the rotating scan payload a teacher presents and a
// student scans. The transport form is a compact URL query so it stays dense
// enough for optical codes and self-describing enough to check freshness
// offline.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedToken reports a transport string missing required fields or
// not recognizable as an attendance payload at all.
var ErrMalformedToken = errors.New("malformed attendance token")

// Token is one issued scan payload. Immutable; rotation issues a new one.
type Token struct {
	SubjectID   string
	SubjectName string
	SessionCode string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Valid reports whether the token is fresh at the given instant.
// Validity is time-relative and must be re-checked at the moment of use.
func (t Token) Valid(now time.Time) bool {
	return !now.Before(t.IssuedAt) && !now.After(t.ExpiresAt)
}

// Issue creates a token valid for one rotation period starting at now and
// returns it together with its transport string.
func Issue(subjectID, subjectName, sessionCode string, now time.Time, rotation time.Duration) (Token, string) {
	t := Token{
		SubjectID:   subjectID,
		SubjectName: subjectName,
		SessionCode: sessionCode,
		IssuedAt:    now,
		ExpiresAt:   now.Add(rotation),
	}
	return t, t.Encode()
}

// Encode renders the canonical transport string.
func (t Token) Encode() string {
	v := url.Values{}
	v.Set("code", t.SessionCode)
	v.Set("subject", t.SubjectID)
	v.Set("subjectName", t.SubjectName)
	v.Set("timestamp", strconv.FormatInt(t.IssuedAt.UnixMilli(), 10))
	v.Set("expiry", strconv.FormatInt(t.ExpiresAt.UnixMilli(), 10))
	return "presence://attend?" + v.Encode()
}

// Kind tags a decode outcome.
type Kind int

const (
	// Unrecognized marks input that is not an attendance payload.
	Unrecognized Kind = iota
	// Attendance marks a successfully parsed scan payload.
	Attendance
)

// Decoded is the tagged result of parsing a scanned string.
type Decoded struct {
	Kind  Kind
	Token Token
}

// Decode parses a transport string into a token. It only parses; freshness
// is the caller's separate check via Valid. The canonical form is the URL
// query payload; a legacy JSON payload shape is accepted for migration.
func Decode(s string) (Token, error) {
	d := DecodeAny(s)
	if d.Kind != Attendance {
		return Token{}, ErrMalformedToken
	}
	return d.Token, nil
}

// DecodeAny classifies a scanned string, trying the canonical query form
// first and the legacy JSON form second.
func DecodeAny(s string) Decoded {
	s = strings.TrimSpace(s)
	if s == "" {
		return Decoded{Kind: Unrecognized}
	}
	if t, ok := decodeQuery(s); ok {
		return Decoded{Kind: Attendance, Token: t}
	}
	if t, ok := decodeLegacyJSON(s); ok {
		return Decoded{Kind: Attendance, Token: t}
	}
	return Decoded{Kind: Unrecognized}
}

func decodeQuery(s string) (Token, bool) {
	raw := s
	if i := strings.IndexByte(s, '?'); i >= 0 {
		raw = s[i+1:]
	}
	v, err := url.ParseQuery(raw)
	if err != nil {
		return Token{}, false
	}
	t := Token{
		SessionCode: v.Get("code"),
		SubjectID:   v.Get("subject"),
		SubjectName: v.Get("subjectName"),
	}
	issued, err1 := millis(v.Get("timestamp"))
	expires, err2 := millis(v.Get("expiry"))
	if t.SessionCode == "" || t.SubjectID == "" || err1 != nil || err2 != nil {
		return Token{}, false
	}
	t.IssuedAt, t.ExpiresAt = issued, expires
	if !t.ExpiresAt.After(t.IssuedAt) {
		return Token{}, false
	}
	return t, true
}

// decodeLegacyJSON accepts the historical JSON payload emitted by older
// clients. Not the canonical contract; kept only so in-flight codes keep
// scanning during migration.
func decodeLegacyJSON(s string) (Token, bool) {
	if !strings.HasPrefix(s, "{") {
		return Token{}, false
	}
	var body struct {
		Code        string `json:"code"`
		Subject     string `json:"subject"`
		SubjectName string `json:"subjectName"`
		Timestamp   int64  `json:"timestamp"`
		Expiry      int64  `json:"expiry"`
	}
	if err := json.Unmarshal([]byte(s), &body); err != nil {
		return Token{}, false
	}
	if body.Code == "" || body.Subject == "" || body.Timestamp == 0 || body.Expiry == 0 {
		return Token{}, false
	}
	t := Token{
		SessionCode: body.Code,
		SubjectID:   body.Subject,
		SubjectName: body.SubjectName,
		IssuedAt:    time.UnixMilli(body.Timestamp),
		ExpiresAt:   time.UnixMilli(body.Expiry),
	}
	if !t.ExpiresAt.After(t.IssuedAt) {
		return Token{}, false
	}
	return t, true
}

func millis(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing millis")
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
