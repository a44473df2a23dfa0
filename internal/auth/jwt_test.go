package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("teacher-1", RoleTeacher, "presence", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := Parse(pair.AccessToken, "secret", "presence")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != "teacher-1" || claims.Role != RoleTeacher {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejections(t *testing.T) {
	pair, err := Issue("s", RoleStudent, "presence", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	tests := []struct {
		name   string
		token  string
		key    string
		issuer string
	}{
		{name: "wrong key", token: pair.AccessToken, key: "other", issuer: "presence"},
		{name: "wrong issuer", token: pair.AccessToken, key: "secret", issuer: "someone-else"},
		{name: "garbage", token: "not.a.jwt", key: "secret", issuer: "presence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.token, tt.key, tt.issuer); err == nil {
				t.Error("Parse() accepted an invalid token")
			}
		})
	}
}

func TestParseExpired(t *testing.T) {
	pair, err := Issue("s", RoleStudent, "presence", "secret", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := Parse(pair.AccessToken, "secret", "presence"); err == nil {
		t.Error("Parse() accepted an expired token")
	}
}
