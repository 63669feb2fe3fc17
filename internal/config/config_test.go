package config

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "****"},
		{"abcd", "****"},
		{"supersecret", "su****"},
	}

	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMarshalJSON_MasksPassword(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "topsecretpassword"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() = %v", err)
	}

	if strings.Contains(string(data), "topsecretpassword") {
		t.Errorf("serialized config leaks password: %s", data)
	}
	if !strings.Contains(string(data), "to****") {
		t.Errorf("expected masked password in output: %s", data)
	}
}

func TestString_MasksPassword(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "topsecretpassword"

	s := cfg.String()
	if strings.Contains(s, "topsecretpassword") {
		t.Errorf("String() leaks password: %s", s)
	}
}
