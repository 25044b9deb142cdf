package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "lowercases", input: "  Ali@X.com ", want: "ali@x.com"},
		{name: "empty", input: "   ", wantErr: true},
		{name: "no at", input: "ali.x.com", wantErr: true},
		{name: "no domain dot", input: "ali@localhost", wantErr: true},
		{name: "display name", input: "Ali <ali@x.com>", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeEmail(tc.input)
			if tc.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) || vErr.Field != "email" {
					t.Fatalf("expected email validation error, got %v", err)
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("validation error should unwrap to ErrInvalidInput")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: " Ali "},
		{name: "too short", input: "A", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 51), wantErr: true},
		{name: "max", input: strings.Repeat("a", 50)},
		{name: "multibyte", input: "Éé"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NormalizeName(tc.input)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		password  string
		wantError bool
	}{
		{name: "valid", password: "secret1"},
		{name: "minimum", password: "secret"},
		{name: "too short", password: "abc", wantError: true},
		{name: "empty", password: "", wantError: true},
		{name: "too long", password: strings.Repeat("x", 73), wantError: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePassword(tc.password)
			if tc.wantError && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantError && err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"user", "admin", "moderator"} {
		if _, ok := ParseRole(raw); !ok {
			t.Fatalf("expected %q to parse", raw)
		}
	}
	if _, ok := ParseRole("ADMIN"); ok {
		t.Fatalf("role parsing should be exact")
	}
}
