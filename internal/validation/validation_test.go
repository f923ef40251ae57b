package validation

import (
	"strings"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
		valid bool
	}{
		{
			name:  "lower-cased and trimmed",
			email: "  Alice@Example.COM ",
			want:  "alice@example.com",
			valid: true,
		},
		{
			name:  "missing at",
			email: "alice.example.com",
			valid: false,
		},
		{
			name:  "display name",
			email: "Alice <alice@example.com>",
			valid: false,
		},
		{
			name:  "empty string",
			email: "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeEmail(tt.email)
			if ok != tt.valid {
				t.Fatalf("NormalizeEmail(%q) ok = %v, want %v", tt.email, ok, tt.valid)
			}
			if ok && got != tt.want {
				t.Fatalf("NormalizeEmail(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidPassword(t *testing.T) {
	if IsValidPassword("short") {
		t.Fatalf("expected short password to be rejected")
	}
	if !IsValidPassword("long enough") {
		t.Fatalf("expected 11-char password to be accepted")
	}
	if !IsValidPassword(strings.Repeat("p", MaxPasswordBytes)) {
		t.Fatalf("expected %d-byte password to be accepted", MaxPasswordBytes)
	}
	if IsValidPassword(strings.Repeat("p", MaxPasswordBytes+1)) {
		t.Fatalf("expected password over %d bytes to be rejected", MaxPasswordBytes)
	}
	if IsValidPassword(strings.Repeat("ж", 40)) {
		t.Fatalf("expected 80-byte multibyte password to be rejected")
	}
}

func TestIsValidName(t *testing.T) {
	if IsValidName("   ") {
		t.Fatalf("blank name must be rejected")
	}
	if IsValidName(strings.Repeat("я", MaxNameLen+1)) {
		t.Fatalf("too long name must be rejected")
	}
	if !IsValidName("Instagram") {
		t.Fatalf("expected name to be accepted")
	}
}

func TestIsValidReceipt(t *testing.T) {
	tests := []struct {
		name    string
		receipt string
		max     int
		valid   bool
	}{
		{
			name:    "https url",
			receipt: "https://cdn.example.com/receipts/1.png",
			max:     1024,
			valid:   true,
		},
		{
			name:    "data uri",
			receipt: "data:image/png;base64,iVBORw0KGgo=",
			max:     1024,
			valid:   true,
		},
		{
			name:    "data uri without payload",
			receipt: "data:image/png",
			max:     1024,
			valid:   false,
		},
		{
			name:    "ftp scheme",
			receipt: "ftp://example.com/r.png",
			max:     1024,
			valid:   false,
		},
		{
			name:    "too large",
			receipt: "data:image/png;base64," + strings.Repeat("A", 100),
			max:     64,
			valid:   false,
		},
		{
			name:    "empty string",
			receipt: "",
			max:     1024,
			valid:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidReceipt(tt.receipt, tt.max)
			if got != tt.valid {
				t.Fatalf("IsValidReceipt(%q) = %v, want %v", tt.receipt, got, tt.valid)
			}
		})
	}
}
