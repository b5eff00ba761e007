// SPDX-License-Identifier: MIT

package documents

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"resume.pdf", "resume.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\jane\résumé.pdf`, "resume.pdf"},
		{"my resume (final).docx", "my_resume_final.docx"},
		{"..hidden", "hidden"},
		{"???", "document"},
		{"", "document"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	got, err := SanitizeText("  Jane\x00 <b>Doe</b>  ", 100)
	if err != nil {
		t.Fatalf("SanitizeText: %v", err)
	}
	if got != "Jane Doe" {
		t.Errorf("got %q, want %q", got, "Jane Doe")
	}

	if _, err := SanitizeText(strings.Repeat("x", 101), 100); err == nil {
		t.Error("expected length error")
	}
}

func TestValidateEmail(t *testing.T) {
	got, err := ValidateEmail("Jane.Doe+hiring@Example.COM")
	if err != nil {
		t.Fatalf("ValidateEmail: %v", err)
	}
	if got != "jane.doe+hiring@example.com" {
		t.Errorf("got %q", got)
	}

	for _, bad := range []string{"", "not-an-email", "jane@", "@example.com", "jane@example", "jane doe@example.com"} {
		if _, err := ValidateEmail(bad); err == nil {
			t.Errorf("ValidateEmail(%q) succeeded, want error", bad)
		}
	}
}
