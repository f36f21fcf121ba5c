package classroom

import (
	"regexp"
	"testing"
)

func TestGenerateCode(t *testing.T) {
	valid := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode() error = %v", err)
		}
		if !valid.MatchString(code) {
			t.Errorf("GenerateCode() = %q, want %d uppercase letters or digits", code, CodeLength)
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Errorf("GenerateCode() produced only %d distinct codes out of 100", len(seen))
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"ABC123", "ABC123"},
		{"  abc123\n", "ABC123"},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := NormalizeCode(tt.code); got != tt.want {
				t.Errorf("NormalizeCode() = %q, want %q", got, tt.want)
			}
		})
	}
}
