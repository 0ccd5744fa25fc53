package common

import (
	"strings"
	"testing"
)

func TestProgramVersion(t *testing.T) {
	v := ProgramVersion{Name: "adstxt-crawler", Version: "v1.2.0", CommitHash: "abc123", BuildTime: "2024-01-01"}

	if got := v.Short(); got != "v1.2.0-abc123" {
		t.Errorf("Short() = %q, want %q", got, "v1.2.0-abc123")
	}
	s := v.String()
	for _, want := range []string{"adstxt-crawler v1.2.0-abc123", "Commit: abc123", "Build Date: 2024-01-01"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
}
