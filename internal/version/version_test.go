package version

import (
	"regexp"
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	v := Get()
	if !regexp.MustCompile(`^\d+\.\d+\.\d+`).MatchString(v) {
		t.Errorf("Get() = %q, want a semantic version", v)
	}
}

func TestLong(t *testing.T) {
	l := Long()
	if !strings.HasPrefix(l, Get()) {
		t.Errorf("Long() = %q, want prefix %q", l, Get())
	}
	if !strings.HasSuffix(l, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Long() = %q, want platform suffix", l)
	}
	if len(Commit()) > 12 {
		t.Errorf("Commit() = %q, want at most 12 characters", Commit())
	}
}
