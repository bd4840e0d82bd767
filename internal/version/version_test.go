package version

import (
	"runtime"
	"testing"
)

func TestIsDev(t *testing.T) {
	// Save original value
	original := Version
	defer func() { Version = original }()

	tests := []struct {
		version  string
		expected bool
	}{
		{"dev", true},
		{"1.0.0", false},
		{"v1.2.3", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			Version = tt.version
			if got := IsDev(); got != tt.expected {
				t.Errorf("IsDev() with Version=%q = %v, want %v", tt.version, got, tt.expected)
			}
		})
	}
}

func TestFull(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	Version = "dev"
	if got := Full(); got != "arccheck version dev (built from source)" {
		t.Errorf("Full() with dev = %q", got)
	}

	Version = "1.2.3"
	if got := Full(); got != "arccheck version 1.2.3" {
		t.Errorf("Full() with 1.2.3 = %q", got)
	}
}

func TestCurrent(t *testing.T) {
	info := Current()
	if info.Version != Version || info.Commit != Commit {
		t.Errorf("Current() = %+v", info)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}
