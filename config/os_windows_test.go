//go:build windows

package config

import "testing"

func TestCleanFileName_Windows(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`a<b>c?d*e|f"g`, "abcdefg"},
		{"name. . ", "name"},
		{"con", "_con"},
		{"LPT1.css", "_LPT1.css"},
		{"console", "console"},
	}
	for _, tt := range tests {
		if got := CleanFileName(tt.in); got != tt.want {
			t.Errorf("CleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
