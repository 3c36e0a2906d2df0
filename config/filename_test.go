package config

import (
	"os"
	"testing"
)

func TestCleanFileName(t *testing.T) {
	sep := string(os.PathSeparator)
	tests := []struct {
		in   string
		want string
	}{
		{"site", "site"},
		{"a" + sep + "b", "ab"},
		{"..hidden", "hidden"},
		{"name.min", "name.min"},
		{"a\x00b", "ab"},
		{"", badFileName},
		{"..", badFileName},
		{sep + " ", badFileName},
	}
	for _, tt := range tests {
		if got := CleanFileName(tt.in); got != tt.want {
			t.Errorf("CleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
