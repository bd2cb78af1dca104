package stringutil

import "testing"

func TestNormalizeResourceName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no extension", "agents/helper", "agents/helper"},
		{"md extension", "agents/helper.md", "agents/helper"},
		{"dots in filename", "agents/my.helper.md", "agents/my.helper"},
		{"dotted dir, no extension", "v1.2/helper", "v1.2/helper"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeResourceName(tt.input); got != tt.expected {
				t.Errorf("NormalizeResourceName(%q) = %q; want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeAliasKey(t *testing.T) {
	if got := NormalizeAliasKey("code-reviewer"); got != "code_reviewer" {
		t.Errorf("got %q", got)
	}
}
