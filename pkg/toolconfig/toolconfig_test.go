package toolconfig

import "testing"

func TestDefaultClaudeCode(t *testing.T) {
	tc, ok := Default("claude-code")
	if !ok {
		t.Fatal("expected claude-code default")
	}
	if !tc.Supports(Agents) {
		t.Error("expected claude-code to support agents")
	}
	if tc.Layouts[Hooks].MergeTarget != "settings.json#hooks" {
		t.Errorf("unexpected hooks merge target: %q", tc.Layouts[Hooks].MergeTarget)
	}
}

func TestMergeOverridesOneLayout(t *testing.T) {
	base, _ := Default("claude-code")
	override := ToolConfig{
		Layouts: map[ResourceType]ResourceTypeLayout{
			Agents: {Target: "custom-agents"},
		},
	}
	merged := Merge(base, override)
	if merged.Layouts[Agents].Target != "custom-agents" {
		t.Errorf("override did not apply: %+v", merged.Layouts[Agents])
	}
	if merged.Layouts[Snippets].Target != "snippets" {
		t.Error("unrelated layout should be preserved from base")
	}
	if merged.Path != base.Path {
		t.Error("path should be preserved when override omits it")
	}
}

func TestUnsupportedResourceType(t *testing.T) {
	tc, _ := Default("agpm")
	if tc.Supports(Hooks) {
		t.Error("bare agpm tool should not support hooks")
	}
}
