package stringutil

import "strings"

// NormalizeResourceName strips the file extension from a resource path so it
// can be used as (part of) a canonical_name. Only the last extension is
// removed: "agents/helper.md" -> "agents/helper".
func NormalizeResourceName(name string) string {
	if idx := strings.LastIndex(name, "."); idx > strings.LastIndex(name, "/") {
		return name[:idx]
	}
	return name
}

// NormalizeAliasKey converts dashes to underscores so manifest aliases and
// generated canonical names compare consistently regardless of which
// separator the user chose.
func NormalizeAliasKey(alias string) string {
	return strings.ReplaceAll(alias, "-", "_")
}
