package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aig787/agpm/pkg/agpmerrors"
	"github.com/aig787/agpm/pkg/lockfile"
	"github.com/aig787/agpm/pkg/toolconfig"
)

// agpmMarkerKey is the field injected into every JSON object agpm writes
// into a merged config, so a later install can find and replace its own
// prior entry without touching anything the user (or another tool) added
// by hand (spec.md §4.9 "wrapped in an identifying marker").
const agpmMarkerKey = "_agpm_resource_id"

// SplitMergeTarget splits a "<file>#<jsonKey>" merge_target string (e.g.
// "settings.json#hooks", ".mcp.json#mcpServers") into its file and JSON key.
func SplitMergeTarget(target string) (file, key string) {
	idx := strings.LastIndex(target, "#")
	if idx < 0 {
		return target, ""
	}
	return target[:idx], target[idx+1:]
}

// installMerged reads the existing JSON config at <projectRoot>/<tool.path>/<file>,
// merges every entry's rendered content into the declared key, and writes
// the file back atomically (spec.md §4.9 "Merged-JSON resources"). Hooks
// merge by array-append (replacing any element with a matching marker);
// MCP servers and other mapping-shaped targets merge by key.
func installMerged(ctx context.Context, plan Plan, key mergeKey, entries []lockfile.Entry, written *[]string) error {
	tc, ok := plan.Tools[key.tool]
	if !ok {
		return fmt.Errorf("merge target for unknown tool %q", key.tool)
	}
	file, jsonKey := SplitMergeTarget(key.target)
	dest := filepath.Join(plan.ProjectRoot, tc.Path, filepath.FromSlash(file))

	root, err := readJSONObject(dest)
	if err != nil {
		return &agpmerrors.InstallError{Destination: dest, Err: err}
	}

	isArray := arrayShaped(root[jsonKey]) || (root[jsonKey] == nil && key.resourceType == toolconfig.Hooks)
	for _, e := range entries {
		content, err := plan.Content(ctx, e)
		if err != nil {
			return &agpmerrors.InstallError{Destination: dest, Err: err}
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(content, &payload); err != nil {
			return &agpmerrors.InstallError{Destination: dest, Err: fmt.Errorf("resource %s is not a JSON object: %w", e.Alias, err)}
		}
		if key.resourceType == toolconfig.MCPServers {
			if err := validateMCPPayload(e.Alias, payload); err != nil {
				return &agpmerrors.InstallError{Destination: dest, Err: err}
			}
		}
		payload[agpmMarkerKey] = e.ResourceID

		if isArray {
			root[jsonKey] = mergeArrayEntry(asArray(root[jsonKey]), e.ResourceID, payload)
		} else {
			root[jsonKey] = mergeMapEntry(asMap(root[jsonKey]), e.Alias, payload)
		}
	}

	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return &agpmerrors.InstallError{Destination: dest, Err: err}
	}
	data = append(data, '\n')
	if err := atomicWrite(dest, data, 0o644); err != nil {
		return &agpmerrors.InstallError{Destination: dest, Err: err}
	}
	*written = append(*written, filepath.ToSlash(filepath.Join(tc.Path, file)))
	return nil
}

func readJSONObject(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]interface{}{}, nil
	}
	var root map[string]interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing existing JSON: %w", err)
	}
	return root, nil
}

func arrayShaped(v interface{}) bool {
	if v == nil {
		return false
	}
	_, ok := v.([]interface{})
	return ok
}

func asArray(v interface{}) []interface{} {
	arr, _ := v.([]interface{})
	return arr
}

func asMap(v interface{}) map[string]interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return m
}

// mergeArrayEntry replaces the element carrying the same agpm marker, or
// appends payload if none matches (hooks merge strategy).
func mergeArrayEntry(arr []interface{}, resourceID string, payload map[string]interface{}) []interface{} {
	for i, el := range arr {
		obj, ok := el.(map[string]interface{})
		if !ok {
			continue
		}
		if obj[agpmMarkerKey] == resourceID {
			arr[i] = payload
			return arr
		}
	}
	return append(arr, payload)
}

// mergeMapEntry sets alias -> payload in a mapping-shaped merge target (MCP
// servers merge strategy): subsequent installs simply overwrite by key.
func mergeMapEntry(m map[string]interface{}, alias string, payload map[string]interface{}) map[string]interface{} {
	m[alias] = payload
	return m
}
