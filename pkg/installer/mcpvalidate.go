package installer

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// mcpServerSchema constrains an installed mcp-servers payload (spec.md §3
// "mcp-servers" resource type) to the shapes the gateway actually knows how
// to start: a command to run, or a URL to connect to, never both or neither.
const mcpServerSchema = `{
  "$schema": "http://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "oneOf": [
    {"required": ["command"]},
    {"required": ["url"]}
  ],
  "properties": {
    "command": {"type": "string"},
    "args": {"type": "array", "items": {"type": "string"}},
    "env": {"type": "object", "additionalProperties": {"type": "string"}},
    "url": {"type": "string"}
  }
}`

var (
	mcpSchemaOnce    sync.Once
	compiledMCP      *jsonschema.Schema
	compiledMCPError error
)

func compiledMCPServerSchema() (*jsonschema.Schema, error) {
	mcpSchemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(mcpServerSchema), &doc); err != nil {
			compiledMCPError = fmt.Errorf("parsing mcp-servers schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		const schemaURL = "https://agpm.dev/schemas/mcp-server.json"
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			compiledMCPError = fmt.Errorf("loading mcp-servers schema: %w", err)
			return
		}
		compiledMCP, compiledMCPError = compiler.Compile(schemaURL)
	})
	return compiledMCP, compiledMCPError
}

// validateMCPPayload checks a rendered mcp-servers entry against
// mcpServerSchema, then, for stdio-transport entries, builds the same
// mcp.CommandTransport the gateway would use to connect — catching a bad
// command line at install time rather than at first use.
func validateMCPPayload(alias string, payload map[string]interface{}) error {
	schema, err := compiledMCPServerSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("mcp server %q: %w", alias, err)
	}

	command, _ := payload["command"].(string)
	if command == "" {
		return nil
	}
	args, err := stringArgs(payload["args"])
	if err != nil {
		return fmt.Errorf("mcp server %q: %w", alias, err)
	}
	transport := &mcp.CommandTransport{Command: exec.Command(command, args...)}
	if transport.Command.Path == "" {
		return fmt.Errorf("mcp server %q: empty command", alias)
	}
	return nil
}

func stringArgs(raw interface{}) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("args must be an array of strings")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("args must be an array of strings")
		}
		out = append(out, s)
	}
	return out, nil
}
