// Package config manages the global, user-level config file (spec.md §7
// "`<user-config>/config.toml` — global sources + auth tokens"), parsed with
// the same pelletier/go-toml/v2 + agpmerrors idiom as pkg/manifest.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/aig787/agpm/pkg/agpmerrors"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/aig787/agpm/pkg/stringutil"
	"github.com/pelletier/go-toml/v2"
)

var log = logger.New("config")

// EnvOverride is the environment variable that points at an alternate
// global-config file (spec.md §7 "AGPM_CONFIG points at the global-config
// file").
const EnvOverride = "AGPM_CONFIG"

// Source is one entry under [sources] in the global config: a named
// repository URL plus an optional bearer token used when cloning/fetching
// over https.
type Source struct {
	URL   string `toml:"url"`
	Token string `toml:"token,omitempty"`
}

// Config is the parsed form of the global config.toml.
type Config struct {
	Sources map[string]Source `toml:"sources,omitempty"`

	path string
}

// DefaultPath returns the global config file's location: AGPM_CONFIG if set,
// otherwise "<user-config>/agpm/config.toml".
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvOverride); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	return filepath.Join(dir, "agpm", "config.toml"), nil
}

// Load reads and parses the global config from path. A missing file is not
// an error; it yields an empty Config so first-run commands (e.g. "config
// add-source") can still write to path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{Sources: map[string]Source{}, path: path}, nil
	}
	if err != nil {
		return nil, &agpmerrors.ManifestError{Path: path, Reason: "cannot read global config", Err: err}
	}
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, &agpmerrors.ManifestError{Path: path, Reason: "invalid TOML", Err: err}
	}
	if c.Sources == nil {
		c.Sources = map[string]Source{}
	}
	c.path = path
	log.Printf("loaded global config %s: %d sources", path, len(c.Sources))
	return &c, nil
}

// Init writes a template global config to path. It refuses to overwrite an
// existing file unless force is true.
func Init(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return &agpmerrors.ManifestError{Path: path, Reason: "config already exists (use --force to overwrite)"}
		}
	}
	c := &Config{Sources: map[string]Source{}, path: path}
	return c.Save()
}

// Path returns the file this config was loaded from (or will save to).
func (c *Config) Path() string { return c.path }

// Save writes the config back to its path, creating parent directories as
// needed.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return &agpmerrors.ManifestError{Path: c.path, Reason: "cannot create config directory", Err: err}
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return &agpmerrors.ManifestError{Path: c.path, Reason: "cannot marshal config", Err: err}
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return &agpmerrors.ManifestError{Path: c.path, Reason: "cannot write config", Err: err}
	}
	return nil
}

// AddSource inserts a named source, failing if the name already exists,
// matching the manifest's own "add source" contract (spec.md CLI surface).
func (c *Config) AddSource(name, rawURL, token string) error {
	if c.Sources == nil {
		c.Sources = map[string]Source{}
	}
	if _, exists := c.Sources[name]; exists {
		return &agpmerrors.ManifestError{Path: c.path, Reason: fmt.Sprintf("source %q already exists", name)}
	}
	c.Sources[name] = Source{URL: rawURL, Token: token}
	return nil
}

// RemoveSource deletes a named source, failing if it doesn't exist.
func (c *Config) RemoveSource(name string) error {
	if _, exists := c.Sources[name]; !exists {
		return &agpmerrors.ManifestError{Path: c.path, Reason: fmt.Sprintf("source %q does not exist", name)}
	}
	delete(c.Sources, name)
	return nil
}

// SourceNames returns every configured source name, sorted.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaskedURL redacts any userinfo (token or user:password) embedded in a
// source URL, for "config show"/"config list-sources" output (spec.md:
// "Token-bearing URLs are masked in show and list-sources").
func MaskedURL(rawURL string) string {
	return stringutil.MaskURLCredentials(rawURL)
}

// MaskedToken returns a fixed placeholder for a non-empty token, or "" if
// there is no token to mask.
func MaskedToken(token string) string {
	if token == "" {
		return ""
	}
	return "***"
}
