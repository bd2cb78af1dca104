package logger

import (
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Logger represents a debug logger for a specific namespace
type Logger struct {
	namespace string
	enabled   bool
	lastLog   time.Time
	mu        sync.Mutex
	color     string
}

var (
	// overrideMu guards override, set by the CLI's --verbose/--quiet flags
	// (pkg/cli.cmdContext) so a command-line flag can win over whatever the
	// DEBUG environment variable says without the user needing to know it.
	overrideMu sync.Mutex
	override   *bool

	// DEBUG environment variable value, read once at initialization.
	// AGPM_DEBUG takes precedence, matching agpm's own AGPM_-prefixed env
	// vars (AGPM_CACHE_DIR, AGPM_NO_PROGRESS) while still honoring the
	// teacher's bare DEBUG for anyone used to that convention.
	debugEnv = firstNonEmpty(os.Getenv("AGPM_DEBUG"), os.Getenv("DEBUG"))

	// patternCache memoises computeEnabled's result per namespace so a
	// command that constructs the same package-level logger repeatedly
	// (every pkg.init's `var log = logger.New(...)`) doesn't re-parse the
	// DEBUG/AGPM_DEBUG pattern list on every call.
	patternCacheLock sync.RWMutex
	patternCache     = map[string]bool{}

	// DEBUG_COLORS environment variable to control color output
	debugColors = os.Getenv("DEBUG_COLORS") != "0"

	// Check if stderr is a terminal (for color support)
	isTTY = isatty.IsTerminal(os.Stderr.Fd())

	// Color palette - chosen to be readable on both light and dark backgrounds
	// Using ANSI 256-color codes for better compatibility
	colorPalette = []string{
		"\033[38;5;33m",  // Blue
		"\033[38;5;35m",  // Green
		"\033[38;5;166m", // Orange
		"\033[38;5;125m", // Purple
		"\033[38;5;37m",  // Cyan
		"\033[38;5;161m", // Magenta
		"\033[38;5;136m", // Yellow
		"\033[38;5;124m", // Red
		"\033[38;5;28m",  // Dark green
		"\033[38;5;63m",  // Light blue
		"\033[38;5;95m",  // Brown
		"\033[38;5;21m",  // Dark blue
	}

	colorReset = "\033[0m"
)

// New creates a new Logger for the given namespace.
// The enabled state is computed at construction time from the DEBUG (or AGPM_DEBUG)
// value read once at process start, unless SetVerbose has set an override.
// DEBUG syntax follows https://www.npmjs.com/package/debug patterns:
//
//	DEBUG=*              - enables all loggers
//	DEBUG=namespace:*    - enables all loggers in a namespace
//	DEBUG=ns1,ns2        - enables specific namespaces
//	DEBUG=ns:*,-ns:skip  - enables namespace but excludes specific patterns
//
// Colors are automatically assigned to each namespace if DEBUG_COLORS != "0" and stderr is a TTY.
func New(namespace string) *Logger {
	enabled := computeEnabled(namespace)
	color := selectColor(namespace)
	return &Logger{
		namespace: namespace,
		enabled:   enabled,
		lastLog:   time.Now(),
		color:     color,
	}
}

// selectColor selects a color for the namespace based on its hash
func selectColor(namespace string) string {
	if !debugColors || !isTTY {
		return ""
	}

	// Use FNV-1a hash for consistent color assignment
	h := fnv.New32a()
	h.Write([]byte(namespace))
	hash := h.Sum32()

	// Select color from palette based on hash
	return colorPalette[hash%uint32(len(colorPalette))]
}

// Enabled returns whether this logger is enabled, consulting SetVerbose's
// override before falling back to the namespace's DEBUG/AGPM_DEBUG match.
func (l *Logger) Enabled() bool {
	if v, ok := verboseOverride(); ok {
		return v
	}
	return l.enabled
}

// Printf prints a formatted message if the logger is enabled.
// A newline is always added at the end.
// Time diff since last log is displayed like the debug npm package.
func (l *Logger) Printf(format string, args ...interface{}) {
	if !l.Enabled() {
		return
	}
	l.mu.Lock()
	now := time.Now()
	diff := now.Sub(l.lastLog)
	l.lastLog = now
	l.mu.Unlock()

	message := fmt.Sprintf(format, args...)
	if l.color != "" {
		fmt.Fprintf(os.Stderr, "%s%s%s %s +%s\n", l.color, l.namespace, colorReset, message, formatDuration(diff))
	} else {
		fmt.Fprintf(os.Stderr, "%s %s +%s\n", l.namespace, message, formatDuration(diff))
	}
}

// Print prints a message if the logger is enabled.
// A newline is always added at the end.
// Time diff since last log is displayed like the debug npm package.
func (l *Logger) Print(args ...interface{}) {
	if !l.Enabled() {
		return
	}
	l.mu.Lock()
	now := time.Now()
	diff := now.Sub(l.lastLog)
	l.lastLog = now
	l.mu.Unlock()

	message := fmt.Sprint(args...)
	if l.color != "" {
		fmt.Fprintf(os.Stderr, "%s%s%s %s +%s\n", l.color, l.namespace, colorReset, message, formatDuration(diff))
	} else {
		fmt.Fprintf(os.Stderr, "%s %s +%s\n", l.namespace, message, formatDuration(diff))
	}
}

// Println prints a message followed by a newline if the logger is enabled,
// identical to Print except it mirrors the standard library's log.Println
// naming for callers migrating from it.
func (l *Logger) Println(args ...interface{}) {
	l.Print(args...)
}

// LazyPrintf prints the result of msg if the logger is enabled, without
// calling msg at all when it isn't. Use this over Printf when the message
// itself is expensive to build (e.g. rendering a whole resolved graph),
// since Printf always evaluates its args even when the log line is discarded.
func (l *Logger) LazyPrintf(msg func() string) {
	if !l.Enabled() {
		return
	}
	l.Printf("%s", msg())
}

// formatDuration formats a duration for display like the debug npm package
func formatDuration(d time.Duration) string {
	if d < time.Microsecond {
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// SetVerbose forces every logger's enabled state to v, overriding whatever
// DEBUG/AGPM_DEBUG pattern would otherwise apply, for the remainder of the
// process. Loggers constructed before the call are unaffected by pattern
// re-evaluation but still consult this override on every Printf/Print, so
// flipping it mid-run (e.g. once cobra has parsed --verbose) takes effect
// immediately.
func SetVerbose(v bool) {
	overrideMu.Lock()
	defer overrideMu.Unlock()
	override = &v
}

func verboseOverride() (bool, bool) {
	overrideMu.Lock()
	defer overrideMu.Unlock()
	if override == nil {
		return false, false
	}
	return *override, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// computeEnabled computes whether a namespace matches the DEBUG patterns,
// caching the result per namespace (the override still wins every call so
// --verbose/--quiet take effect without needing the cache cleared).
func computeEnabled(namespace string) bool {
	if v, ok := verboseOverride(); ok {
		return v
	}

	patternCacheLock.RLock()
	cached, ok := patternCache[namespace]
	patternCacheLock.RUnlock()
	if ok {
		return cached
	}

	enabled := evaluatePatterns(namespace)

	patternCacheLock.Lock()
	patternCache[namespace] = enabled
	patternCacheLock.Unlock()

	return enabled
}

// evaluatePatterns matches namespace against every DEBUG/AGPM_DEBUG pattern.
func evaluatePatterns(namespace string) bool {
	patterns := strings.Split(debugEnv, ",")

	enabled := false

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)

		// Handle exclusion patterns (starting with -)
		if strings.HasPrefix(pattern, "-") {
			excludePattern := strings.TrimPrefix(pattern, "-")
			if matchPattern(namespace, excludePattern) {
				return false // Exclusions take precedence
			}
			continue
		}

		// Check if pattern matches
		if matchPattern(namespace, pattern) {
			enabled = true
		}
	}

	return enabled
}

// matchPattern checks if a namespace matches a pattern
// Supports wildcards (*) for pattern matching
func matchPattern(namespace, pattern string) bool {
	// Exact match or wildcard-all
	if pattern == "*" || pattern == namespace {
		return true
	}

	// Pattern with wildcard
	if strings.Contains(pattern, "*") {
		// Replace * with .* for regex-like matching, but keep it simple
		// Convert pattern to prefix/suffix matching
		if strings.HasSuffix(pattern, "*") {
			prefix := strings.TrimSuffix(pattern, "*")
			return strings.HasPrefix(namespace, prefix)
		}
		if strings.HasPrefix(pattern, "*") {
			suffix := strings.TrimPrefix(pattern, "*")
			return strings.HasSuffix(namespace, suffix)
		}
		// Middle wildcard: split and check both parts
		parts := strings.SplitN(pattern, "*", 2)
		if len(parts) == 2 {
			prefix := parts[0]
			suffix := parts[1]
			return strings.HasPrefix(namespace, prefix) && strings.HasSuffix(namespace, suffix)
		}
	}

	return false
}
