// Package featureflags evaluates static feature flags per device.
package featureflags

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Known flags.
const (
	// ExclusiveReactions keeps at most one reaction type per device and confession.
	ExclusiveReactions = "exclusive_reactions"
	// HighlightWriteBack persists recomputed highlight flags. Reads always recompute.
	HighlightWriteBack = "highlight_write_back"
)

// defaults apply when a flag is absent from the configuration.
var defaults = map[string]string{
	ExclusiveReactions: "off",
	HighlightWriteBack: "on",
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "exclusive_reactions=on,highlight_write_back=25%"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a device.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic device rollout, e.g. 25%)
func (m *Manager) Enabled(name, deviceID string) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if deviceID == "" {
		return false
	}
	return rolloutBucket(name, deviceID) < pct
}

// Names returns the configured flag names in sorted order.
func (m *Manager) Names() []string {
	out := make([]string, 0, len(m.flags))
	for k := range m.flags {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns evaluated flag status for one device.
func (m *Manager) Snapshot(deviceID string) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, deviceID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, deviceID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + deviceID))
	return int(h.Sum32() % 100)
}
