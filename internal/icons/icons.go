// Package icons resolves icon names stored on records to display symbols.
package icons

import (
	"sort"
	"strings"
)

// Fallback is returned for unknown names.
const Fallback = "•"

var registry = map[string]string{
	"book":      "📚",
	"calendar":  "📅",
	"camera":    "📷",
	"check":     "✅",
	"code":      "💻",
	"coffee":    "☕",
	"film":      "🎬",
	"folder":    "📁",
	"game":      "🎮",
	"garden":    "🌱",
	"guitar":    "🎸",
	"heart":     "❤️",
	"lightbulb": "💡",
	"map":       "🗺️",
	"moon":      "🌙",
	"music":     "🎵",
	"palette":   "🎨",
	"pen":       "🖊️",
	"plane":     "✈️",
	"run":       "🏃",
	"sparkles":  "✨",
	"star":      "⭐",
	"sun":       "☀️",
	"tv":        "📺",
	"wrench":    "🔧",
}

// Lookup returns the symbol for name, or Fallback. Names are matched
// case-insensitively with surrounding whitespace ignored.
func Lookup(name string) string {
	if sym, ok := registry[strings.ToLower(strings.TrimSpace(name))]; ok {
		return sym
	}
	return Fallback
}

// Known reports whether name has a registered symbol.
func Known(name string) bool {
	_, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Names lists registered icon names.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
