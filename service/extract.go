package service

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// ExtractYAML isolates the YAML payload from raw model output, discarding
// fenced-code markers and surrounding prose. It is a pure function. ok is
// false when nothing YAML-like was found; the caller decides the fallback.
func ExtractYAML(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", false
	}

	// Prefer a fenced block when present.
	if block, ok := fencedBlock(text); ok {
		return block, true
	}

	// No fences: trim leading prose up to the first line that looks like a
	// YAML mapping key.
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if looksLikeYAMLKey(line) {
			start = i
			break
		}
	}
	if start == -1 {
		return "", false
	}

	candidate := strings.TrimSpace(strings.Join(lines[start:], "\n"))
	if !IsWellFormed(candidate) {
		return "", false
	}
	return candidate, true
}

// fencedBlock returns the content of the first triple-backtick block, with any
// language tag stripped.
func fencedBlock(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open == -1 {
		return "", false
	}
	rest := text[open+3:]

	// Drop the language tag line. Models mislabel their fences ("json",
	// "yml"), so any single bare word counts; a YAML mapping line carries a
	// colon and survives.
	if nl := strings.Index(rest, "\n"); nl != -1 {
		tag := strings.TrimSpace(rest[:nl])
		if tag == "" || !strings.ContainsAny(tag, " \t:") {
			rest = rest[nl+1:]
		}
	}

	closeIdx := strings.Index(rest, "```")
	if closeIdx == -1 {
		// Unterminated fence; take everything after the opener.
		return strings.TrimSpace(rest), strings.TrimSpace(rest) != ""
	}
	block := strings.TrimSpace(rest[:closeIdx])
	return block, block != ""
}

func looksLikeYAMLKey(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return false
	}
	colon := strings.Index(trimmed, ":")
	if colon <= 0 {
		return false
	}
	key := trimmed[:colon]
	// A mapping key is a single bare word; prose sentences have spaces.
	return !strings.ContainsAny(key, " \t")
}

// IsWellFormed reports whether text parses as a YAML mapping.
func IsWellFormed(text string) bool {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return false
	}
	return len(doc) > 0
}
