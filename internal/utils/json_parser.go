package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyInput is returned when there is nothing to parse
var ErrEmptyInput = errors.New("empty input")

var (
	fencedJSONRe   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.+?)\\s*```")
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRe      = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlCharsRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON decodes model output into target. Model replies are often
// wrapped in a code fence, surrounded by prose, or slightly malformed
// (trailing commas, bare keys, single quotes); each candidate is tried in turn.
func ParseAIJSON(input string, target interface{}) error {
	input = strings.TrimSpace(strings.TrimPrefix(input, "\ufeff"))
	if input == "" {
		return ErrEmptyInput
	}

	candidates := []string{input}
	if m := fencedJSONRe.FindStringSubmatch(input); len(m) > 1 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if obj := FirstJSONObject(input); obj != "" {
		candidates = append(candidates, obj)
	}

	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c), target); err == nil {
			return nil
		}
	}
	for _, c := range candidates[1:] {
		if err := json.Unmarshal([]byte(repairJSON(c)), target); err == nil {
			return nil
		}
	}
	if err := json.Unmarshal([]byte(repairJSON(input)), target); err == nil {
		return nil
	}

	return fmt.Errorf("no JSON object in model output: %s", truncate(input, 100))
}

// FirstJSONObject returns the first balanced {...} in s, honouring string
// literals, or "" if there is none.
func FirstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func repairJSON(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")
	s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = singleToDoubleQuotes(s)
	return controlCharsRe.ReplaceAllString(s, "")
}

// singleToDoubleQuotes swaps quote characters that open or close a value,
// leaving apostrophes inside words alone.
func singleToDoubleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inDouble := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '"' && (i == 0 || s[i-1] != '\\') {
			inDouble = !inDouble
		}
		if ch == '\'' && !inDouble && isQuoteBoundary(s, i) {
			b.WriteByte('"')
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func isQuoteBoundary(s string, i int) bool {
	prev := prevNonSpace(s, i)
	next := nextNonSpace(s, i)
	return prev == 0 || strings.IndexByte("{[:,", prev) >= 0 || next == 0 || strings.IndexByte("}]:,", next) >= 0
}

func prevNonSpace(s string, i int) byte {
	for j := i - 1; j >= 0; j-- {
		if s[j] != ' ' && s[j] != '\t' && s[j] != '\n' {
			return s[j]
		}
	}
	return 0
}

func nextNonSpace(s string, i int) byte {
	for j := i + 1; j < len(s); j++ {
		if s[j] != ' ' && s[j] != '\t' && s[j] != '\n' {
			return s[j]
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
