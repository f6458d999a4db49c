package agent

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON pulls a JSON object out of a model reply and unmarshals it
// into v. Replies are messy: the object may arrive bare, wrapped in a
// ```json fence, or buried in prose. The chain tries a direct parse, then
// the first fenced block, then the first balanced {...} anywhere in the
// text. Returns an error only when none of those yield valid JSON.
func ExtractJSON(text string, v any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("empty reply")
	}
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(m[1]), v); err == nil {
			return nil
		}
	}
	if obj := firstObject(text); obj != "" {
		if err := json.Unmarshal([]byte(obj), v); err == nil {
			return nil
		}
	}
	return errors.New("no JSON object in reply")
}

// firstObject finds the first balanced {...} in text. Candidate objects
// that never close are skipped in favor of later ones.
func firstObject(text string) string {
	for start := 0; start < len(text); {
		idx := strings.IndexByte(text[start:], '{')
		if idx < 0 {
			return ""
		}
		start += idx
		if end := matchBrace(text, start); end > start {
			return text[start : end+1]
		}
		start++
	}
	return ""
}

// matchBrace returns the index of the brace closing text[start], ignoring
// braces inside quoted strings, or -1 when it never closes.
func matchBrace(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString:
			if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
