// Package jsonextract pulls a JSON object out of free-form model output.
package jsonextract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)```")

// Object returns the first JSON object found in text, compacted. It tries,
// in order: fenced code blocks, top-level balanced {...} spans, and finally
// the span from the first top-level '{' to the last '}'. Objects nested in a
// malformed object or in an array are never returned on their own, nor are
// arrays and scalars.
func Object(text string) (json.RawMessage, bool) {
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(m[1])
		if obj, ok := asObject(body); ok {
			return obj, true
		}
		if obj, ok := firstBalanced(body); ok {
			return obj, true
		}
	}

	if obj, ok := firstBalanced(text); ok {
		return obj, true
	}

	start := firstTopLevelBrace(text)
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return asObject(text[start : end+1])
	}
	return nil, false
}

// firstBalanced tries each top-level '{' in order and returns the first
// span whose braces balance (ignoring braces inside strings) and which
// parses. A span that balances but does not parse is skipped whole.
func firstBalanced(text string) (json.RawMessage, bool) {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '[':
			if end := matchPair(text, i, '[', ']'); end > 0 {
				i = end
			}
		case '{':
			end := matchBrace(text, i)
			if end < 0 {
				// everything after an unclosed '{' is inside it
				return nil, false
			}
			if obj, ok := asObject(text[i : end+1]); ok {
				return obj, true
			}
			i = end
		}
	}
	return nil, false
}

// firstTopLevelBrace returns the index of the first '{' outside any closed
// [...] span, or -1.
func firstTopLevelBrace(text string) int {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '[':
			if end := matchPair(text, i, '[', ']'); end > 0 {
				i = end
			}
		case '{':
			return i
		}
	}
	return -1
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
func matchBrace(text string, start int) int {
	return matchPair(text, start, '{', '}')
}

// matchPair returns the index of the right byte matching the left byte at
// start, skipping over JSON strings, or -1.
func matchPair(text string, start int, left, right byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case left:
			depth++
		case right:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func asObject(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !json.Valid([]byte(s)) {
		return nil, false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, false
	}
	return json.RawMessage(buf.Bytes()), true
}
