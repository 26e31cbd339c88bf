package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Status tags the outcome of a structured-output extraction, making
// repair-vs-failure an explicit branch rather than an exception path.
type Status string

// Extraction outcomes.
const (
	// StatusOK means the payload parsed directly (possibly after stripping
	// decoration such as code fences or thinking tags).
	StatusOK Status = "ok"
	// StatusRepairedPartial means the payload was recovered by repair;
	// Dropped counts elements sacrificed in the process.
	StatusRepairedPartial Status = "repaired_partial"
	// StatusUnparseable means no strategy recovered a payload.
	StatusUnparseable Status = "unparseable"
)

// snippetLimit bounds the raw diagnostic carried on unparseable output.
const snippetLimit = 200

// Extraction is the tagged result of recovering structured JSON from LLM text.
// When Status is not StatusUnparseable, JSON holds a valid document; a bare
// top-level array is wrapped as {"results": [...]}.
type Extraction struct {
	Status  Status
	JSON    []byte
	Dropped int
	Snippet string
}

// Err returns a descriptive error when the extraction failed, nil otherwise.
func (e Extraction) Err() error {
	if e.Status != StatusUnparseable {
		return nil
	}
	return &ExtractError{Snippet: e.Snippet}
}

// ExtractError reports that no repair strategy recovered a payload.
type ExtractError struct {
	Snippet string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("unable to extract JSON from model output: %q", e.Snippet)
}

var thinkingTagRe = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>`)

// Extract recovers a structured JSON document from LLM text that may be
// wrapped in reasoning tags, fenced code blocks, or truncated mid-stream.
// It never panics; all failures collapse into StatusUnparseable.
func Extract(raw string) Extraction {
	cleaned := thinkingTagRe.ReplaceAllString(raw, "")
	cleaned = CleanJSONBlock(cleaned)

	// Strategy 1: direct parse.
	if doc, ok := parseDocument(cleaned); ok {
		return Extraction{Status: StatusOK, JSON: doc}
	}

	// Strategy 2: extract the first balanced object or array.
	if segment, ok := firstBalanced(cleaned); ok {
		if doc, ok := parseDocument(segment); ok {
			return Extraction{Status: StatusOK, JSON: doc}
		}
	}

	// Strategy 3: truncation repair from the first object start.
	if start := strings.IndexByte(cleaned, '{'); start >= 0 {
		body := cleaned[start:]
		if doc, dropped, ok := repairResultsArray(body); ok {
			return Extraction{Status: StatusRepairedPartial, JSON: doc, Dropped: dropped}
		}
		if doc, ok := genericRepair(body); ok {
			return Extraction{Status: StatusRepairedPartial, JSON: doc}
		}
	}

	// Strategy 4: double-unwrap a string-quoted JSON payload.
	var quoted string
	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &quoted); err == nil && quoted != cleaned {
		inner := Extract(quoted)
		if inner.Status != StatusUnparseable {
			return inner
		}
	}

	snippet := strings.TrimSpace(raw)
	if len(snippet) > snippetLimit {
		snippet = snippet[:snippetLimit]
	}
	return Extraction{Status: StatusUnparseable, Snippet: snippet}
}

// parseDocument accepts a candidate payload, wrapping a bare array into a
// {"results": [...]} object.
func parseDocument(candidate string) ([]byte, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, false
	}
	switch candidate[0] {
	case '{':
		if json.Valid([]byte(candidate)) {
			return []byte(candidate), true
		}
	case '[':
		if json.Valid([]byte(candidate)) {
			return []byte(`{"results":` + candidate + `}`), true
		}
	}
	return nil, false
}

// firstBalanced returns the first balanced JSON object or array in s.
func firstBalanced(s string) (string, bool) {
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}
	end := scanBalanced(s, start)
	if end < 0 {
		return "", false
	}
	return s[start:end], true
}

// scanBalanced returns the index just past the balanced JSON value starting
// at start, or -1 when the value is unterminated. String-aware.
func scanBalanced(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

var resultsArrayRe = regexp.MustCompile(`"results"\s*:\s*\[`)

// repairResultsArray recovers a truncated {"results": [...]} payload by
// keeping every fully-closed element and discarding the trailing partial one.
// Sacrificing the last element beats failing the whole batch.
func repairResultsArray(body string) ([]byte, int, bool) {
	loc := resultsArrayRe.FindStringIndex(body)
	if loc == nil {
		return nil, 0, false
	}

	arrayStart := loc[1] // index just past '['
	var elements []string
	i := arrayStart
	for i < len(body) {
		// Skip separators and whitespace between elements.
		for i < len(body) && (body[i] == ',' || body[i] == ' ' || body[i] == '\n' || body[i] == '\r' || body[i] == '\t') {
			i++
		}
		if i >= len(body) || body[i] == ']' {
			break
		}
		if body[i] != '{' {
			break
		}
		end := scanBalanced(body, i)
		if end < 0 {
			// Truncated mid-element; everything from here is sacrificed.
			break
		}
		elements = append(elements, body[i:end])
		i = end
	}

	if len(elements) == 0 {
		return nil, 0, false
	}

	dropped := 0
	if strings.TrimSpace(body[i:]) != "" && !strings.HasPrefix(strings.TrimSpace(body[i:]), "]") {
		dropped = 1
	}

	doc := `{"results":[` + strings.Join(elements, ",") + `]}`
	if !json.Valid([]byte(doc)) {
		return nil, 0, false
	}
	return []byte(doc), dropped, true
}

// genericRepair patches common truncation damage: a dangling escape, an odd
// trailing quote, a trailing comma, and unbalanced brackets/braces.
func genericRepair(body string) ([]byte, bool) {
	repaired := strings.TrimSpace(body)
	if repaired == "" {
		return nil, false
	}

	if strings.HasSuffix(repaired, "\\") {
		repaired = repaired[:len(repaired)-1]
	}
	if unterminatedString(repaired) {
		repaired += `"`
	}
	repaired = strings.TrimRight(repaired, " \n\r\t")
	repaired = strings.TrimSuffix(repaired, ",")
	repaired += missingClosers(repaired)

	if !json.Valid([]byte(repaired)) {
		return nil, false
	}
	if doc, ok := parseDocument(repaired); ok {
		return doc, true
	}
	return nil, false
}

// unterminatedString reports whether s ends inside an open JSON string.
func unterminatedString(s string) bool {
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
		}
	}
	return inString
}

// missingClosers returns the closing brackets/braces needed to balance s.
func missingClosers(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	closers := make([]byte, len(stack))
	for i := range stack {
		closers[i] = stack[len(stack)-1-i]
	}
	return string(closers)
}
