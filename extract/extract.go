// Package extract recovers a record block embedded in agent prose.
//
// Agents echo their latest candidate as `Updated form data: {...}` inside an
// otherwise conversational reply. Extract pulls that block out so the prose and
// the data can be shown separately. It never fails: anything it cannot parse
// is left in the text untouched.
package extract

import (
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/tbxark/formpilot/record"
)

const Marker = "Updated form data:"

var blockStart = regexp.MustCompile(regexp.QuoteMeta(Marker) + `\s*\{`)

type Result struct {
	DisplayText string
	// Record is populated from the string-valued keys of the block. It is not
	// validated; partial records are expected.
	Record *record.Record
	// Fields holds the block exactly as decoded.
	Fields map[string]any
}

// Extract finds the first marker and the shortest brace block after it that
// decodes as a JSON object. The block is decoded at most once.
func Extract(text string) Result {
	loc := blockStart.FindStringIndex(text)
	if loc == nil {
		return Result{DisplayText: text}
	}
	open := loc[1] - 1
	end := matchBrace(text, open)
	if end < 0 {
		return Result{DisplayText: text}
	}
	fields, ok := parseObject(text[open:end])
	if !ok {
		return Result{DisplayText: text}
	}
	return Result{
		DisplayText: cut(text, loc[0], end),
		Record:      fromFields(fields),
		Fields:      fields,
	}
}

// matchBrace returns the index just past the brace closing text[open], or -1.
// Braces inside JSON strings are ignored. No later close can complete a valid
// object once depth returns to zero, so the first balanced block is the only
// candidate.
func matchBrace(text string, open int) int {
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(text); i++ {
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// Format renders rec the way agents are asked to embed it.
func Format(rec any) (string, error) {
	data, err := sonic.MarshalString(rec)
	if err != nil {
		return "", err
	}
	return Marker + " " + data, nil
}

func parseObject(block string) (fields map[string]any, ok bool) {
	defer func() {
		if recover() != nil {
			fields, ok = nil, false
		}
	}()
	var v any
	if err := sonic.UnmarshalString(block, &v); err != nil {
		return nil, false
	}
	fields, ok = v.(map[string]any)
	return fields, ok
}

// cut removes text[start:end] and joins what is left with a single separator.
func cut(text string, start, end int) string {
	before := strings.TrimRightFunc(text[:start], isSpace)
	after := strings.TrimLeftFunc(text[end:], isSpace)
	if before == "" || after == "" {
		return strings.TrimSpace(before + after)
	}
	sep := " "
	if strings.Contains(text[len(before):start], "\n") || strings.Contains(text[end:len(text)-len(after)], "\n") {
		sep = "\n"
	}
	return strings.TrimSpace(before + sep + after)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func fromFields(fields map[string]any) *record.Record {
	rec := &record.Record{
		Name:  str(fields, "name"),
		Email: str(fields, "email"),
	}
	if addr, ok := fields["address"].(map[string]any); ok {
		rec.Address = record.Address{
			Line1:   str(addr, "line1"),
			Line2:   str(addr, "line2"),
			Street:  str(addr, "street"),
			City:    str(addr, "city"),
			State:   str(addr, "state"),
			Country: str(addr, "country"),
			ZipCode: str(addr, "zipCode"),
		}
	}
	return rec
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
