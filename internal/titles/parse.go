package titles

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object found in response")

// Fields are the four texts the prompt asks the model for.
type Fields struct {
	Title                 string
	TitleTranslation      string
	ShortTitle            string
	ShortTitleTranslation string
}

const (
	keyTitle                 = "amazon_title"
	keyTitleTranslation      = "amazon_title_translation"
	keyShortTitle            = "short_title"
	keyShortTitleTranslation = "short_title_translation"
)

// ExtractJSON returns the first balanced {...} span in text. Braces inside JSON
// strings are ignored.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseFields pulls the four title fields out of a model response. Missing fields
// are empty; a response carrying none of them is an error.
func ParseFields(response string) (Fields, error) {
	raw, ok := ExtractJSON(response)
	if !ok {
		return Fields{}, ErrNoJSON
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return Fields{}, fmt.Errorf("failed to decode JSON response: %w", err)
	}

	present := 0
	field := func(key string) string {
		v, ok := obj[key]
		if !ok || v == nil {
			return ""
		}
		present++
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
		return fmt.Sprint(v)
	}

	fields := Fields{
		Title:                 field(keyTitle),
		TitleTranslation:      field(keyTitleTranslation),
		ShortTitle:            field(keyShortTitle),
		ShortTitleTranslation: field(keyShortTitleTranslation),
	}
	if present == 0 {
		return Fields{}, fmt.Errorf("response JSON has none of %s, %s, %s, %s",
			keyTitle, keyTitleTranslation, keyShortTitle, keyShortTitleTranslation)
	}
	return fields, nil
}
