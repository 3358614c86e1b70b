package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a response holds no brace-delimited object.
var ErrNoJSON = errors.New("no JSON object in response")

// ExtractObject returns the outermost {...} span of content, dropping any prose or
// markdown fences the model wrapped around it.
func ExtractObject(content string) (string, bool) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')

	if start < 0 || end <= start {
		return "", false
	}

	return content[start : end+1], true
}

// ParseObject decodes the outermost JSON object in content into T.
func ParseObject[T any](content string) (T, error) {
	var result T

	span, ok := ExtractObject(content)
	if !ok {
		return result, ErrNoJSON
	}

	if err := json.Unmarshal([]byte(span), &result); err != nil {
		return result, fmt.Errorf("decoding response object: %w", err)
	}

	return result, nil
}
