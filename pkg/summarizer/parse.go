package summarizer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseStatements parses a model response into the list of distilled
// statements. Three shapes are accepted: the canonical
// {"statements": [...]} object, the legacy {"summarize": [...]} object,
// and a bare JSON array of strings. Anything else returns an error
// wrapping ErrMalformedResponse.
func ParseStatements(content string) ([]string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var obj struct {
		Statements []string `json:"statements"`
		Summarize  []string `json:"summarize"`
	}
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		if obj.Statements != nil {
			return clean(obj.Statements), nil
		}
		if obj.Summarize != nil {
			return clean(obj.Summarize), nil
		}
	}

	var arr []string
	if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
		return clean(arr), nil
	}

	return nil, fmt.Errorf("%w: no statements array found", ErrMalformedResponse)
}

// clean drops empty statements so consolidation never stores blank facts.
func clean(statements []string) []string {
	result := make([]string, 0, len(statements))
	for _, s := range statements {
		if strings.TrimSpace(s) == "" {
			continue
		}
		result = append(result, s)
	}
	return result
}
