package storage

import (
	"encoding/json"
	"fmt"
)

// encodeTokens serializes a token list for a TEXT column. Tokens may contain
// any character, so a JSON array is used rather than a separator.
func encodeTokens(tokens []string) (string, error) {
	if tokens == nil {
		tokens = []string{}
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeTokens reverses encodeTokens. An empty array decodes to a non-nil
// empty slice.
func decodeTokens(s string) ([]string, error) {
	tokens := []string{}
	if err := json.Unmarshal([]byte(s), &tokens); err != nil {
		return nil, fmt.Errorf("invalid token data: %w", err)
	}
	return tokens, nil
}
