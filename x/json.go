package x

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// CanonicalJSON marshals v and rewrites it into RFC 8785 canonical form:
// sorted keys, no insignificant whitespace, ES6 number formatting.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize json: %w", err)
	}

	return canonical, nil
}

// MustCanonicalJSON is CanonicalJSON for values known to be marshalable.
func MustCanonicalJSON(v any) []byte {
	b, err := CanonicalJSON(v)
	if err != nil {
		panic(err)
	}
	return b
}
