package shared

import (
	"bytes"
	"encoding/json"
)

// Nullable records whether a JSON field was present and whether it was null,
// so a PATCH-style body can tell "leave alone" from "clear".
type Nullable[T any] struct {
	Present bool
	Null    bool
	Value   T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Null = true
		var zero T
		n.Value = zero
		return nil
	}
	n.Null = false
	return json.Unmarshal(data, &n.Value)
}
