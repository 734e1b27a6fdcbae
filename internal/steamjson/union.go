package steamjson

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Union is a field the API emits either as a structured object or as a list
// of untyped elements (typically an empty array standing in for "no data").
// After a successful decode exactly one of Object and List is populated.
type Union[T any] struct {
	Object *T
	List   []json.RawMessage
}

func (u *Union[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: empty token", ErrUnknownUnionShape)
	}

	switch trimmed[0] {
	case '{':
		obj := new(T)
		if err := json.Unmarshal(trimmed, obj); err != nil {
			return fmt.Errorf("failed to decode union object: %w", err)
		}
		u.Object = obj
		u.List = nil
		return nil
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("failed to decode union list: %w", err)
		}
		if list == nil {
			list = []json.RawMessage{}
		}
		u.List = list
		u.Object = nil
		return nil
	}
	return fmt.Errorf("%w: leading token %q", ErrUnknownUnionShape, trimmed[0])
}

func (u Union[T]) MarshalJSON() ([]byte, error) {
	if u.Object != nil {
		return json.Marshal(u.Object)
	}
	if u.List != nil {
		return json.Marshal(u.List)
	}
	return nil, ErrEmptyUnion
}

// IsObject reports whether the structured variant is populated.
func (u Union[T]) IsObject() bool { return u.Object != nil }
