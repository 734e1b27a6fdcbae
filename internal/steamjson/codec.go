// Package steamjson decodes the loosely typed JSON shapes the Steam store
// APIs emit. The same logical field may arrive as a native number or a
// numeric string, a native bool or a "true"/"false" string, or as either a
// structured object or an unrelated array. The types here absorb that
// variance at the decode boundary so the rest of the code works with plain
// integers, bools, and structs.
package steamjson

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrMalformed reports a string-coded value that cannot be parsed.
	ErrMalformed = errors.New("malformed string-coded value")
	// ErrUnknownUnionShape reports a union field that is neither an object
	// nor an array.
	ErrUnknownUnionShape = errors.New("union field is neither object nor array")
	// ErrEmptyUnion reports an attempt to marshal a union with no populated
	// variant.
	ErrEmptyUnion = errors.New("union has no populated variant")
)

// StringedInt is an integer the API declares as a JSON string. Decoding
// accepts a native number as well; encoding always re-emits the declared
// string form.
type StringedInt int64

func (v *StringedInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty token", ErrMalformed)
	}

	text := string(data)
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrMalformed, text)
		}
		text = unquoted
	} else if data[0] == '{' || data[0] == '[' || data[0] == 't' || data[0] == 'f' || data[0] == 'n' {
		return fmt.Errorf("%w: expected number or numeric string, got %q", ErrMalformed, text)
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not an integer", ErrMalformed, text)
	}
	*v = StringedInt(n)
	return nil
}

func (v StringedInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(v), 10))), nil
}

// Int returns the decoded value as a plain int64.
func (v StringedInt) Int() int64 { return int64(v) }

// StringedBool is a boolean the API declares as a "true"/"false" string.
// Decoding accepts a native bool as well; encoding always re-emits the
// declared string form.
type StringedBool bool

func (v *StringedBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", `"true"`:
		*v = true
	case "false", `"false"`:
		*v = false
	default:
		return fmt.Errorf("%w: %q is not a boolean", ErrMalformed, string(data))
	}
	return nil
}

func (v StringedBool) MarshalJSON() ([]byte, error) {
	if v {
		return []byte(`"true"`), nil
	}
	return []byte(`"false"`), nil
}

// Bool returns the decoded value as a plain bool.
func (v StringedBool) Bool() bool { return bool(v) }
