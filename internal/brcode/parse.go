package brcode

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrMalformed = errors.New("brcode: malformed payload")

// Field is one decoded TLV entry.
type Field struct {
	ID    string
	Value string
}

// Parse splits a TLV string into its top-level fields, in order.
func Parse(s string) ([]Field, error) {
	var fields []Field
	for i := 0; i < len(s); {
		if i+4 > len(s) {
			return nil, fmt.Errorf("%w: truncated header at %d", ErrMalformed, i)
		}
		id := s[i : i+2]
		n, err := strconv.Atoi(s[i+2 : i+4])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad length for tag %s", ErrMalformed, id)
		}
		start := i + 4
		if start+n > len(s) {
			return nil, fmt.Errorf("%w: tag %s overruns payload", ErrMalformed, id)
		}
		fields = append(fields, Field{ID: id, Value: s[start : start+n]})
		i = start + n
	}
	return fields, nil
}

// Lookup returns the value of the first field with id.
func Lookup(fields []Field, id string) (string, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f.Value, true
		}
	}
	return "", false
}
