package tag

import (
	"errors"
	"fmt"
)

// Codec converts between a Go value and its tag form.
type Codec[T any] interface {
	Encode(v T) (Tag, error)
	Decode(t Tag) (T, error)
}

// EncodeList encodes every value with codec into one list.
func EncodeList[T any](codec Codec[T], values []T) (*List, error) {
	l := &List{}
	for i, v := range values {
		t, err := codec.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		if err := l.Add(t); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// DecodeList decodes every element of l. Elements that fail to decode are
// skipped and their errors joined into the returned error, so callers may
// keep the partial result.
func DecodeList[T any](codec Codec[T], l *List) ([]T, error) {
	out := make([]T, 0, l.Len())
	var errs []error
	l.Each(func(i int, t Tag) {
		v, err := codec.Decode(t)
		if err != nil {
			errs = append(errs, fmt.Errorf("[%d]: %w", i, err))
			return
		}
		out = append(out, v)
	})
	return out, errors.Join(errs...)
}

// TypeError reports a tag of an unexpected type.
type TypeError struct {
	Want, Got Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("expected %v, got %v", e.Want, e.Got)
}

// StringCodec encodes strings as string tags.
type StringCodec struct{}

func (StringCodec) Encode(v string) (Tag, error) { return String(v), nil }

func (StringCodec) Decode(t Tag) (string, error) {
	s, ok := t.(String)
	if !ok {
		return "", &TypeError{Want: TagString, Got: TypeOf(t)}
	}
	return string(s), nil
}

// TypeOf is t.Type(), or TagEnd for a nil tag.
func TypeOf(t Tag) Type {
	if t == nil {
		return TagEnd
	}
	return t.Type()
}
