package level

import (
	"errors"
	"fmt"

	"github.com/dynamitemc/chunkstore/tag"
)

// ContainerCodec converts containers to and from the
// {palette: [...], data: [L; ...]} compound of the chunk format.
type ContainerCodec[T comparable] struct {
	Entry    tag.Codec[T]
	Provider *PaletteProvider[T]
	// Default replaces palette entries that fail to decode.
	Default T
}

func (c ContainerCodec[T]) Encode(pc ReadableContainer[T]) (*tag.Compound, error) {
	s := pc.Serialize()
	palette, err := tag.EncodeList(c.Entry, s.Palette)
	if err != nil {
		return nil, fmt.Errorf("palette%w", err)
	}
	out := tag.NewCompound()
	out.Put("palette", palette)
	if s.Data != nil {
		data := make([]int64, len(s.Data))
		for i, v := range s.Data {
			data[i] = int64(v)
		}
		out.PutLongArray("data", data)
	}
	return out, nil
}

// Decode reads a container. Malformed palette entries do not stop decoding:
// they are replaced by Default and reported in the returned error along
// with the container. A nil container means nothing could be recovered.
func (c ContainerCodec[T]) Decode(t tag.Tag) (*PalettedContainer[T], error) {
	comp, ok := t.(*tag.Compound)
	if !ok {
		return nil, &tag.TypeError{Want: tag.TagCompound, Got: tag.TypeOf(t)}
	}
	pt, ok := comp.Get("palette")
	if !ok {
		return nil, errors.New("missing palette")
	}
	list, ok := pt.(*tag.List)
	if !ok {
		return nil, fmt.Errorf("palette: %w", &tag.TypeError{Want: tag.TagList, Got: pt.Type()})
	}

	var errs []error
	values := make([]T, list.Len())
	list.Each(func(i int, t tag.Tag) {
		v, err := c.Entry.Decode(t)
		if err != nil {
			errs = append(errs, fmt.Errorf("palette[%d]: %w", i, err))
			v = c.Default
		}
		values[i] = v
	})

	var data []uint64
	if raw, ok := comp.GetLongArray("data"); ok {
		data = make([]uint64, len(raw))
		for i, v := range raw {
			data[i] = uint64(v)
		}
	}
	container, err := ReadContainer(c.Provider, Serialized[T]{Palette: values, Data: data, BitsPerEntry: -1})
	if err != nil {
		return nil, errors.Join(append(errs, err)...)
	}
	return container, errors.Join(errs...)
}
