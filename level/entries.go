package level

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Tnze/go-mc/level/biome"
	"github.com/Tnze/go-mc/level/block"
	"github.com/Tnze/go-mc/nbt"

	"github.com/dynamitemc/chunkstore/tag"
)

// BlockStateCodec encodes a block state as {Name, Properties}.
type BlockStateCodec struct{}

func (BlockStateCodec) Encode(s block.StateID) (tag.Tag, error) {
	if s < 0 || int(s) >= len(block.StateList) {
		return nil, fmt.Errorf("unknown block state %d", s)
	}
	b := block.StateList[s]
	out := tag.NewCompound()
	out.PutString("Name", b.ID())

	data, err := nbt.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal block properties: %w", err)
	}
	props, err := tag.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if props.Len() > 0 {
		out.Put("Properties", props)
	}
	return out, nil
}

func (BlockStateCodec) Decode(t tag.Tag) (block.StateID, error) {
	c, ok := t.(*tag.Compound)
	if !ok {
		return 0, &tag.TypeError{Want: tag.TagCompound, Got: tag.TypeOf(t)}
	}
	name := c.GetString("Name")
	b, ok := block.FromID[name]
	if !ok && !strings.Contains(name, ":") {
		b, ok = block.FromID["minecraft:"+name]
	}
	if !ok {
		return 0, fmt.Errorf("unknown block id: %q", name)
	}
	if props, ok := c.GetCompound("Properties"); ok && props.Len() > 0 {
		data, err := tag.Marshal(props)
		if err != nil {
			return 0, err
		}
		var raw nbt.RawMessage
		if err := nbt.Unmarshal(data, &raw); err != nil {
			return 0, err
		}
		// decode into a fresh value of the block's concrete type
		ptr := reflect.New(reflect.TypeOf(b))
		ptr.Elem().Set(reflect.ValueOf(b))
		if err := raw.Unmarshal(ptr.Interface()); err != nil {
			return 0, fmt.Errorf("unmarshal block properties fail: %w", err)
		}
		b = ptr.Elem().Interface().(block.Block)
	}
	s, ok := block.ToStateID[b]
	if !ok {
		return 0, fmt.Errorf("unknown block: %v", b)
	}
	return s, nil
}

// BiomeCodec encodes a biome as its namespaced id string.
type BiomeCodec struct{}

func (BiomeCodec) Encode(v biome.Type) (tag.Tag, error) {
	text, err := v.MarshalText()
	if err != nil {
		return nil, err
	}
	return tag.String(text), nil
}

func (BiomeCodec) Decode(t tag.Tag) (biome.Type, error) {
	s, ok := t.(tag.String)
	if !ok {
		return 0, &tag.TypeError{Want: tag.TagString, Got: tag.TypeOf(t)}
	}
	var v biome.Type
	if err := v.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return v, nil
}
