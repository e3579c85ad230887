package tag

import "fmt"

// List is a homogeneous sequence of tags. An empty list has element type
// TagEnd until the first element is added.
type List struct {
	elem  Type
	items []Tag
}

func NewList(elem Type) *List {
	return &List{elem: elem}
}

// ListOf builds a list from tags that must share one type.
func ListOf(items ...Tag) (*List, error) {
	l := &List{}
	for _, t := range items {
		if err := l.Add(t); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (*List) Type() Type { return TagList }
func (*List) isTag()     {}

func (l *List) Elem() Type {
	if l == nil {
		return TagEnd
	}
	return l.elem
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

func (l *List) At(i int) Tag { return l.items[i] }

func (l *List) Add(t Tag) error {
	if l.elem == TagEnd {
		l.elem = t.Type()
	} else if t.Type() != l.elem {
		return fmt.Errorf("tag: cannot add %v to list of %v", t.Type(), l.elem)
	}
	l.items = append(l.items, t)
	return nil
}

func (l *List) Each(f func(i int, t Tag)) {
	if l == nil {
		return
	}
	for i, t := range l.items {
		f(i, t)
	}
}

// Compounds returns the compound elements of the list. Lists of any other
// element type yield nil.
func (l *List) Compounds() []*Compound {
	if l.Elem() != TagCompound {
		return nil
	}
	out := make([]*Compound, len(l.items))
	for i, t := range l.items {
		out[i] = t.(*Compound)
	}
	return out
}

func (l *List) Copy() Tag {
	if l == nil {
		return (*List)(nil)
	}
	c := &List{elem: l.elem, items: make([]Tag, len(l.items))}
	for i, t := range l.items {
		c.items[i] = t.Copy()
	}
	return c
}

func (l *List) equal(o *List) bool {
	if l.Len() != o.Len() {
		return false
	}
	if l.Len() > 0 && l.elem != o.elem {
		return false
	}
	for i := range l.items {
		if !Equal(l.items[i], o.items[i]) {
			return false
		}
	}
	return true
}
