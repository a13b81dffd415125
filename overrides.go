package loom

// Overrides maps providers to their substitutes. Substitution happens
// during graph construction, keyed by provider identity; the graph built
// without the override is never mutated. An explicit value passed where
// needed, never process-wide state.
type Overrides struct {
	subs map[string]Provider
}

func NewOverrides() *Overrides {
	return &Overrides{subs: make(map[string]Provider)}
}

// Set substitutes replacement for original and returns the receiver for
// chaining.
func (o *Overrides) Set(original, replacement Provider) *Overrides {
	if original != nil && replacement != nil {
		o.subs[original.ID()] = replacement
	}
	return o
}

// Merge copies every substitution from other, other winning on conflict.
func (o *Overrides) Merge(other *Overrides) *Overrides {
	if other != nil {
		for id, p := range other.subs {
			o.subs[id] = p
		}
	}
	return o
}

func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.subs)
}

func (o *Overrides) lookup(p Provider) (Provider, bool) {
	if o == nil || p == nil {
		return nil, false
	}
	sub, ok := o.subs[p.ID()]
	return sub, ok
}

func (o *Overrides) clone() *Overrides {
	out := NewOverrides()
	return out.Merge(o)
}
