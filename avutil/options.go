package avutil

import (
	"fmt"
	"maps"
	"slices"
)

// Options is a container or codec option dictionary. A nil Options is the
// empty mapping.
type Options map[string]any

// Clone returns a private copy. Cloning nil yields nil.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	return maps.Clone(o)
}

// Keys returns the option keys in sorted order.
func (o Options) Keys() []string {
	return slices.Sorted(maps.Keys(o))
}

// String renders one value the way FFmpeg option parsing expects it.
func (o Options) String(key string) (string, bool) {
	v, ok := o[key]
	if !ok {
		return "", false
	}
	switch v := v.(type) {
	case string:
		return v, true
	case bool:
		if v {
			return "1", true
		}
		return "0", true
	case Rational:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

// Strings converts every value to its string form.
func (o Options) Strings() map[string]string {
	out := make(map[string]string, len(o))
	for _, k := range o.Keys() {
		out[k], _ = o.String(k)
	}
	return out
}
