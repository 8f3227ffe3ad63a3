// Package filterset models the (dimension, value) filters a user picks while
// drilling into a heatmap. Filters are AND-combined into the next breakdown
// request. Every operation returns a new slice and leaves its inputs alone.
package filterset

import (
	"slices"
	"strings"
)

const (
	pairSeparator  = ","
	keyValueJoiner = "="
	quote          = "'"
)

// Option is a single dimension filter: column Key restricted to Value.
type Option struct {
	Key   string `json:"key"   yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Delta describes a filter change triggered by a user action.
type Delta struct {
	Add    []Option `json:"add,omitempty"    yaml:"add,omitempty"`
	Remove []Option `json:"remove,omitempty" yaml:"remove,omitempty"`
}

// Concat joins the option as key=value, or key='value' when quoted.
func Concat(opt Option, quoted bool) string {
	if quoted {
		return opt.Key + keyValueJoiner + quote + opt.Value + quote
	}

	return opt.Key + keyValueJoiner + opt.Value
}

// Serialize encodes opts for a query string: quoted pairs, sorted, comma-joined.
// An empty set encodes to "".
func Serialize(opts []Option) string {
	pairs := make([]string, 0, len(opts))

	for _, opt := range opts {
		pairs = append(pairs, Concat(opt, true))
	}

	slices.Sort(pairs)

	return strings.Join(pairs, pairSeparator)
}

// Deserialize decodes a string produced by Serialize. The key ends at the
// first '=', so values may contain '='. Values cannot contain ','.
func Deserialize(raw string) []Option {
	if raw == "" {
		return []Option{}
	}

	parts := strings.Split(raw, pairSeparator)
	opts := make([]Option, 0, len(parts))

	for _, part := range parts {
		key, value, _ := strings.Cut(part, keyValueJoiner)
		opts = append(opts, Option{Key: key, Value: unquote(value)})
	}

	return opts
}

func unquote(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, quote) && strings.HasSuffix(value, quote) {
		return value[1 : len(value)-1]
	}

	return value
}

// Apply returns prev with delta applied: removals first, then additions that
// are not already present. Order of surviving options is preserved.
func Apply(prev []Option, delta Delta) []Option {
	next := make([]Option, 0, len(prev)+len(delta.Add))

	for _, opt := range prev {
		if !slices.Contains(delta.Remove, opt) {
			next = append(next, opt)
		}
	}

	for _, opt := range delta.Add {
		if !slices.Contains(next, opt) {
			next = append(next, opt)
		}
	}

	return next
}

// Key returns an order-insensitive identity for a filter set.
func Key(opts []Option) string {
	pairs := make([]string, 0, len(opts))

	for _, opt := range opts {
		pairs = append(pairs, Concat(opt, false))
	}

	slices.Sort(pairs)

	return strings.Join(pairs, pairSeparator)
}

// Equal reports whether a and b hold the same filters, ignoring order.
func Equal(a, b []Option) bool {
	return len(a) == len(b) && Key(a) == Key(b)
}

// Contains reports whether set equals one of sets.
func Contains(sets [][]Option, set []Option) bool {
	return slices.ContainsFunc(sets, func(candidate []Option) bool {
		return Equal(candidate, set)
	})
}

// Strings renders each option as key=value, e.g. for a breakdown request's filters parameter.
func Strings(opts []Option) []string {
	out := make([]string, 0, len(opts))

	for _, opt := range opts {
		out = append(out, Concat(opt, false))
	}

	return out
}
