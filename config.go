package imgcache

import (
	"sort"
	"strings"
)

// Directive is a single transform parameter, e.g. {Key: "width", Value: "300"}.
type Directive struct {
	Key   string
	Value string
}

// TransformConfig is the ordered set of directives driving one output
// variant. Serialization is canonical: directives are sorted by key, so two
// configs built in different orders always serialize identically.
type TransformConfig struct {
	directives []Directive
}

// NewTransformConfig creates a config from directives. Later directives win
// on duplicate keys.
func NewTransformConfig(directives ...Directive) TransformConfig {
	c := TransformConfig{}
	for _, d := range directives {
		c = c.With(d.Key, d.Value)
	}
	return c
}

// With returns a copy of the config with the directive set.
func (c TransformConfig) With(key, value string) TransformConfig {
	out := make([]Directive, 0, len(c.directives)+1)
	for _, d := range c.directives {
		if d.Key != key {
			out = append(out, d)
		}
	}
	out = append(out, Directive{Key: key, Value: value})
	return TransformConfig{directives: out}
}

// Get returns the value for key.
func (c TransformConfig) Get(key string) (string, bool) {
	for _, d := range c.directives {
		if d.Key == key {
			return d.Value, true
		}
	}
	return "", false
}

// Len returns the number of directives.
func (c TransformConfig) Len() int { return len(c.directives) }

// Canonical returns the stable serialized form: directives sorted by key,
// joined as "key=value" pairs. Construction order never affects the result.
func (c TransformConfig) Canonical() string {
	pairs := make([]string, len(c.directives))
	for i, d := range c.directives {
		pairs[i] = d.Key + "=" + d.Value
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

func (c TransformConfig) String() string { return c.Canonical() }
