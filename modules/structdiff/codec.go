package structdiff

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
)

// The persistent artifacts are JSON. Changes are externally tagged by their
// variant name; divider definitions are untagged and discriminated by field
// shape, first matching shape wins: Delimited, then Headings, then
// Enclosures. Regexes travel as their pattern strings and are compiled, and
// refused, at decode time.

// MarshalJSON encodes a change as a single-key object keyed by its variant:
// {"Remove": i}, {"Insert": [i, s]} or {"Update": [i, s]}.
func (c Change) MarshalJSON() ([]byte, error) {
	switch c.Op {
	case OpRemove:
		return json.Marshal(map[string]int{"Remove": c.Index})
	case OpInsert:
		return json.Marshal(map[string][2]any{"Insert": {c.Index, c.Text}})
	case OpUpdate:
		return json.Marshal(map[string][2]any{"Update": {c.Index, c.Text}})
	}
	return nil, fmt.Errorf("%w: unknown change operation %d", ErrInvalidDiffFormat, c.Op)
}

// UnmarshalJSON decodes the externally tagged change form.
func (c *Change) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDiffFormat, err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("%w: change must have exactly one variant tag", ErrInvalidDiffFormat)
	}
	for tag, raw := range tagged {
		switch tag {
		case "Remove":
			if err := json.Unmarshal(raw, &c.Index); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidDiffFormat, err)
			}
			c.Op = OpRemove
			c.Text = ""
		case "Insert", "Update":
			var pair []json.RawMessage
			if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
				return fmt.Errorf("%w: %s payload must be [index, text]", ErrInvalidDiffFormat, tag)
			}
			if err := json.Unmarshal(pair[0], &c.Index); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidDiffFormat, err)
			}
			if err := json.Unmarshal(pair[1], &c.Text); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidDiffFormat, err)
			}
			if tag == "Insert" {
				c.Op = OpInsert
			} else {
				c.Op = OpUpdate
			}
		default:
			return fmt.Errorf("%w: unknown change variant %q", ErrInvalidDiffFormat, tag)
		}
	}
	return nil
}

// ParseStructDiff decodes a serialized StructDiff and restores its
// invariants: Removed and Added sorted ascending, no negative indices.
func ParseStructDiff(data []byte) (*StructDiff, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDiffFormat, err)
	}
	for _, f := range []string{"comment", "changes", "removed", "added"} {
		if _, ok := fields[f]; !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrInvalidDiffFormat, f)
		}
	}
	var d StructDiff
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDiffFormat, err)
	}
	for _, i := range d.Removed {
		if i < 0 {
			return nil, fmt.Errorf("%w: negative removed index %d", ErrInvalidDiffFormat, i)
		}
	}
	for _, i := range d.Added {
		if i < 0 {
			return nil, fmt.Errorf("%w: negative added index %d", ErrInvalidDiffFormat, i)
		}
	}
	slices.Sort(d.Removed)
	slices.Sort(d.Added)
	return &d, nil
}

// Marshal serializes a StructDiff for persistent storage.
func (d *StructDiff) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func compile(which, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &InvalidRegexError{Which: which, Pattern: pattern, Err: err}
	}
	return re, nil
}

func compileOptional(which string, pattern *string) (*regexp.Regexp, error) {
	if pattern == nil {
		return nil, nil
	}
	return compile(which, *pattern)
}

type delimitedDef struct {
	Prefix string `json:"prefix"`
	Open   string `json:"open"`
	Close  string `json:"close"`
}

type headingsDef struct {
	Fuzzed string  `json:"fuzzed"`
	Strict *string `json:"strict"`
	Indent string  `json:"indent"`
}

type enclosuresDef struct {
	Top    string `json:"top"`
	Bottom string `json:"bottom"`
}

func hasFields(raw map[string]json.RawMessage, fields ...string) bool {
	for _, f := range fields {
		if _, ok := raw[f]; !ok {
			return false
		}
	}
	return true
}

func unmarshalDivider(data []byte, which string) (Divider, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("invalid %s definition: %w", which, err)
	}
	switch {
	case hasFields(shape, "prefix", "open", "close"):
		var def delimitedDef
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("invalid %s definition: %w", which, err)
		}
		d := &Delimited{}
		var err error
		if d.Prefix, err = compile(which+" prefix", def.Prefix); err != nil {
			return nil, err
		}
		if d.Open, err = compile(which+" open", def.Open); err != nil {
			return nil, err
		}
		if d.Close, err = compile(which+" close", def.Close); err != nil {
			return nil, err
		}
		return d, nil
	case hasFields(shape, "fuzzed", "indent"):
		var def headingsDef
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("invalid %s definition: %w", which, err)
		}
		d := &Headings{Indent: def.Indent}
		var err error
		if d.Fuzzed, err = compile(which+" fuzzed", def.Fuzzed); err != nil {
			return nil, err
		}
		if d.Strict, err = compileOptional(which+" strict", def.Strict); err != nil {
			return nil, err
		}
		return d, nil
	case hasFields(shape, "top", "bottom"):
		var def enclosuresDef
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("invalid %s definition: %w", which, err)
		}
		d := &Enclosures{}
		var err error
		if d.Top, err = compile(which+" top", def.Top); err != nil {
			return nil, err
		}
		if d.Bottom, err = compile(which+" bottom", def.Bottom); err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("invalid %s definition: no divider shape matches", which)
}

func marshalDivider(d Divider) (json.RawMessage, error) {
	switch d := d.(type) {
	case *Delimited:
		return json.Marshal(&delimitedDef{
			Prefix: d.Prefix.String(),
			Open:   d.Open.String(),
			Close:  d.Close.String(),
		})
	case *Headings:
		def := &headingsDef{Fuzzed: d.Fuzzed.String(), Indent: d.Indent}
		if d.Strict != nil {
			s := d.Strict.String()
			def.Strict = &s
		}
		return json.Marshal(def)
	case *Enclosures:
		return json.Marshal(&enclosuresDef{
			Top:    d.Top.String(),
			Bottom: d.Bottom.String(),
		})
	}
	return nil, fmt.Errorf("unknown divider variant %T", d)
}

type keyDef struct {
	Fuzzed *string `json:"fuzzed"`
	Strict string  `json:"strict"`
}

type configDef struct {
	Filter   json.RawMessage `json:"filter"`
	Expander json.RawMessage `json:"expander"`
	Keys     []keyDef        `json:"keys"`
}

// ParseConfig decodes a user-supplied config, compiling every pattern.
func ParseConfig(data []byte) (*Config, error) {
	var def configDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c := &Config{}
	if len(def.Filter) != 0 && string(def.Filter) != "null" {
		filter, err := unmarshalDivider(def.Filter, "filter")
		if err != nil {
			return nil, err
		}
		c.Filter = filter
	}
	if len(def.Expander) != 0 && string(def.Expander) != "null" {
		expander, err := unmarshalDivider(def.Expander, "expander")
		if err != nil {
			return nil, err
		}
		c.Expander = expander
	}
	for _, kd := range def.Keys {
		k := &Key{}
		var err error
		if k.Fuzzed, err = compileOptional("key fuzzed", kd.Fuzzed); err != nil {
			return nil, err
		}
		if k.Strict, err = compile("key strict", kd.Strict); err != nil {
			return nil, err
		}
		c.Keys = append(c.Keys, k)
	}
	return c, nil
}

// MarshalJSON round-trips a config back to its string-pattern form.
func (c *Config) MarshalJSON() ([]byte, error) {
	def := struct {
		Filter   json.RawMessage `json:"filter"`
		Expander json.RawMessage `json:"expander"`
		Keys     []keyDef        `json:"keys"`
	}{}
	var err error
	if c.Filter != nil {
		if def.Filter, err = marshalDivider(c.Filter); err != nil {
			return nil, err
		}
	}
	if c.Expander != nil {
		if def.Expander, err = marshalDivider(c.Expander); err != nil {
			return nil, err
		}
	}
	for _, k := range c.Keys {
		kd := keyDef{Strict: k.Strict.String()}
		if k.Fuzzed != nil {
			s := k.Fuzzed.String()
			kd.Fuzzed = &s
		}
		def.Keys = append(def.Keys, kd)
	}
	return json.Marshal(&def)
}
