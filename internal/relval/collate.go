package relval

import (
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CollationBinary is the default collation: raw codepoint order, no folding.
const CollationBinary = "binary"

// CollationError reports two different explicit collation specs meeting in
// one comparison. It is a hard error, never a silent preference.
type CollationError struct {
	Left  string
	Right string
}

func (e *CollationError) Error() string {
	return fmt.Sprintf("collation mismatch: %q vs %q", e.Left, e.Right)
}

// TypeError reports a comparison between kinds that have no common
// comparison domain. The plan builder type-checks expressions, so hitting
// this at evaluation time means the plan and the data disagree.
type TypeError struct {
	Op    string
	Left  Kind
	Right Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type mismatch: %s not defined for %s and %s", e.Op, e.Left, e.Right)
}

// CollationContext resolves collation specs and caches collators.
//
// There is no ambient "current locale" anywhere in the core: every
// comparison that can touch strings takes one of these explicitly.
// A nil *CollationContext behaves as a binary-default context.
type CollationContext struct {
	defaultSpec string
	collators   map[string]*collate.Collator
}

// NewCollationContext creates a context whose default spec applies when
// neither compared string carries an explicit collation. Pass
// CollationBinary (or "") for plain codepoint ordering.
func NewCollationContext(defaultSpec string) *CollationContext {
	if defaultSpec == "" {
		defaultSpec = CollationBinary
	}
	return &CollationContext{
		defaultSpec: defaultSpec,
		collators:   make(map[string]*collate.Collator),
	}
}

// Default returns the context's default collation spec.
func (c *CollationContext) Default() string {
	if c == nil {
		return CollationBinary
	}
	return c.defaultSpec
}

// Resolve applies the collation assignment rules to one comparison:
//
//   - both sides explicit and different: CollationError
//   - exactly one side explicit: that spec governs both
//   - neither side explicit: the context default governs
//
// "Explicit" means a non-empty, non-binary spec on the String value.
func (c *CollationContext) Resolve(a, b String) (string, error) {
	ea, eb := explicitSpec(a.Collation), explicitSpec(b.Collation)
	switch {
	case ea != "" && eb != "":
		if ea != eb {
			return "", &CollationError{Left: ea, Right: eb}
		}
		return ea, nil
	case ea != "":
		return ea, nil
	case eb != "":
		return eb, nil
	default:
		return c.Default(), nil
	}
}

func explicitSpec(spec string) string {
	if spec == "" || spec == CollationBinary {
		return ""
	}
	return spec
}

// Collator returns the collator for a spec, or nil when the spec is
// binary (callers should then compare raw codepoints).
func (c *CollationContext) Collator(spec string) (*collate.Collator, error) {
	if spec == "" || spec == CollationBinary {
		return nil, nil
	}
	if c != nil {
		if col, ok := c.collators[spec]; ok {
			return col, nil
		}
	}
	col, err := buildCollator(spec)
	if err != nil {
		return nil, err
	}
	if c != nil {
		c.collators[spec] = col
	}
	return col, nil
}

// CompareStrings compares two strings under the resolved collation.
// Returns -1, 0 or 1.
func (c *CollationContext) CompareStrings(a, b String) (int, error) {
	spec, err := c.Resolve(a, b)
	if err != nil {
		return 0, err
	}
	col, err := c.Collator(spec)
	if err != nil {
		return 0, err
	}
	if col == nil {
		return strings.Compare(a.S, b.S), nil
	}
	return col.CompareString(a.S, b.S), nil
}

// SortKey returns a byte string whose bytewise order matches the
// collation order of s under spec. Used by the group-key encoder so that
// hashing and comparison agree on string sameness.
func (c *CollationContext) SortKey(spec, s string) ([]byte, error) {
	col, err := c.Collator(spec)
	if err != nil {
		return nil, err
	}
	if col == nil {
		return []byte(s), nil
	}
	var buf collate.Buffer
	// KeyFromString copies into buf; clone so the key survives reuse.
	key := col.KeyFromString(&buf, s)
	out := make([]byte, len(key))
	copy(out, key)
	return out, nil
}

// buildCollator parses "language_tag[:attribute]" and constructs a
// collator. Supported attributes: "ci" (case-insensitive, secondary
// strength) and "cs" (case-sensitive, the tag's default).
func buildCollator(spec string) (*collate.Collator, error) {
	tagPart := spec
	attr := ""
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		tagPart, attr = spec[:i], spec[i+1:]
	}
	tag, err := language.Parse(tagPart)
	if err != nil {
		return nil, fmt.Errorf("invalid collation %q: %w", spec, err)
	}
	var opts []collate.Option
	switch attr {
	case "":
		// tag default
	case "ci":
		opts = append(opts, collate.IgnoreCase)
	case "cs":
		// explicit case-sensitive, same as tag default
	default:
		return nil, fmt.Errorf("invalid collation %q: unknown attribute %q", spec, attr)
	}
	return collate.New(tag, opts...), nil
}
