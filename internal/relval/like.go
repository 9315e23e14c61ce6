package relval

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/quarrel/internal/relerr"
)

// Like evaluates `text LIKE pattern` under the resolved collation.
//
// Pattern syntax: `%` matches any run of characters (including empty),
// `_` matches exactly one character, and backslash escapes `\%`, `\_`
// and `\\` match the literal character.
//
// Under the binary collation, matching is exact-codepoint. Under a named
// case-insensitive collation ("...:ci") both operands are NFC-normalized
// and case-folded before matching, so `_` consumes one normalized
// codepoint; full grapheme-cluster wildcards are approximated by NFC
// composition.
//
// NULL operands are the caller's concern; Like assumes both are present.
func Like(ctx *CollationContext, text, pattern String) (TriBool, error) {
	spec, err := ctx.Resolve(text, pattern)
	if err != nil {
		return Unknown, err
	}

	s, p := text.S, pattern.S
	if explicitSpec(spec) != "" {
		if !isCaseInsensitive(spec) {
			return Unknown, relerr.New(relerr.CodeCollationConflict, "like",
				"collation %q: only binary and case-insensitive collations are supported", spec)
		}
		folder := cases.Fold()
		s = folder.String(norm.NFC.String(s))
		p = folder.String(norm.NFC.String(p))
	}

	ok, err := likeMatch([]rune(s), []rune(p), 0, 0)
	if err != nil {
		return Unknown, err
	}
	return FromBool(ok), nil
}

func isCaseInsensitive(spec string) bool {
	n := len(spec)
	return n >= 3 && spec[n-3:] == ":ci"
}

// likeMatch is a backtracking matcher over runes. `%` backtracks,
// everything else consumes exactly one rune.
func likeMatch(s, p []rune, si, pi int) (bool, error) {
	for pi < len(p) {
		switch p[pi] {
		case '%':
			// Collapse to a single wildcard then try every split point.
			for pi+1 < len(p) && p[pi+1] == '%' {
				pi++
			}
			if pi == len(p)-1 {
				return true, nil
			}
			for k := si; k <= len(s); k++ {
				ok, err := likeMatch(s, p, k, pi+1)
				if err != nil || ok {
					return ok, err
				}
			}
			return false, nil
		case '_':
			if si >= len(s) {
				return false, nil
			}
			si++
			pi++
		case '\\':
			if pi+1 >= len(p) {
				return false, relerr.New(relerr.CodeTypeMismatch, "like",
					"pattern ends in unfinished escape")
			}
			esc := p[pi+1]
			if esc != '%' && esc != '_' && esc != '\\' {
				return false, relerr.New(relerr.CodeTypeMismatch, "like",
					"pattern has invalid escape \\%c", esc)
			}
			if si >= len(s) || s[si] != esc {
				return false, nil
			}
			si++
			pi += 2
		default:
			if si >= len(s) || s[si] != p[pi] {
				return false, nil
			}
			si++
			pi++
		}
	}
	return si == len(s), nil
}
