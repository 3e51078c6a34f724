package department

import (
	"strings"
)

// MaxDepth is the maximum number of path segments (Main > Sub > SubSub).
const MaxDepth = 3

// TopLevelSentinel is the canonical department of apex-role users, who sit
// outside the Main>Sub>SubSub tree.
const TopLevelSentinel = "director_general"

// Path is an ordered sequence of department segments, most general first.
type Path []string

// ParsePath splits a ">"-delimited department string into trimmed segments.
// Empty segments are dropped, so "A > > B" parses the same as "A > B".
func ParsePath(s string) Path {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ">")
	path := make(Path, 0, len(parts))
	for _, p := range parts {
		if seg := strings.TrimSpace(p); seg != "" {
			path = append(path, seg)
		}
	}
	return path
}

// String renders the path as a human-readable " > "-joined string.
func (p Path) String() string {
	return strings.Join(p, " > ")
}

// Depth returns the number of segments.
func (p Path) Depth() int {
	return len(p)
}

// Prefix returns the first n segments, or the whole path if it is shorter.
func (p Path) Prefix(n int) Path {
	if n > len(p) {
		n = len(p)
	}
	return p[:n]
}

// NormalizeSegment is the single canonical segment normalization: trimmed,
// lower-cased, with internal whitespace runs collapsed to one space. Every
// department comparison in this module goes through it; the underscore-keyed
// variant seen in legacy CC data is folded into this form via Key.
func NormalizeSegment(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// Normalize returns the path with every segment in canonical form.
func (p Path) Normalize() Path {
	out := make(Path, 0, len(p))
	for _, seg := range p {
		if n := NormalizeSegment(seg); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Key returns the canonical lookup key for the path: normalized segments with
// spaces collapsed to underscores, joined by ">". Two department strings refer
// to the same node iff their keys are equal.
func (p Path) Key() string {
	segs := p.Normalize()
	keyed := make([]string, len(segs))
	for i, seg := range segs {
		keyed[i] = strings.ReplaceAll(seg, " ", "_")
	}
	return strings.Join(keyed, ">")
}

// Equal reports whether two paths refer to the same node under canonical
// normalization.
func (p Path) Equal(other Path) bool {
	return p.Key() == other.Key()
}

// HasPrefix reports whether other is an ancestor-or-self prefix of p.
func (p Path) HasPrefix(other Path) bool {
	if len(other) > len(p) {
		return false
	}
	return p.Prefix(len(other)).Key() == other.Key()
}

// Contains reports whether any segment of the path matches the given label
// under canonical normalization.
func (p Path) Contains(label string) bool {
	want := NormalizeSegment(label)
	if want == "" {
		return false
	}
	for _, seg := range p {
		if NormalizeSegment(seg) == want {
			return true
		}
	}
	return false
}

// SamePaths reports whether two raw department strings refer to the same node.
func SamePaths(a, b string) bool {
	return ParsePath(a).Equal(ParsePath(b))
}
