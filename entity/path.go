package entity

import "strings"

// Path addresses a position inside a document's value. The empty path is the
// document root. Paths are treated as immutable; Append and Extend copy.
type Path []string

func (p Path) IsEmpty() bool {
	return len(p) == 0
}

func (p Path) Append(seg string) Path {
	q := make(Path, len(p)+1)
	copy(q, p)
	q[len(p)] = seg
	return q
}

func (p Path) Extend(rest Path) Path {
	if len(rest) == 0 {
		return p
	}
	q := make(Path, len(p)+len(rest))
	copy(q, p)
	copy(q[len(p):], rest)
	return q
}

func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	q := make(Path, len(p))
	copy(q, p)
	return q
}

func (p Path) Equals(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i, seg := range p {
		if o[i] != seg {
			return false
		}
	}
	return true
}

// HasPrefix reports whether o is a (possibly equal) leading subpath of p.
func (p Path) HasPrefix(o Path) bool {
	if len(o) > len(p) {
		return false
	}
	return p[:len(o)].Equals(o)
}

// String renders pointer style: "/a/b/0"; the root path renders as "/".
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	return "/" + strings.Join(p, "/")
}

// ParsePath parses the String form. Empty segments are dropped, so "/",
// "" and "//" all mean the root.
func ParsePath(s string) Path {
	var p Path
	for _, seg := range strings.Split(s, "/") {
		if seg != "" {
			p = append(p, seg)
		}
	}
	return p
}

// CanonicalIndex parses seg as a canonical base-10 array index: digits only,
// no sign, no leading zero unless the segment is exactly "0".
func CanonicalIndex(seg string) (int, bool) {
	if len(seg) == 0 {
		return 0, false
	}
	if len(seg) > 1 && seg[0] == '0' {
		return 0, false
	}
	n := 0
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		if n > (1<<31-1-int(c-'0'))/10 {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
