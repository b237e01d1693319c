package node

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a path: a map key or a list index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key returns a map-key segment.
func Key(k string) Segment { return Segment{Key: k} }

// Idx returns a list-index segment.
func Idx(i int) Segment { return Segment{Index: i, IsIndex: true} }

func (s Segment) String() string {
	if s.IsIndex {
		return fmt.Sprintf("[%d]", s.Index)
	}
	return s.Key
}

// Path is a parsed lookup path.
type Path []Segment

// ParsePath parses attribute and subscript syntax into a Path.
//
//	db.driver
//	db["driver"]
//	db['driver']
//	layers[0].units
//	["odd.key"].value
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	var out Path
	i := 0
	expectKey := true
	for i < len(s) {
		switch c := s[i]; {
		case c == '[':
			seg, next, err := parseSubscript(s, i)
			if err != nil {
				return nil, err
			}
			out = append(out, seg)
			i = next
			if i < len(s) && s[i] != '.' && s[i] != '[' {
				return nil, fmt.Errorf("%w: unexpected %q after ']' in %q", ErrInvalidPath, s[i], s)
			}
			expectKey = false
		case c == '.':
			if expectKey {
				return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, s)
			}
			i++
			if i == len(s) {
				return nil, fmt.Errorf("%w: trailing '.' in %q", ErrInvalidPath, s)
			}
			expectKey = true
		case c == ']':
			return nil, fmt.Errorf("%w: unbalanced ']' in %q", ErrInvalidPath, s)
		default:
			if !expectKey {
				return nil, fmt.Errorf("%w: missing '.' before %q in %q", ErrInvalidPath, s[i:], s)
			}
			end := i
			for end < len(s) && s[end] != '.' && s[end] != '[' && s[end] != ']' {
				end++
			}
			out = append(out, Key(s[i:end]))
			i = end
			expectKey = false
		}
	}
	return out, nil
}

func parseSubscript(s string, start int) (Segment, int, error) {
	i := start + 1
	if i >= len(s) {
		return Segment{}, 0, fmt.Errorf("%w: unterminated '[' in %q", ErrInvalidPath, s)
	}
	if q := s[i]; q == '"' || q == '\'' {
		var b strings.Builder
		i++
		for ; i < len(s) && s[i] != q; i++ {
			if s[i] == '\\' && i+1 < len(s) {
				i++
			}
			b.WriteByte(s[i])
		}
		if i+1 >= len(s) || s[i+1] != ']' {
			return Segment{}, 0, fmt.Errorf("%w: unterminated subscript in %q", ErrInvalidPath, s)
		}
		return Key(b.String()), i + 2, nil
	}
	end := strings.IndexByte(s[i:], ']')
	if end < 0 {
		return Segment{}, 0, fmt.Errorf("%w: unterminated '[' in %q", ErrInvalidPath, s)
	}
	raw := s[i : i+end]
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return Segment{}, 0, fmt.Errorf("%w: bad index %q in %q", ErrInvalidPath, raw, s)
	}
	return Idx(idx), i + end + 1, nil
}

// String formats p back into path syntax, using subscripts only where a key
// cannot be written in dotted form.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		switch {
		case seg.IsIndex:
			b.WriteString(seg.String())
		case seg.Key == "" || strings.ContainsAny(seg.Key, ".[]"):
			b.WriteString("[" + strconv.Quote(seg.Key) + "]")
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.Key)
		}
	}
	return b.String()
}

func segmentsOf(keys []any) (Path, error) {
	p := make(Path, 0, len(keys))
	for _, k := range keys {
		switch v := k.(type) {
		case string:
			p = append(p, Key(v))
		case int:
			p = append(p, Idx(v))
		case Segment:
			p = append(p, v)
		default:
			return nil, fmt.Errorf("%w: unsupported segment %T", ErrInvalidPath, k)
		}
	}
	return p, nil
}
