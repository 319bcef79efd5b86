// Package jsonpath evaluates the subset of JSONPath used by schema documents.
//
// Supported syntax: the root '$', member access '.name' or "['name']", array
// indexes '[n]' and the array wildcard '[*]'. Evaluation reports, for every match,
// the concrete path it came from, with each wildcard resolved to the index it matched.
package jsonpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
)

var ErrInvalidPath = errors.New("invalid path expression")

// SegmentKind identifies the kind of step in a path.
type SegmentKind uint8

const (
	Field SegmentKind = iota
	Index
	Wildcard
)

// Segment is one step of a path.
type Segment struct {
	Kind  SegmentKind
	Name  string
	Index int
}

func (s Segment) String() string {
	switch s.Kind {
	case Index:
		return "[" + strconv.Itoa(s.Index) + "]"
	case Wildcard:
		return "[*]"
	default:
		if isIdentifier(s.Name) {
			return "." + s.Name
		}
		return "['" + strings.ReplaceAll(s.Name, "'", `\'`) + "']"
	}
}

// Path is a compiled path expression. The zero value is the root path '$'.
type Path struct {
	segments []Segment
}

// Compile parses a path expression.
func Compile(expr string) (Path, error) {
	if !strings.HasPrefix(expr, "$") {
		return Path{}, fmt.Errorf("%w %q: must start with '$'", ErrInvalidPath, expr)
	}

	var segments []Segment
	rest := expr[1:]
	for rest != "" {
		switch rest[0] {
		case '.':
			end := 1
			for end < len(rest) && rest[end] != '.' && rest[end] != '[' {
				end++
			}
			name := rest[1:end]
			if name == "" {
				return Path{}, fmt.Errorf("%w %q: empty member name", ErrInvalidPath, expr)
			}
			if name == "*" {
				return Path{}, fmt.Errorf("%w %q: member wildcards are not supported", ErrInvalidPath, expr)
			}
			segments = append(segments, Segment{Kind: Field, Name: name})
			rest = rest[end:]
		case '[':
			seg, n, err := parseBracket(rest)
			if err != nil {
				return Path{}, fmt.Errorf("%w %q: %s", ErrInvalidPath, expr, err.Error())
			}
			segments = append(segments, seg)
			rest = rest[n:]
		default:
			return Path{}, fmt.Errorf("%w %q: unexpected character %q", ErrInvalidPath, expr, rest[0])
		}
	}

	return Path{segments: segments}, nil
}

// MustCompile is like Compile but panics if the expression cannot be parsed.
func MustCompile(expr string) Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func parseBracket(s string) (Segment, int, error) {
	if strings.HasPrefix(s, "['") {
		var sb strings.Builder
		for i := 2; i < len(s); i++ {
			switch {
			case s[i] == '\\' && i+1 < len(s):
				sb.WriteByte(s[i+1])
				i++
			case s[i] == '\'':
				if i+1 >= len(s) || s[i+1] != ']' {
					return Segment{}, 0, errors.New("unterminated quoted member")
				}
				return Segment{Kind: Field, Name: sb.String()}, i + 2, nil
			default:
				sb.WriteByte(s[i])
			}
		}
		return Segment{}, 0, errors.New("unterminated quoted member")
	}

	end := strings.IndexByte(s, ']')
	if end < 0 {
		return Segment{}, 0, errors.New("unterminated bracket")
	}
	inner := s[1:end]
	if inner == "*" {
		return Segment{Kind: Wildcard}, end + 1, nil
	}
	i, err := strconv.Atoi(inner)
	if err != nil || i < 0 {
		return Segment{}, 0, fmt.Errorf("invalid array index %q", inner)
	}
	return Segment{Kind: Index, Index: i}, end + 1, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == '.' || r == '[' || r == ']' || r == '\'' || r == ' ' {
			return false
		}
	}
	return true
}

// Segments returns the steps of the path. The slice must not be modified.
func (p Path) Segments() []Segment {
	return p.segments
}

func (p Path) Len() int {
	return len(p.segments)
}

// IsConcrete reports whether the path contains no wildcard.
func (p Path) IsConcrete() bool {
	for _, s := range p.segments {
		if s.Kind == Wildcard {
			return false
		}
	}
	return true
}

// Prefix returns the path made of the first n segments.
func (p Path) Prefix(n int) Path {
	if n >= len(p.segments) {
		return p
	}
	return Path{segments: p.segments[:n:n]}
}

// Parent returns the path without its last segment. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p.segments) == 0 {
		return p
	}
	return p.Prefix(len(p.segments) - 1)
}

// Last returns the final segment of the path.
func (p Path) Last() (Segment, bool) {
	if len(p.segments) == 0 {
		return Segment{}, false
	}
	return p.segments[len(p.segments)-1], true
}

// Child returns a new path extended with the given segment.
func (p Path) Child(s Segment) Path {
	segments := make([]Segment, len(p.segments)+1)
	copy(segments, p.segments)
	segments[len(p.segments)] = s
	return Path{segments: segments}
}

// Matches reports whether a concrete path is an instance of the expression p.
func (p Path) Matches(concrete Path) bool {
	if len(p.segments) != len(concrete.segments) {
		return false
	}
	for i, s := range p.segments {
		c := concrete.segments[i]
		switch s.Kind {
		case Wildcard:
			if c.Kind != Index {
				return false
			}
		default:
			if s != c {
				return false
			}
		}
	}
	return true
}

// CommonPrefix returns the longest shared leading segments of the given paths.
func CommonPrefix(paths ...Path) Path {
	if len(paths) == 0 {
		return Path{}
	}
	n := len(paths[0].segments)
	for _, p := range paths[1:] {
		if len(p.segments) < n {
			n = len(p.segments)
		}
		for i := 0; i < n; i++ {
			if p.segments[i] != paths[0].segments[i] {
				n = i
				break
			}
		}
	}
	return paths[0].Prefix(n)
}

func (p Path) String() string {
	var sb strings.Builder
	sb.WriteByte('$')
	for _, s := range p.segments {
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Match is a single value found by evaluating a path.
type Match struct {
	// Path is the concrete location of Value, with no wildcards.
	Path  Path
	Value *document.Value
}

// Evaluate returns all values reachable through p, in document order. Paths that do
// not exist in the document simply produce no match.
func (p Path) Evaluate(doc *document.Value) []Match {
	var matches []Match
	walk(doc, p.segments, Path{}, &matches)
	return matches
}

func walk(node *document.Value, rest []Segment, at Path, out *[]Match) {
	if node == nil {
		return
	}
	if len(rest) == 0 {
		*out = append(*out, Match{Path: at, Value: node})
		return
	}

	seg := rest[0]
	switch seg.Kind {
	case Field:
		if child, ok := node.Field(seg.Name); ok {
			walk(child, rest[1:], at.Child(seg), out)
		}
	case Index:
		if child, ok := node.Index(seg.Index); ok {
			walk(child, rest[1:], at.Child(seg), out)
		}
	case Wildcard:
		for i, child := range node.Items() {
			walk(child, rest[1:], at.Child(Segment{Kind: Index, Index: i}), out)
		}
	}
}

// Get returns the value at a concrete path.
func Get(doc *document.Value, concrete Path) (*document.Value, bool) {
	node := doc
	for _, seg := range concrete.segments {
		var ok bool
		switch seg.Kind {
		case Field:
			node, ok = node.Field(seg.Name)
		case Index:
			node, ok = node.Index(seg.Index)
		default:
			return nil, false
		}
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// Set replaces the value at a concrete path. The parent of the location must already
// exist; object members are created if missing, array items must be in range.
func Set(doc *document.Value, concrete Path, value *document.Value) error {
	last, ok := concrete.Last()
	if !ok {
		return fmt.Errorf("%w: cannot replace the document root", ErrInvalidPath)
	}
	parent, ok := Get(doc, concrete.Parent())
	if !ok {
		return fmt.Errorf("%w: parent of %s does not exist", ErrInvalidPath, concrete)
	}

	switch last.Kind {
	case Field:
		if parent.Kind() != document.Object {
			return fmt.Errorf("%w: parent of %s is a %s", ErrInvalidPath, concrete, parent.Kind())
		}
		parent.Set(last.Name, value)
		return nil
	case Index:
		return parent.SetIndex(last.Index, value)
	default:
		return fmt.Errorf("%w: %s is not concrete", ErrInvalidPath, concrete)
	}
}
