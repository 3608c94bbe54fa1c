package types

import (
	"strings"
	"unicode"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

const (
	// PathSeparator joins the segments of a Path.
	PathSeparator = "."
	// ReferenceSigil prefixes scalar strings that point at another path.
	ReferenceSigil = "$"
	// ConstructorKey marks a mapping as an entity specification.
	ConstructorKey = "__init__"
)

// Path is the dot-separated address of a node in the document.
type Path struct {
	segments []string
}

// ParsePath validates a dotted path. Segments must be non-empty and must
// not contain whitespace.
func ParsePath(value string) (Path, error) {
	if value == "" {
		return Path{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("path must not be empty")
	}
	segments := strings.Split(value, PathSeparator)
	for _, segment := range segments {
		if segment == "" {
			return Path{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("path has an empty segment: " + value)
		}
		if strings.IndexFunc(segment, unicode.IsSpace) >= 0 {
			return Path{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("path segment contains whitespace: " + value)
		}
	}
	return Path{segments: segments}, nil
}

func (p Path) String() string {
	return strings.Join(p.segments, PathSeparator)
}

func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

func (p Path) IsRoot() bool {
	return len(p.segments) == 0
}

// Tail is the last segment, used as the key of an entity in its collection.
func (p Path) Tail() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

func (p Path) Child(segment string) Path {
	out := make([]string, len(p.segments), len(p.segments)+1)
	copy(out, p.segments)
	return Path{segments: append(out, segment)}
}

// JoinPath appends key to a dotted parent path; the root path is empty.
func JoinPath(parent string, key string) string {
	if parent == "" {
		return key
	}
	return parent + PathSeparator + key
}

// PathTail returns the last segment of a dotted path.
func PathTail(path string) string {
	if idx := strings.LastIndex(path, PathSeparator); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// ParseReference reports whether value is a reference and returns its
// target. A doubled sigil escapes a literal string, see UnescapeLiteral.
func ParseReference(value string) (Path, bool, error) {
	if !strings.HasPrefix(value, ReferenceSigil) {
		return Path{}, false, nil
	}
	target := value[len(ReferenceSigil):]
	if strings.HasPrefix(target, ReferenceSigil) {
		return Path{}, false, nil
	}
	path, err := ParsePath(target)
	if err != nil {
		return Path{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("malformed config reference " + value).
			WithCause(err)
	}
	return path, true, nil
}

// UnescapeLiteral turns "$$x" into "$x" and leaves other strings untouched.
func UnescapeLiteral(value string) string {
	if strings.HasPrefix(value, ReferenceSigil+ReferenceSigil) {
		return value[len(ReferenceSigil):]
	}
	return value
}
