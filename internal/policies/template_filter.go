package policies

import (
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// TemplateFilter matches lines against a regular expression anchored at
// the start of the line. "*" matches everything.
type TemplateFilter struct {
	template string
	re       *regexp.Regexp
}

func NewTemplateFilter(template string) (*TemplateFilter, error) {
	trimmed := strings.TrimSpace(template)
	if trimmed == "" || trimmed == Wildcard {
		return &TemplateFilter{template: Wildcard}, nil
	}
	re, err := regexp.Compile("^(?:" + trimmed + ")")
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid filter template: " + template).
			WithCause(err)
	}
	return &TemplateFilter{template: trimmed, re: re}, nil
}

func (f *TemplateFilter) Match(value string) bool {
	if f.re == nil {
		return true
	}
	return f.re.MatchString(value)
}

func (f *TemplateFilter) String() string {
	return f.template
}

// Matcher is satisfied by every filter in this package.
type Matcher interface {
	Match(value string) bool
}

// AnyOf joins matchers with OR. No matchers accepts every value.
func AnyOf(matchers ...Matcher) Matcher {
	return anyOf(matchers)
}

type anyOf []Matcher

func (a anyOf) Match(value string) bool {
	if len(a) == 0 {
		return true
	}
	for _, matcher := range a {
		if matcher.Match(value) {
			return true
		}
	}
	return false
}
