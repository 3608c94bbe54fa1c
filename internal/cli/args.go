package cli

import (
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// splitAppArgs separates positional arguments from trailing key=value
// pairs. Positional arguments must come first.
func splitAppArgs(values []string) ([]string, map[string]string, error) {
	var positional []string
	kwargs := map[string]string{}
	for _, value := range values {
		key, val, isKwarg := strings.Cut(value, "=")
		if isKwarg && key != "" {
			kwargs[key] = val
			continue
		}
		if len(kwargs) > 0 {
			return nil, nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("a key=value argument cannot be followed by a positional argument: " + value)
		}
		positional = append(positional, value)
	}
	return positional, kwargs, nil
}
