package prompts

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrUnknownPlaceholder = errors.New("template placeholder has no value")
	ErrMissingPlaceholder = errors.New("required template value is empty")
)

var placeholderRE = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Value is the substitution for one placeholder.
type Value struct {
	Text     string
	Required bool
}

func Required(text string) Value { return Value{Text: text, Required: true} }
func Optional(text string) Value { return Value{Text: text} }

// Render replaces every {{name}} in tmpl in a single pass. Substituted text is
// not scanned again, so values may safely contain braces. Every placeholder
// must have an entry in vars and required entries must be non-blank; all
// violations are reported together.
func Render(tmpl string, vars map[string]Value) (string, error) {
	var errs []error
	out := placeholderRE.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderRE.FindStringSubmatch(m)[1]
		v, ok := vars[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownPlaceholder, name))
			return m
		}
		if v.Required && strings.TrimSpace(v.Text) == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingPlaceholder, name))
			return m
		}
		return v.Text
	})
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return out, nil
}
