package understanding

import (
	"fmt"
	"strings"
)

// Placeholders a profile suggestion template may reference.
const (
	VarProfileName    = "profile_name"
	VarTranscript     = "transcript"
	VarMaxLength      = "max_length"
	VarNumSuggestions = "num_suggestions"
	VarIntent         = "intent"
	VarTopic          = "topic"
	VarEmotion        = "emotion"
)

var templateVars = map[string]struct{}{
	VarProfileName:    {},
	VarTranscript:     {},
	VarMaxLength:      {},
	VarNumSuggestions: {},
	VarIntent:         {},
	VarTopic:          {},
	VarEmotion:        {},
}

// RenderTemplate substitutes {name} placeholders from vars. "{{" and "}}"
// produce literal braces. Any placeholder outside the whitelist, a name
// missing from vars, or an unbalanced brace leaves the template untouched
// and returns an error describing why.
func RenderTemplate(tmpl string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]

		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}

			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return tmpl, fmt.Errorf("unclosed placeholder at offset %d", i)
			}

			name := tmpl[i+1 : i+1+end]
			if _, ok := templateVars[name]; !ok {
				return tmpl, fmt.Errorf("unknown placeholder {%s}", name)
			}
			val, ok := vars[name]
			if !ok {
				return tmpl, fmt.Errorf("no value for placeholder {%s}", name)
			}

			b.WriteString(val)
			i += end + 1

		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return tmpl, fmt.Errorf("single '}' at offset %d", i)

		default:
			b.WriteByte(c)
		}
	}

	return b.String(), nil
}
