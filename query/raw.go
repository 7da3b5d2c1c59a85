/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docstore/errors"
)

var paramNamePattern = regexp.MustCompile(`^@[A-Za-z_][A-Za-z0-9_]*$`)

// Param binds a value to a named placeholder such as "@appId".
type Param struct {
	Name  string
	Value any
}

// Raw is native query text for the backend in use. Values are always passed
// through Params and never spliced into Text.
type Raw struct {
	Text   string
	Params []Param
}

// NewRaw returns a raw query with the given parameters.
func NewRaw(text string, params ...Param) *Raw {
	return &Raw{Text: text, Params: params}
}

// Validate checks the text is present, parameter names are well formed and
// unique, and every placeholder used in the text is bound.
func (r *Raw) Validate() error {
	if r == nil || strings.TrimSpace(r.Text) == "" {
		return errors.NewValidationError("query", "raw query text must not be blank")
	}
	seen := make(map[string]struct{}, len(r.Params))
	for _, p := range r.Params {
		if !paramNamePattern.MatchString(p.Name) {
			return errors.NewValidationError("param", fmt.Sprintf("invalid parameter name %q", p.Name))
		}
		if _, dup := seen[p.Name]; dup {
			return errors.NewValidationError("param", fmt.Sprintf("duplicate parameter %s", p.Name))
		}
		seen[p.Name] = struct{}{}
	}
	for _, name := range r.placeholders() {
		if _, ok := seen[name]; !ok {
			return errors.NewValidationError("param", fmt.Sprintf("unbound parameter %s", name))
		}
	}
	return nil
}

// Values marshals every parameter value, keyed by parameter name.
func (r *Raw) Values() (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(r.Params))
	for _, p := range r.Params {
		av, err := MarshalValue(p.Value)
		if err != nil {
			return nil, errors.NewValidationError(p.Name, err.Error())
		}
		out[p.Name] = av
	}
	return out, nil
}

// Bind rewrites every placeholder outside quoted literals with the string
// produced by replace and returns the placeholder names in order of appearance.
func (r *Raw) Bind(replace func(name string) string) (string, []string) {
	var (
		b     strings.Builder
		order []string
	)
	scanPlaceholders(r.Text, func(lit string) {
		b.WriteString(lit)
	}, func(name string) {
		order = append(order, name)
		b.WriteString(replace(name))
	})
	return b.String(), order
}

func (r *Raw) placeholders() []string {
	var names []string
	scanPlaceholders(r.Text, func(string) {}, func(name string) {
		names = append(names, name)
	})
	return names
}

// scanPlaceholders splits text into literal runs and @name placeholders.
// Placeholders inside single or double quoted literals are left untouched.
func scanPlaceholders(text string, literal func(string), placeholder func(string)) {
	var quote byte
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '@' && i+1 < len(text) && isIdentStart(text[i+1]):
			j := i + 2
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			literal(text[start:i])
			placeholder(text[i:j])
			start = j
			i = j - 1
		}
	}
	literal(text[start:])
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
