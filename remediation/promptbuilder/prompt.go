/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package promptbuilder renders the remediation instruction template.
// Templates declare {{name}} placeholders; every placeholder must be bound
// before Build succeeds, and binding the same name twice is an error. The
// rendered text is a pure function of the template and its bindings, so two
// identical failure contexts produce byte-identical prompts.
package promptbuilder

import (
	"fmt"
	"maps"

	"gopkg.in/yaml.v3"
)

// Prompt is a template with bindable placeholders. Bind operations return a
// new Prompt; values are never mutated in place.
type Prompt struct {
	template string
	bindings map[string]binding
}

type binding interface {
	value() (string, error)
}

type unbound struct{ name string }

func (u unbound) value() (string, error) {
	return "", fmt.Errorf("unbound placeholder: %s", u.name)
}

type literal struct{ val string }

func (l literal) value() (string, error) {
	return l.val, nil
}

type yamlBinding struct{ data any }

func (y yamlBinding) value() (string, error) {
	out, err := yaml.Marshal(y.data)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML binding: %w", err)
	}
	return string(out), nil
}

// New parses a template and records its placeholders.
func New(template string) (*Prompt, error) {
	bindings := make(map[string]binding)
	if _, err := walkTemplate(template, func(name string) (string, error) {
		if _, exists := bindings[name]; !exists {
			bindings[name] = unbound{name: name}
		}
		return "", nil
	}); err != nil {
		return nil, err
	}
	return &Prompt{template: template, bindings: bindings}, nil
}

// Bind attaches a literal string value to a placeholder.
func (p *Prompt) Bind(name, value string) (*Prompt, error) {
	return p.bind(name, literal{val: value})
}

// BindYAML attaches structured data to a placeholder, rendered as YAML.
func (p *Prompt) BindYAML(name string, data any) (*Prompt, error) {
	return p.bind(name, yamlBinding{data: data})
}

func (p *Prompt) bind(name string, b binding) (*Prompt, error) {
	existing, ok := p.bindings[name]
	if !ok {
		return nil, fmt.Errorf("placeholder %q not found in template", name)
	}
	if _, isUnbound := existing.(unbound); !isUnbound {
		return nil, fmt.Errorf("placeholder %q already bound", name)
	}
	next := &Prompt{
		template: p.template,
		bindings: maps.Clone(p.bindings),
	}
	next.bindings[name] = b
	return next, nil
}

// Build renders the final prompt text, failing if any placeholder remains
// unbound.
func (p *Prompt) Build() (string, error) {
	return walkTemplate(p.template, func(name string) (string, error) {
		return p.bindings[name].value()
	})
}
