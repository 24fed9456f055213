// Package models defines data structures used across the application.
// File: models/form.go
package models

import (
	"errors"
	"fmt"
	"math"

	"shareform/protocol"
)

// ErrInvalidSchema wraps every schema validation failure.
var ErrInvalidSchema = errors.New("invalid form schema")

// ----------------------- property model -----------------------

// PropertySpec is one shared field. Its initial value fixes the kind every
// later write must have.
type PropertySpec struct {
	Name    string         `json:"name"`
	Initial protocol.Value `json:"initial"`
}

// ---------------------- view-model model ----------------------

// ViewModelSpec groups the properties of one view-model.
type ViewModelSpec struct {
	Name       string         `json:"name"`
	Properties []PropertySpec `json:"properties"`
}

// ---------------------- form schema model ----------------------

// FormSchema is the registry configuration every peer of a form shares, in
// declaration order.
type FormSchema struct {
	ViewModels []ViewModelSpec `json:"viewModels"`
}

// DefaultSchema is the single text field the demo page edits.
func DefaultSchema() *FormSchema {
	return &FormSchema{
		ViewModels: []ViewModelSpec{{
			Name:       "band",
			Properties: []PropertySpec{{Name: "bandVal", Initial: protocol.String("")}},
		}},
	}
}

// Validate rejects empty names, duplicate view-models or properties, and
// properties without a usable initial value. Numbers must be finite since
// JSON has no NaN or Inf.
func (s *FormSchema) Validate() error {
	if s == nil || len(s.ViewModels) == 0 {
		return fmt.Errorf("%w: no view-models", ErrInvalidSchema)
	}
	seen := make(map[string]bool, len(s.ViewModels))
	for i, vm := range s.ViewModels {
		if vm.Name == "" {
			return fmt.Errorf("%w: view-model %d has no name", ErrInvalidSchema, i)
		}
		if seen[vm.Name] {
			return fmt.Errorf("%w: duplicate view-model %q", ErrInvalidSchema, vm.Name)
		}
		seen[vm.Name] = true

		if len(vm.Properties) == 0 {
			return fmt.Errorf("%w: view-model %q has no properties", ErrInvalidSchema, vm.Name)
		}
		props := make(map[string]bool, len(vm.Properties))
		for j, p := range vm.Properties {
			if p.Name == "" {
				return fmt.Errorf("%w: %s property %d has no name", ErrInvalidSchema, vm.Name, j)
			}
			if props[p.Name] {
				return fmt.Errorf("%w: duplicate property %s.%s", ErrInvalidSchema, vm.Name, p.Name)
			}
			props[p.Name] = true
			if !p.Initial.Valid() {
				return fmt.Errorf("%w: %s.%s has no initial value", ErrInvalidSchema, vm.Name, p.Name)
			}
			if p.Initial.Kind() == protocol.KindNumber {
				if f := p.Initial.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
					return fmt.Errorf("%w: %s.%s initial value %v is not finite", ErrInvalidSchema, vm.Name, p.Name, f)
				}
			}
		}
	}
	return nil
}

// Lookup returns the spec of vm.prop.
func (s *FormSchema) Lookup(vm, prop string) (PropertySpec, bool) {
	for _, v := range s.ViewModels {
		if v.Name != vm {
			continue
		}
		for _, p := range v.Properties {
			if p.Name == prop {
				return p, true
			}
		}
	}
	return PropertySpec{}, false
}
