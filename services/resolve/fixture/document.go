// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fixture loads class universes and call sites from YAML documents.
//
// A document declares classes (with type parameters, supertypes, nesting and
// methods) and calls (with a context class, optional qualifier, argument
// types and an optional expected method). Build turns a document into a
// frozen javatypes.Universe, a populated index.MethodIndex and one
// index.CallSite per call. Watch reloads a document whenever its file
// changes.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

var tracer = otel.Tracer("aleutian.resolve.fixture")

// =============================================================================
// Limits and Sentinels
// =============================================================================

const (
	// MaxDocumentSize caps the size of a fixture document in bytes.
	MaxDocumentSize = 4 << 20

	// ExpectNone is the expectation for calls that must not resolve.
	ExpectNone = "none"

	// UnknownArg marks an argument whose type is not known.
	UnknownArg = "?"
)

var (
	// ErrInvalidDocument is returned when a document fails to parse or
	// validate.
	ErrInvalidDocument = errors.New("invalid fixture document")

	// ErrBuild is returned when a valid document describes an impossible
	// universe, for example an unknown supertype.
	ErrBuild = errors.New("fixture build failed")
)

// =============================================================================
// Document Types
// =============================================================================

// Document is the root of a fixture file.
type Document struct {
	// Name labels the universe in logs and snapshots.
	Name string `yaml:"name" json:"name"`

	// Classes are the declared classes, in any order.
	Classes []ClassSpec `yaml:"classes" json:"classes" validate:"dive"`

	// Calls are the call sites to resolve.
	Calls []CallSpec `yaml:"calls" json:"calls" validate:"dive"`
}

// ClassSpec declares a class or interface.
type ClassSpec struct {
	// Name is the qualified name. Nested classes use '$'.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Interface marks an interface.
	Interface bool `yaml:"interface,omitempty" json:"interface,omitempty"`

	// TypeParams are the class type parameters.
	TypeParams []TypeParamSpec `yaml:"type_params,omitempty" json:"type_params,omitempty" validate:"dive"`

	// Extends is the superclass type, for example "com.acme.Box<String>".
	Extends string `yaml:"extends,omitempty" json:"extends,omitempty"`

	// Implements lists superinterface types.
	Implements []string `yaml:"implements,omitempty" json:"implements,omitempty"`

	// Outer is the enclosing class name for nested classes.
	Outer string `yaml:"outer,omitempty" json:"outer,omitempty"`

	// Methods are the declared methods.
	Methods []MethodSpec `yaml:"methods,omitempty" json:"methods,omitempty" validate:"dive"`
}

// TypeParamSpec declares a type parameter with optional bounds.
type TypeParamSpec struct {
	Name   string   `yaml:"name" json:"name" validate:"required"`
	Bounds []string `yaml:"bounds,omitempty" json:"bounds,omitempty"`
}

// MethodSpec declares a method.
type MethodSpec struct {
	// Name is the simple name.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Params are parameter types. Only the last may end in "...".
	Params []string `yaml:"params,omitempty" json:"params,omitempty"`

	// Returns is the return type. Default: void.
	Returns string `yaml:"returns,omitempty" json:"returns,omitempty"`

	// TypeParams are the method's own type parameters.
	TypeParams []TypeParamSpec `yaml:"type_params,omitempty" json:"type_params,omitempty" validate:"dive"`

	Static   bool `yaml:"static,omitempty" json:"static,omitempty"`
	Abstract bool `yaml:"abstract,omitempty" json:"abstract,omitempty"`

	// Visibility is public, protected, package or private. Default: public.
	Visibility string `yaml:"visibility,omitempty" json:"visibility,omitempty" validate:"omitempty,oneof=public protected package private"`
}

// CallSpec declares a call site.
type CallSpec struct {
	// ID identifies the call. Unique within the document.
	ID string `yaml:"id" json:"id" validate:"required"`

	// Method is the invoked method name.
	Method string `yaml:"method" json:"method" validate:"required"`

	// Context is the class whose body contains the call.
	Context string `yaml:"context" json:"context" validate:"required"`

	// Qualifier is the qualifier expression's type, empty when unqualified.
	Qualifier string `yaml:"qualifier,omitempty" json:"qualifier,omitempty"`

	// StaticQualifier marks a qualifier that is a type name.
	StaticQualifier bool `yaml:"static_qualifier,omitempty" json:"static_qualifier,omitempty"`

	// StaticContext marks a call inside a static method or initializer.
	StaticContext bool `yaml:"static_context,omitempty" json:"static_context,omitempty"`

	// StaticImports lists classes whose static members are imported.
	StaticImports []string `yaml:"static_imports,omitempty" json:"static_imports,omitempty"`

	// Args are argument types. "?" marks an unknown type.
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`

	// Expect is the expected method ID, "none", or empty for no check.
	Expect string `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// MethodID returns the ID a method declared in className receives.
//
// Example:
//
//	MethodID("com.acme.C", MethodSpec{Name: "f", Params: []string{"int", "String..."}})
//	// "com.acme.C#f(int,String...)"
func MethodID(className string, m MethodSpec) string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = strings.ReplaceAll(p, " ", "")
	}
	return className + "#" + m.Name + "(" + strings.Join(params, ",") + ")"
}

// =============================================================================
// Loading
// =============================================================================

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load parses and validates a fixture document from YAML bytes.
//
// Description:
//
//	Checks struct tags with the validator, then document-level rules:
//	call IDs are unique and class names are unique.
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML.
//
// Outputs:
//
//	*Document - The validated document.
//	error - Wraps ErrInvalidDocument on any failure.
func Load(ctx context.Context, data []byte) (*Document, error) {
	_, span := tracer.Start(ctx, "fixture.Load")
	defer span.End()
	span.SetAttributes(attribute.Int("fixture.bytes", len(data)))

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("%w: document exceeds maximum size (%d > %d)", ErrInvalidDocument, len(data), MaxDocumentSize)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing YAML: %v", ErrInvalidDocument, err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("fixture.classes", len(doc.Classes)),
		attribute.Int("fixture.calls", len(doc.Calls)),
	)
	return &doc, nil
}

// LoadFile reads and loads a fixture document from disk.
func LoadFile(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	doc, err := Load(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("loading fixture %s: %w", path, err)
	}
	return doc, nil
}

// Validate checks a document that did not come through Load, such as one
// decoded from a JSON request body.
func Validate(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	classes := make(map[string]bool, len(doc.Classes))
	for _, c := range doc.Classes {
		if classes[c.Name] {
			return fmt.Errorf("%w: class %s declared twice", ErrInvalidDocument, c.Name)
		}
		classes[c.Name] = true
	}
	calls := make(map[string]bool, len(doc.Calls))
	for _, c := range doc.Calls {
		if calls[c.ID] {
			return fmt.Errorf("%w: call %s declared twice", ErrInvalidDocument, c.ID)
		}
		calls[c.ID] = true
	}
	return nil
}

// Marshal renders a document back to YAML.
func Marshal(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}
