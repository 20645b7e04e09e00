// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package javatypes

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/AleutianAI/AleutianResolve/services/resolve/overload"
)

// ErrTypeSyntax is returned when a type expression cannot be parsed.
var ErrTypeSyntax = errors.New("type syntax error")

// TypeVars maps type variable names in scope to their parameters.
type TypeVars map[string]overload.TypeParam

// With returns a copy of v extended by params. Later names shadow earlier
// ones.
func (v TypeVars) With(params ...overload.TypeParam) TypeVars {
	out := make(TypeVars, len(v)+len(params))
	for k, p := range v {
		out[k] = p
	}
	for _, p := range params {
		out[p.Name] = p
	}
	return out
}

// ParseType parses a type expression such as "int", "String[]",
// "java.util.List<T>" or "null".
//
// Description:
//
//	Names are resolved as type variables first, then primitives, then
//	classes (qualified names, or simple names of java.lang classes).
//
// Inputs:
//
//	expr - The type expression.
//	vars - Type variables in scope. May be nil.
//
// Outputs:
//
//	overload.Type - The parsed type.
//	error - ErrTypeSyntax, ErrUnknownClass or ErrTypeArgCount.
func (u *Universe) ParseType(expr string, vars TypeVars) (overload.Type, error) {
	t, varargs, err := u.ParseParam(expr, vars)
	if err != nil {
		return nil, err
	}
	if varargs {
		return nil, fmt.Errorf("%w: %q: '...' is only allowed on a parameter", ErrTypeSyntax, expr)
	}
	return t, nil
}

// ParseParam parses a parameter type, which may end in "...". The result
// for "T..." is the array type T[] with varargs set.
func (u *Universe) ParseParam(expr string, vars TypeVars) (overload.Type, bool, error) {
	p := &typeParser{u: u, vars: vars, src: expr, toks: tokenize(expr)}
	t, err := p.parseType()
	if err != nil {
		return nil, false, err
	}
	varargs := false
	if p.peek() == "..." {
		p.next()
		t = NewArray(t)
		varargs = true
	}
	if p.peek() != "" {
		return nil, false, fmt.Errorf("%w: %q: unexpected %q", ErrTypeSyntax, expr, p.peek())
	}
	return t, varargs, nil
}

type typeParser struct {
	u    *Universe
	vars TypeVars
	src  string
	toks []string
	pos  int
}

func (p *typeParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *typeParser) next() string {
	t := p.peek()
	if t != "" {
		p.pos++
	}
	return t
}

func (p *typeParser) parseType() (overload.Type, error) {
	name := p.next()
	if name == "" || !isIdent(name) {
		return nil, fmt.Errorf("%w: %q: expected type name", ErrTypeSyntax, p.src)
	}

	var t overload.Type
	switch {
	case name == "null":
		t = Null
	case p.isVar(name):
		t = NewTypeVar(p.vars[name])
	default:
		if prim, ok := PrimitiveByName(name); ok {
			t = prim
			break
		}
		var args []overload.Type
		if p.peek() == "<" {
			p.next()
			for {
				arg, err := p.parseType()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.peek() == "," {
					p.next()
					continue
				}
				if p.next() != ">" {
					return nil, fmt.Errorf("%w: %q: expected '>'", ErrTypeSyntax, p.src)
				}
				break
			}
		}
		ct, err := p.u.ClassType(name, args...)
		if err != nil {
			return nil, err
		}
		t = ct
	}

	for p.peek() == "[" {
		p.next()
		if p.next() != "]" {
			return nil, fmt.Errorf("%w: %q: expected ']'", ErrTypeSyntax, p.src)
		}
		if t == Void || t == Null {
			return nil, fmt.Errorf("%w: %q: array of %s", ErrTypeSyntax, p.src, t)
		}
		t = NewArray(t)
	}
	return t, nil
}

func (p *typeParser) isVar(name string) bool {
	_, ok := p.vars[name]
	return ok
}

func tokenize(s string) []string {
	var toks []string
	for i := 0; i < len(s); {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case strings.HasPrefix(s[i:], "..."):
			toks = append(toks, "...")
			i += 3
		case strings.ContainsRune("<>,[]", c):
			toks = append(toks, string(c))
			i++
		default:
			j := i
			for j < len(s) && isIdentByte(s[j]) && !strings.HasPrefix(s[j:], "...") {
				j++
			}
			if j == i {
				toks = append(toks, string(c))
				i++
				continue
			}
			toks = append(toks, s[i:j])
			i = j
		}
	}
	return toks
}

func isIdentByte(b byte) bool {
	return b == '.' || b == '$' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isIdent(tok string) bool {
	if tok == "" || tok == "..." {
		return false
	}
	for i := 0; i < len(tok); i++ {
		if !isIdentByte(tok[i]) {
			return false
		}
	}
	return true
}
