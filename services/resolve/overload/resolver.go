// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package overload

import (
	"fmt"
	"log/slog"
)

// Phase names reported in Resolution.Phases and in logs.
const (
	PhaseArity         = "arity"
	PhaseDedup         = "dedup"
	PhaseAccess        = "access"
	PhaseArityRelaxed  = "arity_relaxed"
	PhaseApplicability = "applicability"
	PhaseSpecifics     = "specifics"
	PhaseUnique        = "unique"
)

// Outcome classifies how a resolution ended.
type Outcome int

const (
	// OutcomeResolved means exactly one method was chosen.
	OutcomeResolved Outcome = iota

	// OutcomeNoCandidates means lookup produced nothing.
	OutcomeNoCandidates

	// OutcomeArityMismatch means no candidate accepts the argument count.
	OutcomeArityMismatch

	// OutcomeAmbiguous means several distinct candidates survived.
	OutcomeAmbiguous
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeNoCandidates:
		return "no_candidates"
	case OutcomeArityMismatch:
		return "arity_mismatch"
	case OutcomeAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// PhaseStat records how many candidates a pass saw and kept.
type PhaseStat struct {
	Phase  string
	Before int
	After  int
}

// Call describes the call expression being resolved.
type Call struct {
	// Args are the argument types in order.
	Args ArgumentTypes

	// Qualifier is the class of the qualifier expression, or nil for an
	// unqualified call. It lets deduplication prefer the narrower return
	// type between unrelated supertypes of the qualifier.
	Qualifier *Class
}

// Resolution is the full result of one resolution.
type Resolution struct {
	// Chosen is the selected candidate, nil unless Outcome is OutcomeResolved.
	Chosen *Candidate

	// Outcome says how resolution ended.
	Outcome Outcome

	// Level is the best applicability level seen, when classification ran.
	Level ApplicabilityLevel

	// Remaining holds the candidates left when resolution ended.
	Remaining []*Candidate

	// Phases lists the passes that ran, in order.
	Phases []PhaseStat
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// Logger receives per-phase debug records. Default: slog.Default().
	Logger *slog.Logger
}

// ResolverOption is a functional option for configuring Resolver.
type ResolverOption func(*ResolverOptions)

// WithLogger sets the logger used for per-phase debug records.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(o *ResolverOptions) {
		o.Logger = logger
	}
}

// Resolver picks the most specific applicable candidate for a call.
type Resolver struct {
	types  TypeSystem
	logger *slog.Logger
}

// NewResolver creates a Resolver backed by types.
//
// Description:
//
//	The TypeSystem answers every type question the passes ask. It must not
//	be nil.
//
// Inputs:
//
//	types - The type system. Required.
//	opts - Optional configuration.
//
// Outputs:
//
//	*Resolver - The resolver.
//	error - ErrNilTypeSystem if types is nil.
//
// Example:
//
//	r, err := overload.NewResolver(universe, overload.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	chosen := r.Resolve(candidates, args)
func NewResolver(types TypeSystem, opts ...ResolverOption) (*Resolver, error) {
	if types == nil {
		return nil, ErrNilTypeSystem
	}
	options := ResolverOptions{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Resolver{types: types, logger: options.Logger}, nil
}

// Resolve returns the single candidate the call binds to, or nil.
//
// Description:
//
//	Shorthand for ResolveCall with an unqualified call. The input slice is
//	never modified.
//
// Inputs:
//
//	candidates - Lookup results in traversal order. Each pointer must be
//	             distinct.
//	args - The call's argument types. Nil entries are unknown types.
//
// Outputs:
//
//	*Candidate - The chosen candidate, or nil when the call is ambiguous,
//	             no candidate fits the argument count, or there are no
//	             candidates.
func (r *Resolver) Resolve(candidates []*Candidate, args ArgumentTypes) *Candidate {
	return r.ResolveCall(candidates, Call{Args: args}).Chosen
}

// ResolveCall runs every narrowing pass and reports what happened.
//
// Description:
//
//	Passes run in this order: arity (strict statics), dedup, access rank,
//	arity (relaxed), applicability, specifics, uniqueness collapse. As soon
//	as a single candidate remains it is returned. The candidate that
//	survives is always one of the input pointers.
//
// Inputs:
//
//	candidates - Lookup results in traversal order. Not modified.
//	call - Argument types and optional qualifier class.
//
// Outputs:
//
//	Resolution - The chosen candidate, outcome and per-pass statistics.
//
// Limitations:
//
//	Panics if a candidate has no method or the same candidate pointer
//	appears twice. Both are programming errors in the caller.
func (r *Resolver) ResolveCall(candidates []*Candidate, call Call) Resolution {
	res := Resolution{}
	work := make([]*Candidate, 0, len(candidates))
	seen := make(map[*Candidate]struct{}, len(candidates))
	for _, c := range candidates {
		if c == nil || c.Method == nil {
			panic(fmt.Sprintf("overload: candidate without method in %d-candidate list", len(candidates)))
		}
		if _, dup := seen[c]; dup {
			panic(fmt.Sprintf("overload: candidate %s appears twice", c))
		}
		seen[c] = struct{}{}
		work = append(work, c)
	}

	switch len(work) {
	case 0:
		res.Outcome = OutcomeNoCandidates
		return res
	case 1:
		return r.finish(res, work)
	}

	argCount := len(call.Args)

	before := len(work)
	work, matched := r.FilterArity(work, argCount, false)
	res.Phases = r.record(res.Phases, PhaseArity, before, len(work))
	if !matched {
		res.Outcome = OutcomeArityMismatch
		res.Remaining = work
		return res
	}
	if len(work) == 1 {
		return r.finish(res, work)
	}

	before = len(work)
	work = r.DeduplicateSignatures(work, call.Qualifier)
	res.Phases = r.record(res.Phases, PhaseDedup, before, len(work))
	if len(work) == 1 {
		return r.finish(res, work)
	}

	before = len(work)
	work = r.RankAccessibility(work)
	res.Phases = r.record(res.Phases, PhaseAccess, before, len(work))
	if len(work) == 1 {
		return r.finish(res, work)
	}

	before = len(work)
	work, matched = r.FilterArity(work, argCount, true)
	res.Phases = r.record(res.Phases, PhaseArityRelaxed, before, len(work))
	if !matched {
		res.Outcome = OutcomeArityMismatch
		res.Remaining = work
		return res
	}
	if len(work) == 1 {
		return r.finish(res, work)
	}

	before = len(work)
	work, level := r.ClassifyApplicability(work, call.Args)
	res.Level = level
	res.Phases = r.record(res.Phases, PhaseApplicability, before, len(work))
	if len(work) == 1 {
		return r.finish(res, work)
	}

	before = len(work)
	work = r.ResolveSpecifics(work, level, call.Args)
	res.Phases = r.record(res.Phases, PhaseSpecifics, before, len(work))
	if len(work) == 1 {
		return r.finish(res, work)
	}

	before = len(work)
	work = collapseEqual(work)
	res.Phases = r.record(res.Phases, PhaseUnique, before, len(work))
	if len(work) == 1 {
		return r.finish(res, work)
	}

	res.Outcome = OutcomeAmbiguous
	res.Remaining = work
	r.logger.Debug("overload ambiguous",
		slog.Int("remaining", len(work)),
		slog.String("level", level.String()),
	)
	return res
}

func (r *Resolver) finish(res Resolution, work []*Candidate) Resolution {
	res.Outcome = OutcomeResolved
	res.Chosen = work[0]
	res.Remaining = work
	return res
}

func (r *Resolver) record(phases []PhaseStat, phase string, before, after int) []PhaseStat {
	r.logger.Debug("overload phase",
		slog.String("phase", phase),
		slog.Int("before", before),
		slog.Int("after", after),
	)
	return append(phases, PhaseStat{Phase: phase, Before: before, After: after})
}

// collapseEqual keeps the first of each group of Equal candidates.
func collapseEqual(candidates []*Candidate) []*Candidate {
	out := candidates[:0:0]
	for _, c := range candidates {
		dup := false
		for _, kept := range out {
			if kept.Equal(c) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// removeAt deletes index i, preserving order.
func removeAt(candidates []*Candidate, i int) []*Candidate {
	copy(candidates[i:], candidates[i+1:])
	candidates[len(candidates)-1] = nil
	return candidates[:len(candidates)-1]
}

// removeCandidate deletes the first occurrence of c by identity. Absent
// candidates are ignored.
func removeCandidate(candidates []*Candidate, c *Candidate) []*Candidate {
	for i, x := range candidates {
		if x == c {
			return removeAt(candidates, i)
		}
	}
	return candidates
}

func indexOf(candidates []*Candidate, c *Candidate) int {
	for i, x := range candidates {
		if x == c {
			return i
		}
	}
	return -1
}
