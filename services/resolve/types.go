// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import (
	"github.com/AleutianAI/AleutianResolve/services/resolve/fixture"
	"github.com/AleutianAI/AleutianResolve/services/resolve/overload"
	"github.com/AleutianAI/AleutianResolve/services/resolve/snapshot"
)

// =============================================================================
// Universes
// =============================================================================

// UniverseInfo summarizes a loaded universe.
type UniverseInfo struct {
	// ID is the universe ID assigned at load time.
	ID string `json:"id"`

	// Name is the document name.
	Name string `json:"name"`

	Classes int `json:"classes"`
	Methods int `json:"methods"`
	Calls   int `json:"calls"`

	// LoadedAtMilli is when the universe was loaded (Unix milliseconds UTC).
	LoadedAtMilli int64 `json:"loaded_at_milli"`
}

// ListUniversesResponse is the response for GET /v1/resolve/universes.
type ListUniversesResponse struct {
	Universes []UniverseInfo `json:"universes"`
}

// =============================================================================
// Resolution
// =============================================================================

// CallRequest describes one call to resolve against a loaded universe.
type CallRequest struct {
	// ID labels the call in the result. Optional.
	ID string `json:"id"`

	// Method is the invoked method name.
	Method string `json:"method" binding:"required"`

	// Context is the class whose body contains the call.
	Context string `json:"context" binding:"required"`

	// Qualifier is the qualifier expression's type, empty when unqualified.
	Qualifier string `json:"qualifier,omitempty"`

	StaticQualifier bool     `json:"static_qualifier,omitempty"`
	StaticContext   bool     `json:"static_context,omitempty"`
	StaticImports   []string `json:"static_imports,omitempty"`

	// Args are argument type expressions. "?" marks an unknown type.
	Args []string `json:"args,omitempty"`

	// Expect is an optional expected method ID or "none".
	Expect string `json:"expect,omitempty"`
}

// Spec converts the request to a fixture call declaration.
func (r *CallRequest) Spec() *fixture.CallSpec {
	return &fixture.CallSpec{
		ID:              r.ID,
		Method:          r.Method,
		Context:         r.Context,
		Qualifier:       r.Qualifier,
		StaticQualifier: r.StaticQualifier,
		StaticContext:   r.StaticContext,
		StaticImports:   r.StaticImports,
		Args:            r.Args,
		Expect:          r.Expect,
	}
}

// BatchRequest is the request body for POST /v1/resolve/universes/:id/batch.
type BatchRequest struct {
	Calls []CallRequest `json:"calls" binding:"required,min=1,dive"`
}

// MethodInfo describes a candidate method in a result.
type MethodInfo struct {
	ID        string `json:"id"`
	Signature string `json:"signature"`
	Static    bool   `json:"static,omitempty"`
	VarArgs   bool   `json:"varargs,omitempty"`

	// Substitution renders the class type arguments, for example "{E->String}".
	Substitution string `json:"substitution,omitempty"`
}

// PhaseInfo records how many candidates a resolution pass saw and kept.
type PhaseInfo struct {
	Phase  string `json:"phase"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// ResolveResult is the outcome of resolving one call.
type ResolveResult struct {
	// CallID echoes the call ID.
	CallID string `json:"call_id,omitempty"`

	// Outcome is resolved, no_candidates, arity_mismatch or ambiguous.
	Outcome string `json:"outcome"`

	// Level is the applicability level of the survivors, when classified.
	Level string `json:"level,omitempty"`

	// Chosen is the selected method, nil unless Outcome is resolved.
	Chosen *MethodInfo `json:"chosen,omitempty"`

	// Candidates are the methods lookup produced.
	Candidates []MethodInfo `json:"candidates"`

	// Remaining are the methods left when resolution ended.
	Remaining []MethodInfo `json:"remaining"`

	// Phases lists the passes that ran.
	Phases []PhaseInfo `json:"phases"`

	// Suggestions are similar method names when lookup found nothing.
	Suggestions []string `json:"suggestions,omitempty"`

	// Expect echoes the expectation, if any.
	Expect string `json:"expect,omitempty"`

	// Pass is set when Expect is non-empty.
	Pass *bool `json:"pass,omitempty"`

	// Error is set in batch results for calls that could not be built.
	Error string `json:"error,omitempty"`
}

// ChosenID returns the chosen method ID, or fixture.ExpectNone.
func (r *ResolveResult) ChosenID() string {
	if r.Chosen == nil {
		return fixture.ExpectNone
	}
	return r.Chosen.ID
}

// BatchResponse is the response for a batch resolution.
type BatchResponse struct {
	Results    []*ResolveResult `json:"results"`
	DurationMs int64            `json:"duration_ms"`
}

// CheckReport is the result of resolving every call of a universe.
type CheckReport struct {
	Universe string           `json:"universe"`
	Total    int              `json:"total"`
	Passed   int              `json:"passed"`
	Failed   int              `json:"failed"`
	Results  []*ResolveResult `json:"results"`
}

// OK reports whether every expectation held.
func (r *CheckReport) OK() bool {
	return r.Failed == 0
}

// =============================================================================
// Snapshots
// =============================================================================

// SaveSnapshotRequest is the optional body for saving a snapshot.
type SaveSnapshotRequest struct {
	Label string `json:"label" binding:"max=200"`
}

// ListSnapshotsResponse lists snapshot metadata, newest first.
type ListSnapshotsResponse struct {
	Snapshots []*snapshot.Metadata `json:"snapshots"`
}

// LoadSnapshotResponse is returned when a snapshot is loaded as a universe.
type LoadSnapshotResponse struct {
	Universe UniverseInfo       `json:"universe"`
	Metadata *snapshot.Metadata `json:"metadata"`
}

// =============================================================================
// Common
// =============================================================================

// HealthResponse is the response for GET /v1/resolve/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Universes int    `json:"universes"`
	Snapshots bool   `json:"snapshots"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}

func methodInfo(c *overload.Candidate) MethodInfo {
	m := c.Method
	info := MethodInfo{
		ID:        m.ID,
		Signature: m.String(),
		Static:    m.Static,
		VarArgs:   m.VarArgs,
	}
	if len(c.Substitution) > 0 {
		info.Substitution = c.Substitution.String()
	}
	return info
}

func methodInfos(cands []*overload.Candidate) []MethodInfo {
	out := make([]MethodInfo, len(cands))
	for i, c := range cands {
		out[i] = methodInfo(c)
	}
	return out
}
