// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolve is the overload resolution service.
//
// A Service holds universes built from fixture documents. Each universe
// owns a frozen class universe, a method index and a resolver. Calls are
// resolved by looking up candidates in the index and narrowing them with
// the resolver. Handlers expose the service over HTTP under /v1/resolve.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianResolve/services/resolve/config"
	"github.com/AleutianAI/AleutianResolve/services/resolve/fixture"
	"github.com/AleutianAI/AleutianResolve/services/resolve/index"
	"github.com/AleutianAI/AleutianResolve/services/resolve/overload"
	"github.com/AleutianAI/AleutianResolve/services/resolve/snapshot"
)

var tracer = otel.Tracer("aleutian.resolve.service")

// suggestionLimit bounds "did you mean" suggestions per call.
const suggestionLimit = 5

// Universe is a loaded fixture document ready for resolution.
type Universe struct {
	ID       string
	Document *fixture.Document
	Model    *fixture.Model
	Resolver *overload.Resolver
	LoadedAt time.Time
}

// Info summarizes the universe.
func (u *Universe) Info() UniverseInfo {
	stats := u.Model.Index.Stats()
	return UniverseInfo{
		ID:            u.ID,
		Name:          u.Document.Name,
		Classes:       len(u.Document.Classes),
		Methods:       stats.TotalMethods,
		Calls:         len(u.Model.Calls),
		LoadedAtMilli: u.LoadedAt.UnixMilli(),
	}
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSnapshotStore enables snapshot persistence.
func WithSnapshotStore(store *snapshot.Store) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithServiceLogger sets the logger. Default: slog.Default().
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service is the overload resolution service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Universes are immutable once loaded
//	and every resolution works on its own candidate list.
type Service struct {
	config    config.ResolverConfig
	store     *snapshot.Store
	logger    *slog.Logger
	mu        sync.RWMutex
	universes map[string]*Universe
}

// NewService creates a service with no loaded universes.
//
// Inputs:
//
//	cfg - Resolution limits.
//	opts - Optional snapshot store and logger.
//
// Outputs:
//
//	*Service - The configured service.
func NewService(cfg config.ResolverConfig, opts ...ServiceOption) *Service {
	svc := &Service{
		config:    cfg,
		logger:    slog.Default(),
		universes: make(map[string]*Universe),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SnapshotsEnabled reports whether a snapshot store is configured.
func (s *Service) SnapshotsEnabled() bool {
	return s.store != nil
}

// LoadUniverse validates and builds a document and registers it under a
// new ID.
//
// Outputs:
//
//	*Universe - The loaded universe.
//	error - fixture.ErrInvalidDocument, fixture.ErrBuild or
//	ErrTooManyUniverses.
func (s *Service) LoadUniverse(ctx context.Context, doc *fixture.Document) (*Universe, error) {
	ctx, span := tracer.Start(ctx, "Service.LoadUniverse")
	defer span.End()

	if err := fixture.Validate(doc); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.mu.RLock()
	count := len(s.universes)
	s.mu.RUnlock()
	if s.config.MaxUniverses > 0 && count >= s.config.MaxUniverses {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManyUniverses, s.config.MaxUniverses)
	}

	model, err := fixture.Build(ctx, doc,
		index.WithMaxMethods(s.config.MaxMethods),
		index.WithMaxCandidates(s.config.MaxCandidates),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	resolver, err := overload.NewResolver(model.Universe, overload.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("creating resolver: %w", err)
	}

	u := &Universe{
		ID:       uuid.NewString(),
		Document: doc,
		Model:    model,
		Resolver: resolver,
		LoadedAt: time.Now(),
	}

	s.mu.Lock()
	if s.config.MaxUniverses > 0 && len(s.universes) >= s.config.MaxUniverses {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManyUniverses, s.config.MaxUniverses)
	}
	s.universes[u.ID] = u
	universesLoaded.Set(float64(len(s.universes)))
	s.mu.Unlock()

	span.SetAttributes(
		attribute.String("universe.id", u.ID),
		attribute.String("universe.name", doc.Name),
	)
	s.logger.Info("universe loaded",
		slog.String("universe_id", u.ID),
		slog.String("name", doc.Name),
		slog.Int("classes", len(doc.Classes)),
		slog.Int("calls", len(model.Calls)),
	)
	return u, nil
}

// GetUniverse returns a loaded universe.
func (s *Service) GetUniverse(id string) (*Universe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.universes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUniverseNotFound, id)
	}
	return u, nil
}

// ListUniverses returns all loaded universes ordered by load time.
func (s *Service) ListUniverses() []UniverseInfo {
	s.mu.RLock()
	out := make([]UniverseInfo, 0, len(s.universes))
	for _, u := range s.universes {
		out = append(out, u.Info())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LoadedAtMilli != out[j].LoadedAtMilli {
			return out[i].LoadedAtMilli < out[j].LoadedAtMilli
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DeleteUniverse unloads a universe.
func (s *Service) DeleteUniverse(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.universes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUniverseNotFound, id)
	}
	delete(s.universes, id)
	universesLoaded.Set(float64(len(s.universes)))
	return nil
}

// Resolve resolves one call against a loaded universe.
//
// Description:
//
//	Builds the call site, looks up candidates in the universe's method
//	index and runs the resolver over them. When lookup finds nothing,
//	similar method names are suggested.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing.
//	universeID - The universe to resolve against.
//	call - The call declaration.
//
// Outputs:
//
//	*ResolveResult - The outcome. Ambiguity is an outcome, not an error.
//	error - ErrUniverseNotFound, fixture.ErrBuild for a malformed call, or
//	a lookup error.
func (s *Service) Resolve(ctx context.Context, universeID string, call *fixture.CallSpec) (*ResolveResult, error) {
	u, err := s.GetUniverse(universeID)
	if err != nil {
		return nil, err
	}
	site, err := fixture.BuildCall(u.Model.Universe, call)
	if err != nil {
		recordCallError()
		return nil, err
	}
	return s.resolveSite(ctx, u, site, call.Expect)
}

// ResolveBatch resolves calls concurrently.
//
// Description:
//
//	Calls run on at most BatchConcurrency goroutines. Each call gets its
//	own candidate list. A call that cannot be built or looked up yields a
//	result with Error set rather than failing the batch. Only cancellation
//	fails the batch. Results keep request order.
//
// Outputs:
//
//	[]*ResolveResult - One result per call.
//	error - ErrUniverseNotFound, ErrEmptyBatch, ErrBatchTooLarge or a
//	context error.
func (s *Service) ResolveBatch(ctx context.Context, universeID string, calls []*fixture.CallSpec) ([]*ResolveResult, error) {
	u, err := s.GetUniverse(universeID)
	if err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return nil, ErrEmptyBatch
	}
	if s.config.MaxBatchSize > 0 && len(calls) > s.config.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d calls, limit is %d", ErrBatchTooLarge, len(calls), s.config.MaxBatchSize)
	}

	ctx, span := tracer.Start(ctx, "Service.ResolveBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(calls)))

	results := make([]*ResolveResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.config.BatchConcurrency))
	for i, call := range calls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			site, err := fixture.BuildCall(u.Model.Universe, call)
			if err != nil {
				recordCallError()
				results[i] = errorResult(call, err)
				return nil
			}
			res, err := s.resolveSite(gctx, u, site, call.Expect)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if err != nil {
				results[i] = errorResult(call, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return results, nil
}

// errorResult records a call that could not be resolved. An expectation on
// such a call always fails.
func errorResult(call *fixture.CallSpec, err error) *ResolveResult {
	res := &ResolveResult{CallID: call.ID, Outcome: "error", Error: err.Error(), Expect: call.Expect}
	if call.Expect != "" {
		fail := false
		res.Pass = &fail
	}
	return res
}

// Check resolves every call declared in the universe's document and
// compares the outcome with its expectation.
func (s *Service) Check(ctx context.Context, universeID string) (*CheckReport, error) {
	u, err := s.GetUniverse(universeID)
	if err != nil {
		return nil, err
	}

	report := &CheckReport{Universe: u.Document.Name}
	if len(u.Document.Calls) == 0 {
		return report, nil
	}

	calls := make([]*fixture.CallSpec, len(u.Document.Calls))
	for i := range u.Document.Calls {
		calls[i] = &u.Document.Calls[i]
	}
	var results []*ResolveResult
	for start := 0; start < len(calls); start += s.batchChunk() {
		end := min(len(calls), start+s.batchChunk())
		chunk, err := s.ResolveBatch(ctx, universeID, calls[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, chunk...)
	}

	report.Results = results
	report.Total = len(results)
	for _, r := range results {
		if r.Pass == nil {
			continue
		}
		if *r.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
	}
	return report, nil
}

func (s *Service) batchChunk() int {
	if s.config.MaxBatchSize > 0 {
		return s.config.MaxBatchSize
	}
	return 1000
}

func (s *Service) resolveSite(ctx context.Context, u *Universe, site *index.CallSite, expect string) (*ResolveResult, error) {
	ctx, span := tracer.Start(ctx, "Service.resolveSite")
	defer span.End()
	span.SetAttributes(
		attribute.String("call.id", site.ID),
		attribute.String("call.method", site.Name),
		attribute.Int("call.args", len(site.Args)),
	)

	start := time.Now()
	candidates, err := u.Model.Index.Lookup(ctx, site)
	if err != nil {
		recordCallError()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	found := methodInfos(candidates)

	res := u.Resolver.ResolveCall(candidates, site.Call())
	result := &ResolveResult{
		CallID:     site.ID,
		Outcome:    res.Outcome.String(),
		Candidates: found,
		Remaining:  methodInfos(res.Remaining),
		Phases:     make([]PhaseInfo, len(res.Phases)),
		Expect:     expect,
	}
	for i, p := range res.Phases {
		result.Phases[i] = PhaseInfo{Phase: p.Phase, Before: p.Before, After: p.After}
	}
	if res.Level != overload.NotApplicable {
		result.Level = res.Level.String()
	}
	if res.Chosen != nil {
		chosen := methodInfo(res.Chosen)
		result.Chosen = &chosen
	}
	if res.Outcome == overload.OutcomeNoCandidates {
		suggestions, err := u.Model.Index.Suggest(ctx, site.Name, suggestionLimit)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Debug("suggest failed", slog.String("method", site.Name), slog.String("error", err.Error()))
		}
		result.Suggestions = suggestions
	}
	if expect != "" {
		pass := result.ChosenID() == expect
		result.Pass = &pass
	}

	recordCall(result, len(candidates), time.Since(start))
	span.SetAttributes(
		attribute.String("resolve.outcome", result.Outcome),
		attribute.Int("resolve.candidates", len(candidates)),
	)
	return result, nil
}

// =============================================================================
// Snapshots
// =============================================================================

// SaveSnapshot persists the document of a loaded universe.
func (s *Service) SaveSnapshot(ctx context.Context, universeID, label string) (*snapshot.Metadata, error) {
	if s.store == nil {
		return nil, ErrSnapshotsDisabled
	}
	u, err := s.GetUniverse(universeID)
	if err != nil {
		return nil, err
	}
	return s.store.Save(ctx, u.Document, label)
}

// LoadSnapshot loads a snapshot as a new universe.
func (s *Service) LoadSnapshot(ctx context.Context, snapshotID string) (*Universe, *snapshot.Metadata, error) {
	if s.store == nil {
		return nil, nil, ErrSnapshotsDisabled
	}
	doc, meta, err := s.store.Load(ctx, snapshotID)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.LoadUniverse(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	return u, meta, nil
}

// RestoreLatest loads the most recent snapshot saved under name.
func (s *Service) RestoreLatest(ctx context.Context, name string) (*Universe, *snapshot.Metadata, error) {
	if s.store == nil {
		return nil, nil, ErrSnapshotsDisabled
	}
	doc, meta, err := s.store.LoadLatest(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.LoadUniverse(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	return u, meta, nil
}

// ListSnapshots lists stored snapshots, optionally filtered by name.
func (s *Service) ListSnapshots(ctx context.Context, name string, limit int) ([]*snapshot.Metadata, error) {
	if s.store == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.store.List(ctx, name, limit)
}

// DeleteSnapshot removes a stored snapshot.
func (s *Service) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	if s.store == nil {
		return ErrSnapshotsDisabled
	}
	return s.store.Delete(ctx, snapshotID)
}
