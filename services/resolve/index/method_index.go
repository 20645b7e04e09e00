// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianResolve/services/resolve/javatypes"
	"github.com/AleutianAI/AleutianResolve/services/resolve/overload"
)

// Default configuration values.
const (
	// DefaultMaxMethods is the default maximum number of methods the index
	// can hold.
	DefaultMaxMethods = 1_000_000

	// DefaultMaxCandidates is the default limit on candidates per lookup.
	DefaultMaxCandidates = 256

	// suggestCheckInterval is how often Suggest checks for cancellation.
	suggestCheckInterval = 1000
)

// Visibility is a Java access modifier.
type Visibility int

const (
	// VisibilityPublic is accessible everywhere.
	VisibilityPublic Visibility = iota

	// VisibilityProtected is accessible in the package and in subclasses.
	VisibilityProtected

	// VisibilityPackage is accessible in the declaring package only.
	VisibilityPackage

	// VisibilityPrivate is accessible inside the top-level class only.
	VisibilityPrivate
)

// String returns the modifier keyword, or "package" for the default.
func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityProtected:
		return "protected"
	case VisibilityPackage:
		return "package"
	case VisibilityPrivate:
		return "private"
	default:
		return "unknown"
	}
}

// ParseVisibility parses a modifier keyword. The empty string is public.
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "", "public":
		return VisibilityPublic, nil
	case "protected":
		return VisibilityProtected, nil
	case "package":
		return VisibilityPackage, nil
	case "private":
		return VisibilityPrivate, nil
	default:
		return VisibilityPublic, fmt.Errorf("unknown visibility %q", s)
	}
}

// Entry is a method stored in the index.
type Entry struct {
	Method     *overload.Method
	Visibility Visibility
}

// Validate checks that the entry can be indexed.
func (e *Entry) Validate() error {
	if e.Method == nil {
		return errors.New("method is nil")
	}
	if e.Method.ID == "" {
		return errors.New("method ID is empty")
	}
	if e.Method.Name == "" {
		return fmt.Errorf("method %s has no name", e.Method.ID)
	}
	if e.Method.Class == nil {
		return fmt.Errorf("method %s has no declaring class", e.Method.ID)
	}
	if e.Method.VarArgs && len(e.Method.Params) == 0 {
		return fmt.Errorf("method %s is variadic without parameters", e.Method.ID)
	}
	return nil
}

// MethodIndexOptions configures MethodIndex behavior and limits.
type MethodIndexOptions struct {
	// MaxMethods is the maximum number of methods the index can hold.
	// Default: 1,000,000
	MaxMethods int

	// MaxCandidates limits how many candidates one lookup may produce.
	// Default: 256
	MaxCandidates int
}

// DefaultMethodIndexOptions returns the default options.
func DefaultMethodIndexOptions() MethodIndexOptions {
	return MethodIndexOptions{
		MaxMethods:    DefaultMaxMethods,
		MaxCandidates: DefaultMaxCandidates,
	}
}

// MethodIndexOption is a functional option for configuring MethodIndex.
type MethodIndexOption func(*MethodIndexOptions)

// WithMaxMethods sets the maximum number of methods the index can hold.
func WithMaxMethods(max int) MethodIndexOption {
	return func(o *MethodIndexOptions) {
		o.MaxMethods = max
	}
}

// WithMaxCandidates sets the per-lookup candidate limit.
func WithMaxCandidates(max int) MethodIndexOption {
	return func(o *MethodIndexOptions) {
		o.MaxCandidates = max
	}
}

// IndexStats contains statistics about the method index.
type IndexStats struct {
	// TotalMethods is the number of methods in the index.
	TotalMethods int

	// ClassCount is the number of classes that declare at least one method.
	ClassCount int

	// NameCount is the number of distinct method names.
	NameCount int

	// StaticMethods is the number of static methods.
	StaticMethods int

	// MaxMethods is the configured maximum capacity.
	MaxMethods int
}

// MethodIndex stores declared methods and answers name lookups.
//
// The index maintains several maps:
//   - byID: primary index for unique method lookup
//   - byName: methods sharing a simple name, across all classes
//   - byClass: class name, then method name, in declaration order
//
// Thread Safety:
//
//	MethodIndex is safe for concurrent use.
type MethodIndex struct {
	mu sync.RWMutex

	universe *javatypes.Universe

	byID    map[string]*Entry
	byName  map[string][]*Entry
	byClass map[string]map[string][]*Entry

	staticCount int

	options MethodIndexOptions
}

// NewMethodIndex creates an empty index over the classes of universe.
//
// Example:
//
//	idx := index.NewMethodIndex(universe, index.WithMaxCandidates(64))
func NewMethodIndex(universe *javatypes.Universe, opts ...MethodIndexOption) *MethodIndex {
	options := DefaultMethodIndexOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &MethodIndex{
		universe: universe,
		byID:     make(map[string]*Entry),
		byName:   make(map[string][]*Entry),
		byClass:  make(map[string]map[string][]*Entry),
		options:  options,
	}
}

// Universe returns the class universe the index resolves against.
func (idx *MethodIndex) Universe() *javatypes.Universe {
	return idx.universe
}

// Add adds a single method to the index.
//
// Description:
//
//	Validates the entry, checks for duplicates and capacity, then adds the
//	entry to all maps.
//
// Inputs:
//
//	entry - The method to add. Must pass Entry.Validate().
//
// Outputs:
//
//	error - Non-nil if validation fails, the ID already exists, or the
//	        index is full.
//
// Errors:
//
//	ErrInvalidMethod - Entry failed validation
//	ErrDuplicateMethod - Method with same ID already exists
//	ErrMaxMethodsExceeded - Index is at capacity
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (idx *MethodIndex) Add(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidMethod)
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMethod, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.byID) >= idx.options.MaxMethods {
		return ErrMaxMethodsExceeded
	}
	if _, exists := idx.byID[entry.Method.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMethod, entry.Method.ID)
	}

	idx.addLocked(entry)
	return nil
}

// AddBatch adds multiple methods atomically.
//
// Description:
//
//	Validates every entry and checks for duplicates both within the batch
//	and against the index. If anything fails, NO entries are added and a
//	*BatchError lists every problem.
//
// Inputs:
//
//	entries - The methods to add.
//
// Outputs:
//
//	error - Nil on success, *BatchError or ErrMaxMethodsExceeded otherwise.
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (idx *MethodIndex) AddBatch(entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var errs []error
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		if e == nil {
			errs = append(errs, fmt.Errorf("method[%d]: %w: entry is nil", i, ErrInvalidMethod))
			continue
		}
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("method[%d]: %w: %v", i, ErrInvalidMethod, err))
			continue
		}
		if first, dup := seen[e.Method.ID]; dup {
			errs = append(errs, fmt.Errorf("method[%d]: %w: %s (also at method[%d])", i, ErrDuplicateMethod, e.Method.ID, first))
			continue
		}
		seen[e.Method.ID] = i
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i, e := range entries {
		if e == nil || e.Method == nil {
			continue
		}
		if _, exists := idx.byID[e.Method.ID]; exists {
			errs = append(errs, fmt.Errorf("method[%d]: %w: %s", i, ErrDuplicateMethod, e.Method.ID))
		}
	}
	if len(errs) > 0 {
		return &BatchError{Errors: errs}
	}
	if len(idx.byID)+len(entries) > idx.options.MaxMethods {
		return ErrMaxMethodsExceeded
	}

	for _, e := range entries {
		idx.addLocked(e)
	}
	return nil
}

func (idx *MethodIndex) addLocked(e *Entry) {
	m := e.Method
	idx.byID[m.ID] = e
	idx.byName[m.Name] = append(idx.byName[m.Name], e)

	byName, ok := idx.byClass[m.Class.QualifiedName]
	if !ok {
		byName = make(map[string][]*Entry)
		idx.byClass[m.Class.QualifiedName] = byName
	}
	byName[m.Name] = append(byName[m.Name], e)

	if m.Static {
		idx.staticCount++
	}
}

// GetByID returns the entry with the given method ID.
func (idx *MethodIndex) GetByID(id string) (*Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	e, ok := idx.byID[id]
	return e, ok
}

// GetByName returns every method with the given simple name. The returned
// slice is a copy.
func (idx *MethodIndex) GetByName(name string) []*Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return copyEntries(idx.byName[name])
}

// MethodsOf returns the methods named name declared directly in className,
// in declaration order. The returned slice is a copy.
func (idx *MethodIndex) MethodsOf(className, name string) []*Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return copyEntries(idx.byClass[className][name])
}

func copyEntries(src []*Entry) []*Entry {
	if len(src) == 0 {
		return nil
	}
	out := make([]*Entry, len(src))
	copy(out, src)
	return out
}

// RemoveByClass removes every method declared in className.
//
// Outputs:
//
//	int - Number of methods removed.
func (idx *MethodIndex) RemoveByClass(className string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	byName := idx.byClass[className]
	removed := 0
	for name, entries := range byName {
		for _, e := range entries {
			delete(idx.byID, e.Method.ID)
			idx.byName[name] = removeEntry(idx.byName[name], e)
			if e.Method.Static {
				idx.staticCount--
			}
			removed++
		}
		if len(idx.byName[name]) == 0 {
			delete(idx.byName, name)
		}
	}
	delete(idx.byClass, className)
	return removed
}

func removeEntry(slice []*Entry, e *Entry) []*Entry {
	for i, x := range slice {
		if x == e {
			return append(slice[:i:i], slice[i+1:]...)
		}
	}
	return slice
}

// Clear removes every method.
func (idx *MethodIndex) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.byID = make(map[string]*Entry)
	idx.byName = make(map[string][]*Entry)
	idx.byClass = make(map[string]map[string][]*Entry)
	idx.staticCount = 0
}

// Stats returns index statistics and records the size gauge.
func (idx *MethodIndex) Stats() IndexStats {
	idx.mu.RLock()
	stats := IndexStats{
		TotalMethods:  len(idx.byID),
		ClassCount:    len(idx.byClass),
		NameCount:     len(idx.byName),
		StaticMethods: idx.staticCount,
		MaxMethods:    idx.options.MaxMethods,
	}
	idx.mu.RUnlock()

	recordIndexSize(context.Background(), stats.TotalMethods)
	return stats
}

// Names returns every distinct method name, sorted.
func (idx *MethodIndex) Names() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]string, 0, len(idx.byName))
	for n := range idx.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Suggest returns method names similar to name, best first.
//
// Description:
//
//	Used when lookup finds nothing. Names are ranked exact, prefix,
//	camelCase word, substring, then fuzzy (bounded Levenshtein distance).
//
// Inputs:
//
//	ctx - Context for cancellation.
//	name - The name that was looked up.
//	limit - Maximum number of results (0 = no limit).
//
// Outputs:
//
//	[]string - Matching names sorted by relevance.
//	error - Non-nil if the context was cancelled.
func (idx *MethodIndex) Suggest(ctx context.Context, name string, limit int) ([]string, error) {
	ctx, span := startOperationSpan(ctx, "Suggest")
	defer span.End()
	start := time.Now()

	if err := ctx.Err(); err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "suggest", time.Since(start), false)
		return nil, err
	}
	if name == "" {
		setOperationSpanResult(span, 0, true)
		return nil, nil
	}

	type scored struct {
		name  string
		score int
	}

	idx.mu.RLock()
	var results []scored
	count := 0
	for candidate := range idx.byName {
		count++
		if count%suggestCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				idx.mu.RUnlock()
				return nil, err
			}
		}
		if score := matchScore(name, candidate); score >= 0 {
			results = append(results, scored{name: candidate, score: score})
		}
	}
	idx.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score < results[j].score
		}
		return results[i].name < results[j].name
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.name
	}

	setOperationSpanResult(span, len(out), true)
	recordOperationMetrics(ctx, "suggest", time.Since(start), true)
	return out, nil
}
