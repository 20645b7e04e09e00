// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package overload chooses the single method a Java-style call expression
// binds to when name lookup produced several candidates.
//
// The resolver runs a fixed sequence of narrowing passes over the candidate
// list: arity filtering, signature deduplication, access ranking,
// applicability classification, pairwise most-specific comparison and a
// final uniqueness collapse. After every pass a single survivor is returned
// immediately. If more than one distinct candidate survives everything the
// call is ambiguous and no method is chosen.
//
// The package never inspects types itself. All questions about types
// (assignability, boxing, substitution, inference, inheritance) are
// delegated to a TypeSystem supplied by the caller. The javatypes package
// provides the implementation used by the rest of this module.
//
// Thread Safety:
//
//	A Resolver is stateless apart from its TypeSystem and logger and is safe
//	for concurrent use. Candidates are mutable (the applicability pass tags
//	them with their level) and must belong to a single resolution at a time.
package overload
