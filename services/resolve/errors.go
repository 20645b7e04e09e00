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

import "errors"

var (
	// ErrUniverseNotFound is returned when no universe has the given ID.
	ErrUniverseNotFound = errors.New("universe not found")

	// ErrTooManyUniverses is returned when loading would exceed MaxUniverses.
	ErrTooManyUniverses = errors.New("too many universes loaded")

	// ErrBatchTooLarge is returned when a batch exceeds MaxBatchSize.
	ErrBatchTooLarge = errors.New("batch too large")

	// ErrEmptyBatch is returned for a batch without calls.
	ErrEmptyBatch = errors.New("batch has no calls")

	// ErrSnapshotsDisabled is returned when no snapshot store is configured.
	ErrSnapshotsDisabled = errors.New("snapshot persistence not configured")
)
