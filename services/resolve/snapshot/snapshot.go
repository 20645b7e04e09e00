// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot persists fixture documents in BadgerDB.
//
// A snapshot is the gzip-compressed JSON of a fixture.Document plus
// metadata. Snapshots are grouped by universe name so the latest one for
// a name can be restored after a restart.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/mod/semver"

	"github.com/AleutianAI/AleutianResolve/services/resolve/fixture"
)

// SchemaVersion is the semantic version of the stored document encoding.
// Snapshots load when their major version matches.
const SchemaVersion = "v1.0.0"

// BadgerDB key layout.
const (
	keyPrefixSnap      = "resolve:snap:"
	keyPrefixSnapIndex = "resolve:snap:index:"
	keySuffixData      = ":data"
	keySuffixMeta      = ":meta"
	keySuffixLatest    = ":latest"
)

// ErrNotFound is returned when a snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// ErrIncompatibleSchema is returned for a snapshot written with a different
// major schema version.
var ErrIncompatibleSchema = errors.New("incompatible snapshot schema")

// Metadata describes a saved snapshot.
type Metadata struct {
	// ID is SHA256(name, content hash, creation time)[:16].
	ID string `json:"id"`

	// Name is the document name.
	Name string `json:"name"`

	// NameHash is SHA256(Name)[:16], the key grouping prefix.
	NameHash string `json:"name_hash"`

	// Label is an optional human-readable label.
	Label string `json:"label,omitempty"`

	CreatedAtMilli int64  `json:"created_at_milli"`
	ClassCount     int    `json:"class_count"`
	MethodCount    int    `json:"method_count"`
	CallCount      int    `json:"call_count"`
	SchemaVersion  string `json:"schema_version"`
	CompressedSize int64  `json:"compressed_size"`

	// ContentHash is the SHA256 of the compressed payload.
	ContentHash string `json:"content_hash"`
}

// Store saves and loads fixture documents.
//
// Thread Safety:
//
//	Safe for concurrent use. BadgerDB handles its own concurrency control.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a store over an opened database.
//
// Inputs:
//
//	db - An opened BadgerDB instance. Must not be nil.
//	logger - Logger for diagnostic output. Must not be nil.
//
// Outputs:
//
//	*Store - The configured store.
//	error - Non-nil if db or logger is nil.
func NewStore(db *badger.DB, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("badger db must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Save persists a document and makes it the latest for its name.
//
// Key Schema:
//
//	resolve:snap:{nameHash}:{id}:data  → gzip(JSON(Document))
//	resolve:snap:{nameHash}:{id}:meta  → JSON(Metadata)
//	resolve:snap:{nameHash}:latest     → id
//	resolve:snap:index:{id}            → nameHash
func (s *Store) Save(ctx context.Context, doc *fixture.Document, label string) (*Metadata, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if doc == nil {
		return nil, fmt.Errorf("document must not be nil")
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}

	var compressed bytes.Buffer
	gw, err := gzip.NewWriterLevel(&compressed, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gw.Write(jsonData); err != nil {
		return nil, fmt.Errorf("compressing document: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	data := compressed.Bytes()

	created := s.now()
	contentHash := hashBytes(data)
	nameHash := NameHash(doc.Name)
	id := hashString(fmt.Sprintf("%s:%s:%d", doc.Name, contentHash, created.UnixNano()))[:16]

	methods := 0
	for _, c := range doc.Classes {
		methods += len(c.Methods)
	}
	meta := &Metadata{
		ID:             id,
		Name:           doc.Name,
		NameHash:       nameHash,
		Label:          label,
		CreatedAtMilli: created.UnixMilli(),
		ClassCount:     len(doc.Classes),
		MethodCount:    methods,
		CallCount:      len(doc.Calls),
		SchemaVersion:  SchemaVersion,
		CompressedSize: int64(len(data)),
		ContentHash:    contentHash,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(dataKey(nameHash, id), data); err != nil {
			return fmt.Errorf("storing data: %w", err)
		}
		if err := txn.Set(metaKey(nameHash, id), metaJSON); err != nil {
			return fmt.Errorf("storing metadata: %w", err)
		}
		if err := txn.Set(latestKey(nameHash), []byte(id)); err != nil {
			return fmt.Errorf("updating latest pointer: %w", err)
		}
		if err := txn.Set([]byte(keyPrefixSnapIndex+id), []byte(nameHash)); err != nil {
			return fmt.Errorf("storing reverse index: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing snapshot to badger: %w", err)
	}

	s.logger.Info("snapshot saved",
		slog.String("snapshot_id", id),
		slog.String("name", doc.Name),
		slog.Int("methods", methods),
		slog.Int64("compressed_size", meta.CompressedSize),
	)
	return meta, nil
}

// Load retrieves a snapshot by ID.
func (s *Store) Load(ctx context.Context, id string) (*fixture.Document, *Metadata, error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("ctx must not be nil")
	}
	if id == "" {
		return nil, nil, fmt.Errorf("snapshot ID must not be empty")
	}

	nameHash, err := s.readString([]byte(keyPrefixSnapIndex + id))
	if err != nil {
		return nil, nil, fmt.Errorf("looking up snapshot %s: %w", id, err)
	}
	return s.loadByKeys(nameHash, id)
}

// LoadLatest loads the most recent snapshot saved under name.
func (s *Store) LoadLatest(ctx context.Context, name string) (*fixture.Document, *Metadata, error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("ctx must not be nil")
	}

	nameHash := NameHash(name)
	id, err := s.readString(latestKey(nameHash))
	if err != nil {
		return nil, nil, fmt.Errorf("reading latest pointer for %q: %w", name, err)
	}
	return s.loadByKeys(nameHash, id)
}

// List returns snapshot metadata, newest first. An empty name lists every
// snapshot. A limit <= 0 defaults to 100.
func (s *Store) List(ctx context.Context, name string, limit int) ([]*Metadata, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if limit <= 0 {
		limit = 100
	}

	prefix := keyPrefixSnap
	if name != "" {
		prefix = keyPrefixSnap + NameHash(name) + ":"
	}

	var results []*Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !strings.HasSuffix(key, keySuffixMeta) {
				continue
			}
			var meta Metadata
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				s.logger.Warn("skipping corrupt metadata", slog.String("key", key), slog.Any("error", err))
				continue
			}
			results = append(results, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	slices.SortStableFunc(results, func(a, b *Metadata) int {
		return int(b.CreatedAtMilli - a.CreatedAtMilli)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a snapshot. The latest pointer is removed when it
// pointed at the deleted snapshot.
func (s *Store) Delete(ctx context.Context, id string) error {
	if ctx == nil {
		return fmt.Errorf("ctx must not be nil")
	}
	if id == "" {
		return fmt.Errorf("snapshot ID must not be empty")
	}

	indexKey := []byte(keyPrefixSnapIndex + id)
	nameHash, err := s.readString(indexKey)
	if err != nil {
		return fmt.Errorf("looking up snapshot %s: %w", id, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{dataKey(nameHash, id), metaKey(nameHash, id), indexKey} {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("deleting %s: %w", key, err)
			}
		}
		item, err := txn.Get(latestKey(nameHash))
		if err != nil {
			return nil
		}
		var current string
		_ = item.Value(func(val []byte) error {
			current = string(val)
			return nil
		})
		if current == id {
			if err := txn.Delete(latestKey(nameHash)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("deleting latest pointer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}

	s.logger.Info("snapshot deleted", slog.String("snapshot_id", id))
	return nil
}

func (s *Store) loadByKeys(nameHash, id string) (*fixture.Document, *Metadata, error) {
	var data, metaJSON []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(nameHash, id))
		if err != nil {
			return fmt.Errorf("reading data for %s: %w", id, notFound(err))
		}
		if data, err = item.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying data for %s: %w", id, err)
		}
		item, err = txn.Get(metaKey(nameHash, id))
		if err != nil {
			return fmt.Errorf("reading metadata for %s: %w", id, notFound(err))
		}
		if metaJSON, err = item.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying metadata for %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling metadata for %s: %w", id, err)
	}
	if err := checkSchema(meta.SchemaVersion); err != nil {
		return nil, nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	if actual := hashBytes(data); meta.ContentHash != "" && meta.ContentHash != actual {
		return nil, nil, fmt.Errorf("integrity check failed for %s: expected hash %s, got %s", id, meta.ContentHash, actual)
	}

	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing snapshot %s: %w", id, err)
	}
	defer gr.Close()
	jsonData, err := io.ReadAll(gr)
	if err != nil {
		return nil, nil, fmt.Errorf("reading decompressed data for %s: %w", id, err)
	}

	var doc fixture.Document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling document for %s: %w", id, err)
	}
	if err := fixture.Validate(&doc); err != nil {
		return nil, nil, fmt.Errorf("validating document for %s: %w", id, err)
	}
	return &doc, &meta, nil
}

func checkSchema(v string) error {
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: invalid version %q", ErrIncompatibleSchema, v)
	}
	if semver.Major(v) != semver.Major(SchemaVersion) {
		return fmt.Errorf("%w: %s, want %s", ErrIncompatibleSchema, v, semver.Major(SchemaVersion))
	}
	return nil
}

func (s *Store) readString(key []byte) (string, error) {
	var out string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return notFound(err)
		}
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	return out, err
}

func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// NameHash returns SHA256(name)[:16], the key prefix for a name's
// snapshots.
func NameHash(name string) string {
	return hashString(name)[:16]
}

func dataKey(nameHash, id string) []byte {
	return []byte(keyPrefixSnap + nameHash + ":" + id + keySuffixData)
}

func metaKey(nameHash, id string) []byte {
	return []byte(keyPrefixSnap + nameHash + ":" + id + keySuffixMeta)
}

func latestKey(nameHash string) []byte {
	return []byte(keyPrefixSnap + nameHash + keySuffixLatest)
}

func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
