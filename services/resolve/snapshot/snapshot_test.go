// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianResolve/services/resolve/fixture"
)

func newTestStore(t *testing.T) (*Store, *DB) {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db.DB, slog.Default())
	require.NoError(t, err)

	clock := time.UnixMilli(1_700_000_000_000)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return store, db
}

func testDocument(name string) *fixture.Document {
	return &fixture.Document{
		Name: name,
		Classes: []fixture.ClassSpec{
			{Name: "com.acme.C", Methods: []fixture.MethodSpec{
				{Name: "f", Params: []string{"int"}},
				{Name: "f", Params: []string{"Integer"}},
			}},
		},
		Calls: []fixture.CallSpec{
			{ID: "c1", Method: "f", Context: "com.acme.C", Args: []string{"int"}, Expect: "com.acme.C#f(int)"},
		},
	}
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(nil, slog.Default())
	assert.Error(t, err)

	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()
	_, err = NewStore(db.DB, nil)
	assert.Error(t, err)
}

func TestStore_SaveAndLoad(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	doc := testDocument("demo")

	meta, err := store.Save(ctx, doc, "first")
	require.NoError(t, err)
	assert.Len(t, meta.ID, 16)
	assert.Equal(t, "demo", meta.Name)
	assert.Equal(t, NameHash("demo"), meta.NameHash)
	assert.Equal(t, 1, meta.ClassCount)
	assert.Equal(t, 2, meta.MethodCount)
	assert.Equal(t, 1, meta.CallCount)
	assert.Equal(t, SchemaVersion, meta.SchemaVersion)
	assert.Positive(t, meta.CompressedSize)

	loaded, loadedMeta, err := store.Load(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)
	assert.Equal(t, meta, loadedMeta)
}

func TestStore_LoadLatest(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Save(ctx, testDocument("demo"), "")
	require.NoError(t, err)
	second, err := store.Save(ctx, testDocument("demo"), "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, meta, err := store.LoadLatest(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, second.ID, meta.ID)

	_, _, err = store.LoadLatest(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a, err := store.Save(ctx, testDocument("a"), "")
	require.NoError(t, err)
	b, err := store.Save(ctx, testDocument("b"), "")
	require.NoError(t, err)
	a2, err := store.Save(ctx, testDocument("a"), "")
	require.NoError(t, err)

	all, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{a2.ID, b.ID, a.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	onlyA, err := store.List(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, a2.ID, onlyA[0].ID)

	limited, err := store.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	meta, err := store.Save(ctx, testDocument("demo"), "")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, meta.ID))

	_, _, err = store.Load(ctx, meta.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = store.LoadLatest(ctx, "demo")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Delete(ctx, meta.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_IntegrityCheck(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	meta, err := store.Save(ctx, testDocument("demo"), "")
	require.NoError(t, err)

	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set(dataKey(meta.NameHash, meta.ID), []byte("tampered"))
	}))

	_, _, err = store.Load(ctx, meta.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integrity check failed")
}

func TestStore_SchemaVersionCheck(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	meta, err := store.Save(ctx, testDocument("demo"), "")
	require.NoError(t, err)

	for _, version := range []string{"v2.0.0", "1"} {
		stale := *meta
		stale.SchemaVersion = version
		raw, err := json.Marshal(&stale)
		require.NoError(t, err)
		require.NoError(t, db.Update(func(txn *badger.Txn) error {
			return txn.Set(metaKey(meta.NameHash, meta.ID), raw)
		}))

		_, _, err = store.Load(ctx, meta.ID)
		assert.ErrorIs(t, err, ErrIncompatibleSchema, version)
	}

	assert.NoError(t, checkSchema("v1.4.2"))
}

func TestStore_NilArguments(t *testing.T) {
	store, _ := newTestStore(t)

	//nolint:staticcheck
	_, err := store.Save(nil, testDocument("x"), "")
	assert.Error(t, err)
	_, err = store.Save(context.Background(), nil, "")
	assert.Error(t, err)
	_, _, err = store.Load(context.Background(), "")
	assert.Error(t, err)
	assert.Error(t, store.Delete(context.Background(), ""))
}

func TestOpenDB_OnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	db, err := OpenDB(DBConfig{Dir: dir, GCInterval: time.Hour})
	require.NoError(t, err)

	store, err := NewStore(db.DB, slog.Default())
	require.NoError(t, err)
	meta, err := store.Save(context.Background(), testDocument("disk"), "")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenDB(DBConfig{Dir: dir})
	require.NoError(t, err)
	defer db.Close()
	store, err = NewStore(db.DB, slog.Default())
	require.NoError(t, err)
	_, loaded, err := store.LoadLatest(context.Background(), "disk")
	require.NoError(t, err)
	assert.Equal(t, meta.ID, loaded.ID)
}

func TestOpenDB_RequiresDir(t *testing.T) {
	_, err := OpenDB(DBConfig{})
	assert.Error(t, err)
}
