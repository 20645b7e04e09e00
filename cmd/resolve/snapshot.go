// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianResolve/services/resolve/fixture"
	"github.com/AleutianAI/AleutianResolve/services/resolve/snapshot"
)

// Snapshot flags.
var (
	snapshotDir   string
	snapshotLabel string
	snapshotName  string
	snapshotLimit int
	snapshotOut   string
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage stored fixture snapshots",
	}
	cmd.PersistentFlags().StringVar(&snapshotDir, "dir", "", "Snapshot directory (defaults to storage.dir)")

	save := &cobra.Command{
		Use:   "save <fixture.yaml>",
		Short: "Validate a fixture and store it as a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshotSave,
	}
	save.Flags().StringVar(&snapshotLabel, "label", "", "Optional label")

	list := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE:  runSnapshotList,
	}
	list.Flags().StringVar(&snapshotName, "name", "", "Only snapshots of this document name")
	list.Flags().IntVar(&snapshotLimit, "limit", 20, "Maximum snapshots to list")

	load := &cobra.Command{
		Use:   "load <snapshot-id>",
		Short: "Write a stored snapshot back out as fixture YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshotLoad,
	}
	load.Flags().StringVarP(&snapshotOut, "out", "o", "", "Output file (default stdout)")

	del := &cobra.Command{
		Use:   "delete <snapshot-id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshotDelete,
	}

	cmd.AddCommand(save, list, load, del)
	return cmd
}

// withStore opens the on-disk store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(*snapshot.Store) error) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	dir := snapshotDir
	if dir == "" {
		dir = cfg.Storage.Dir
	}
	if dir == "" {
		return fmt.Errorf("snapshot directory required: pass --dir or set storage.dir")
	}
	db, err := snapshot.OpenDB(snapshot.DBConfig{Dir: dir})
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Warn("failed to close snapshot store", slog.String("error", err.Error()))
		}
	}()
	store, err := snapshot.NewStore(db.DB, slog.Default())
	if err != nil {
		return err
	}
	return fn(store)
}

func runSnapshotSave(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(store *snapshot.Store) error {
		doc, err := fixture.LoadFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if _, err := fixture.Build(cmd.Context(), doc); err != nil {
			return err
		}
		meta, err := store.Save(cmd.Context(), doc, snapshotLabel)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s, %d classes, %d methods, %d calls)\n",
			meta.ID, meta.Name, meta.ClassCount, meta.MethodCount, meta.CallCount)
		return nil
	})
}

func runSnapshotList(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(store *snapshot.Store) error {
		metas, err := store.List(cmd.Context(), snapshotName, snapshotLimit)
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no snapshots")
			return nil
		}
		for _, m := range metas {
			created := time.UnixMilli(m.CreatedAtMilli).UTC().Format(time.RFC3339)
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s %-12s %s  %d methods\n", m.ID, m.Name, m.Label, created, m.MethodCount)
		}
		return nil
	})
}

func runSnapshotLoad(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(store *snapshot.Store) error {
		doc, meta, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		data, err := fixture.Marshal(doc)
		if err != nil {
			return err
		}
		if snapshotOut == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(snapshotOut, data, 0o644); err != nil {
			return err
		}
		info, _ := json.Marshal(meta)
		slog.Info("snapshot written", slog.String("path", snapshotOut), slog.String("metadata", string(info)))
		return nil
	})
}

func runSnapshotDelete(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(store *snapshot.Store) error {
		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	})
}
