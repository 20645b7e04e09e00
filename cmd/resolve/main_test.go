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
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosPath = "../../services/resolve/fixture/testdata/scenarios.yaml"

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestCheck_Scenarios(t *testing.T) {
	out, err := runCLI(t, "check", scenariosPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "8/8 passed")
	assert.Contains(t, out, "PASS scenario-b")
	assert.NotContains(t, out, "FAIL")
}

func TestCheck_FailedExpectation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: bad
classes:
  - name: p.C
    methods:
      - name: f
        params: [int]
      - name: f
        params: [long]
calls:
  - id: wrong
    method: f
    context: p.C
    args: [int]
    expect: "p.C#f(long)"
`), 0o644))

	out, err := runCLI(t, "check", path)
	require.ErrorIs(t, err, errCheckFailed)
	assert.Contains(t, out, "FAIL wrong")
	assert.Contains(t, out, "(expected p.C#f(long))")
	assert.Contains(t, out, "0/1 passed")
}

func TestCheck_MissingFile(t *testing.T) {
	_, err := runCLI(t, "check", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSnapshot_SaveListLoadDelete(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "snapshot", "save", scenariosPath, "--dir", dir, "--label", "v1")
	require.NoError(t, err, out)
	match := regexp.MustCompile(`saved ([0-9a-f]+) \(scenarios, 4 classes, 13 methods, 8 calls\)`).FindStringSubmatch(out)
	require.Len(t, match, 2, out)
	id := match[1]

	out, err = runCLI(t, "snapshot", "list", "--dir", dir, "--name", "scenarios")
	require.NoError(t, err, out)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "v1")

	outFile := filepath.Join(t.TempDir(), "restored.yaml")
	_, err = runCLI(t, "snapshot", "load", id, "--dir", dir, "-o", outFile)
	require.NoError(t, err)

	out, err = runCLI(t, "check", outFile)
	require.NoError(t, err, out)
	assert.Contains(t, out, "8/8 passed")

	_, err = runCLI(t, "snapshot", "delete", id, "--dir", dir)
	require.NoError(t, err)
	out, err = runCLI(t, "snapshot", "list", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "no snapshots")
}

func TestSnapshot_RequiresDir(t *testing.T) {
	_, err := runCLI(t, "snapshot", "list")
	assert.ErrorContains(t, err, "snapshot directory required")
}
