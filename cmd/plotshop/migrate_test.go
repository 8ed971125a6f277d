// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/plotshop/internal/config"
	"github.com/holomush/plotshop/pkg/errutil"
)

func useMigrator(t *testing.T, m *fakeMigrator) {
	t.Helper()
	previous := newMigrator
	newMigrator = m.factory
	t.Cleanup(func() { newMigrator = previous })
	t.Setenv("DATABASE_URL", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configFile = ""
}

func runMigrate(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"migrate"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestMigrate_UpAppliesPending(t *testing.T) {
	m := &fakeMigrator{applied: []uint{1}, version: 1, pending: []uint{2, 3}}
	useMigrator(t, m)

	out, err := runMigrate(t, "--database-url", "postgres://localhost/plotshop")
	require.NoError(t, err)
	assert.Contains(t, out, "Applying 2 migration(s)...")
	assert.Contains(t, out, "Schema version: 3")
	assert.Equal(t, 1, m.ups)
	assert.True(t, m.closed)

	out, err = runMigrate(t, "up", "--database-url", "postgres://localhost/plotshop")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema is up to date")
	assert.Equal(t, 1, m.ups)
}

func TestMigrate_ReadsDatabaseURLFromEnvironment(t *testing.T) {
	m := &fakeMigrator{version: 2, dirty: true}
	useMigrator(t, m)
	t.Setenv("DATABASE_URL", "postgres://env/plotshop")

	out, err := runMigrate(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version: 2 (dirty)")
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	useMigrator(t, &fakeMigrator{})

	_, err := runMigrate(t, "status")
	errutil.AssertErrorCode(t, err, config.CodeInvalidConfig)
}

func TestMigrate_Down(t *testing.T) {
	m := &fakeMigrator{}
	useMigrator(t, m)

	_, err := runMigrate(t, "down", "--database-url", "postgres://localhost/plotshop")
	errutil.AssertErrorCode(t, err, "CONFIRMATION_REQUIRED")
	assert.Zero(t, m.downs)

	out, err := runMigrate(t, "down", "--yes", "--database-url", "postgres://localhost/plotshop")
	require.NoError(t, err)
	assert.Contains(t, out, "All migrations rolled back")
	assert.Equal(t, 1, m.downs)
}

func TestMigrate_StepsAndForce(t *testing.T) {
	m := &fakeMigrator{}
	useMigrator(t, m)
	url := "--database-url=postgres://localhost/plotshop"

	_, err := runMigrate(t, "steps", url, "--", "-1")
	require.NoError(t, err)
	_, err = runMigrate(t, "force", "2", url)
	require.NoError(t, err)
	assert.Equal(t, []int{-1}, m.steps)
	assert.Equal(t, []int{2}, m.forced)

	_, err = runMigrate(t, "steps", "0", url)
	errutil.AssertErrorCode(t, err, "INVALID_ARGS")
	_, err = runMigrate(t, "force", url, "--", "-3")
	errutil.AssertErrorCode(t, err, "INVALID_ARGS")
}

func TestMigrate_Status(t *testing.T) {
	useMigrator(t, &fakeMigrator{applied: []uint{1, 2}, pending: []uint{3}, version: 2})

	out, err := runMigrate(t, "status", "--database-url", "postgres://localhost/plotshop")
	require.NoError(t, err)
	assert.Contains(t, out, "applied  000001_regions")
	assert.Contains(t, out, "applied  000002_region_groups")
	assert.Contains(t, out, "pending  000003_economy")
	assert.Contains(t, out, "2 applied, 1 pending")
}
