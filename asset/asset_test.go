/*
   Copyright 2024 The htnplan Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package asset_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvanforge/htnplan/asset"
	"github.com/silvanforge/htnplan/dsl"
	"github.com/silvanforge/htnplan/internal/demo"
)

func testOptions() dsl.Options[demo.AgentState] {
	return dsl.Options[demo.AgentState]{
		Registry:         demo.Operators(),
		Enums:            demo.EnumRegistry(),
		EnumConstructors: demo.EnumConstructors(),
	}
}

const restDomain = `
schema {
    version: "0.1.0"
}

compound_task "patrol" {
    method {
        subtasks: [ rest ]
    }
}

primitive_task "rest" {
    operator: Wait()
    preconditions: [ Mood == Mood::Exhausted ]
    effects: [ Mood = Mood::Calm ]
}
`

const patrolDomain = `
schema {
    version: "0.1.0"
}

compound_task "patrol" {
    method {
        subtasks: [ rest ]
    }
}

primitive_task "rest" {
    operator: Wait()
    effects: [ Mood = Mood::Calm ]
}
`

func TestLoadParsesValidDomain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domain.htn")
	require.NoError(t, os.WriteFile(path, []byte(restDomain), 0o644))

	loaded, err := asset.Load[demo.AgentState](path, testOptions())
	require.NoError(t, err)
	assert.Equal(t, path, loaded.Path)
	assert.Equal(t, "patrol", loaded.Domain.RootTask().Name())

	again, err := asset.Load[demo.AgentState](path, testOptions())
	require.NoError(t, err)
	assert.NotEqual(t, loaded.Seed, again.Seed, "each load draws its own seed")
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, err := asset.Load[demo.AgentState](filepath.Join(t.TempDir(), "missing.htn"), testOptions())
	assert.Error(t, err)
}

func TestLoadReturnsErrorForInvalidDomain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domain.htn")
	require.NoError(t, os.WriteFile(path, []byte(`primitive_task "t" { operator: Wait() }`), 0o644))

	_, err := asset.Load[demo.AgentState](path, testOptions())
	assert.Error(t, err)
}

func TestWatchEmitsInitialLoadAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domain.htn")
	require.NoError(t, os.WriteFile(path, []byte(restDomain), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loaded, errs, err := asset.Watch[demo.AgentState](ctx, path, testOptions())
	require.NoError(t, err)

	select {
	case first := <-loaded:
		require.NotNil(t, first)
		assert.Equal(t, "patrol", first.Domain.RootTask().Name())
	case err := <-errs:
		t.Fatalf("unexpected error waiting for initial load: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for initial load")
	}

	require.NoError(t, os.WriteFile(path, []byte(patrolDomain), 0o644))

	select {
	case next := <-loaded:
		require.NotNil(t, next)
		assert.Equal(t, "patrol", next.Domain.RootTask().Name())
	case err := <-errs:
		t.Fatalf("unexpected error waiting for reload: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload after write")
	}

	cancel()

	select {
	case _, ok := <-loaded:
		assert.False(t, ok, "loaded channel should close once the context is done")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for loaded channel to close")
	}
}

func TestWatchStopsOnMissingDomainDirectory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _, err := asset.Watch[demo.AgentState](ctx, filepath.Join(t.TempDir(), "nested", "domain.htn"), testOptions())
	assert.Error(t, err)
}
