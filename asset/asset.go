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

// Package asset loads domain files from disk and, on request, watches them
// for changes so a long-running agent can pick up an edited domain without
// a restart.
package asset

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	htn "github.com/silvanforge/htnplan"
	"github.com/silvanforge/htnplan/dsl"
)

// Loaded is the result of one domain-file parse: the compiled domain, the
// path it was read from, and a per-load seed.
type Loaded[T any] struct {
	Domain *htn.Domain[T]
	Path   string
	// Seed is drawn fresh per load. The planner itself is deterministic and
	// never consumes it; it travels with the domain so a tie-breaking
	// strategy can be seeded later without changing this contract.
	Seed uint64
}

// Load reads, parses, and validates the domain file at path.
func Load[T any](path string, opts dsl.Options[T]) (*Loaded[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("htn/asset: reading %s: %w", path, err)
	}
	domain, err := dsl.Parse[T](string(data), opts)
	if err != nil {
		return nil, fmt.Errorf("htn/asset: parsing %s: %w", path, err)
	}
	return &Loaded[T]{Domain: domain, Path: path, Seed: rand.Uint64()}, nil
}

// Watch loads path once, sends it on the returned channel, then continues
// watching path for writes and re-sends on every successful reparse; a reload
// the receiver has not yet read is replaced by the newer one. Parse
// errors after the first load are logged to errs rather than closing the
// channel, so a transient edit mid-save does not take an agent's domain
// away. The watch stops, and both channels close, when ctx is done.
func Watch[T any](ctx context.Context, path string, opts dsl.Options[T]) (<-chan *Loaded[T], <-chan error, error) {
	first, err := Load[T](path, opts)
	if err != nil {
		return nil, nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("htn/asset: creating watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, nil, fmt.Errorf("htn/asset: watching %s: %w", dir, err)
	}

	loaded := make(chan *Loaded[T], 1)
	errs := make(chan error, 1)
	loaded <- first

	go func() {
		defer watcher.Close()
		defer close(loaded)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				next, err := Load[T](path, opts)
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					continue
				}
				select {
				case loaded <- next:
				default:
					// drop a backlogged reload; the newest parse always wins
					select {
					case <-loaded:
					default:
					}
					loaded <- next
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case errs <- err:
				default:
				}
			}
		}
	}()

	return loaded, errs, nil
}
