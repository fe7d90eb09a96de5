// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starkmod/starkmod/internal/fetch"
	"github.com/starkmod/starkmod/internal/namespace"
	"github.com/starkmod/starkmod/pkg/starkmod"
)

// TaskCache holds at most one fetch Task per module name.
type TaskCache struct {
	mu      sync.Mutex
	tasks   map[starkmod.ModuleName]*Task
	fetcher fetch.Fetcher
}

// NewTaskCache creates an empty cache. fetcher is used by Load calls that do
// not supply their own; it may be nil.
func NewTaskCache(fetcher fetch.Fetcher) *TaskCache {
	return &TaskCache{
		tasks:   make(map[starkmod.ModuleName]*Task),
		fetcher: fetcher,
	}
}

// Load returns the cached task for mod.Name, or stores and starts a new one.
// An existing task is returned as-is, whatever its outcome and whatever URLs
// mod carries now.
//
// The fetch runs on a context detached from ctx's cancellation so that one
// caller giving up does not fail the task for the others.
func (c *TaskCache) Load(ctx context.Context, mod starkmod.Module, fetcher fetch.Fetcher) *Task {
	c.mu.Lock()
	if t, ok := c.tasks[mod.Name]; ok {
		c.mu.Unlock()
		return t
	}
	if fetcher == nil {
		fetcher = c.fetcher
	}
	t := newTask(mod.Name.String())
	if fetcher == nil {
		c.mu.Unlock()
		t.resolve(nil, ErrNoFetcher)
		return t
	}
	c.tasks[mod.Name] = t
	c.mu.Unlock()

	mod.URL = mod.URLs()
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		t.resolve(fetchSources(fetchCtx, mod, fetcher))
	}()
	return t
}

// RemoveTask evicts the task for name, if any.
func (c *TaskCache) RemoveTask(name starkmod.ModuleName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tasks, name)
}

// ClearTask evicts every task.
func (c *TaskCache) ClearTask() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.tasks)
}

// Len returns the number of cached tasks.
func (c *TaskCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

// fetchSources retrieves every URL of mod in parallel. mod.URL must already be
// normalized. The first failure cancels the rest and becomes the result.
func fetchSources(ctx context.Context, mod starkmod.Module, fetcher fetch.Fetcher) ([]string, error) {
	sources := make([]string, len(mod.URL))

	g, gctx := errgroup.WithContext(ctx)
	for i, url := range mod.URL {
		g.Go(func() error {
			text, err := fetch.Text(gctx, fetcher, url)
			if err != nil {
				return &RetrievalError{Module: mod.Name.String(), URL: url, Err: err}
			}
			sources[i] = namespace.TagSource(text, url)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}
