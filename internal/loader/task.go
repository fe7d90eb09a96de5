// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"slices"
)

// Task is the shared, write-once result of fetching one module's sources.
// Sources are in URL order, each suffixed with a sourceURL comment.
type Task struct {
	name    string
	done    chan struct{}
	sources []string
	err     error
}

func newTask(name string) *Task {
	return &Task{name: name, done: make(chan struct{})}
}

// Name returns the module name the task was created for.
func (t *Task) Name() string { return t.name }

// Done is closed once the task has a result.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task completes or ctx is done. Cancelling ctx only stops
// this caller from waiting; the fetch itself keeps running for other waiters.
func (t *Task) Wait(ctx context.Context) ([]string, error) {
	select {
	case <-t.done:
		if t.err != nil {
			return nil, t.err
		}
		return slices.Clone(t.sources), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Task) resolve(sources []string, err error) {
	t.sources = sources
	t.err = err
	close(t.done)
}
