// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"

	"github.com/starkmod/starkmod/pkg/starkmod"
)

type (
	// Job is one module execution in a batch.
	Job struct {
		Module  starkmod.Module
		Sandbox Sandbox
		Deps    map[string]any
	}

	// Result is the outcome of one Job.
	Result struct {
		Module starkmod.ModuleName
		Export Export
		Err    error
	}
)

// Prefetch starts the fetch of every module without waiting for any of them.
func (l *Loader) Prefetch(ctx context.Context, mods ...starkmod.Module) []*Task {
	tasks := make([]*Task, len(mods))
	for i, mod := range mods {
		tasks[i] = l.tasks.Load(ctx, mod, nil)
	}
	return tasks
}

// RunAll prefetches every job's module, then runs the jobs in order. A failed
// job does not stop later ones. If ctx is done, the remaining jobs report
// ctx.Err().
func (l *Loader) RunAll(ctx context.Context, jobs []Job) []Result {
	mods := make([]starkmod.Module, len(jobs))
	for i, job := range jobs {
		mods[i] = job.Module
	}
	l.Prefetch(ctx, mods...)

	results := make([]Result, len(jobs))
	for i, job := range jobs {
		results[i].Module = job.Module.Name
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		results[i].Export, results[i].Err = l.Run(ctx, job.Module, job.Sandbox, job.Deps)
		if results[i].Err != nil {
			l.logger.Warn("module failed", "module", job.Module.Name.String(), "error", results[i].Err)
		}
	}
	return results
}
