// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/starkmod/starkmod/internal/namespace"
	"github.com/starkmod/starkmod/internal/sandbox"
	"github.com/starkmod/starkmod/internal/testutil"
	"github.com/starkmod/starkmod/pkg/starkmod"
)

type testEnv struct {
	loader *Loader
	global *namespace.JS
	stub   *testutil.StubFetcher
	logs   *testutil.LogRecorder
}

func newTestEnv(t *testing.T, globals map[string]any) *testEnv {
	t.Helper()
	logs := testutil.NewLogRecorder()
	global, err := namespace.New(namespace.WithLogger(logs.Logger()), namespace.WithGlobals(globals))
	if err != nil {
		t.Fatalf("namespace.New() unexpected error: %v", err)
	}
	stub := testutil.NewStubFetcher()
	l, err := New(WithFetcher(stub), WithLogger(logs.Logger()), WithGlobalNamespace(global))
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return &testEnv{loader: l, global: global, stub: stub, logs: logs}
}

func TestLoader_StrictOrder(t *testing.T) {
	t.Parallel()

	for _, isolated := range []bool{false, true} {
		t.Run(fmt.Sprintf("isolated=%v", isolated), func(t *testing.T) {
			t.Parallel()

			var seq []string
			record := func(s string) { seq = append(seq, s) }
			env := newTestEnv(t, map[string]any{"record": record})
			env.stub.WithSource("a.js", "record('A')").
				WithSource("b.js", "record('B')").
				WithSource("c.js", "record('C')")

			var sb Sandbox
			if isolated {
				sb = sandbox.New(sandbox.WithLogger(env.logs.Logger()))
			}
			mod := starkmod.New("ordered", "a.js", "b.js", "c.js")
			if _, err := env.loader.Execute(context.Background(), mod, sb, map[string]any{"record": record}); err != nil {
				t.Fatalf("Execute() unexpected error: %v", err)
			}
			if !slices.Equal(seq, []string{"A", "B", "C"}) {
				t.Errorf("execution order = %v, want [A B C]", seq)
			}
		})
	}
}

func TestLoader_ExportAndCleanup(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.stub.WithSource("u1", "window.libP = { v: 'ok' }")

	exp, err := env.loader.Run(context.Background(), starkmod.New("m", "u1"), nil, nil)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if exp.Name != "libP" || exp.Source != ExportInferred {
		t.Errorf("export = %s (%s), want libP (inferred)", exp.Name, exp.Source)
	}
	if !reflect.DeepEqual(exp.Value, map[string]any{"v": "ok"}) {
		t.Errorf("export value = %#v", exp.Value)
	}
	if slices.Contains(env.global.OwnKeys(), "libP") {
		t.Error("inferred export must be removed from the namespace")
	}
}

func TestLoader_EmptyFallback(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.stub.WithSource("u1", "1 + 1")

	exp, err := env.loader.Run(context.Background(), starkmod.New("quiet", "u1"), nil, nil)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if exp.Source != ExportEmpty || exp.Name != "" {
		t.Errorf("export = %q (%s), want empty", exp.Name, exp.Source)
	}
	if !reflect.DeepEqual(exp.Value, map[string]any{}) {
		t.Errorf("export value = %#v, want empty map", exp.Value)
	}
}

func TestLoader_NamedFallback(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, map[string]any{"widget": 5})
	env.stub.WithSource("u1", "widget = widget + 1")

	exp, err := env.loader.Run(context.Background(), starkmod.New("widget", "u1"), nil, nil)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if exp.Source != ExportNamed || exp.Value != int64(6) {
		t.Errorf("export = %#v (%s), want 6 (named)", exp.Value, exp.Source)
	}
	if !slices.Contains(env.global.OwnKeys(), "widget") {
		t.Error("a name-matched property is not an inferred export and must be kept")
	}
}

func TestLoader_SandboxScenarioLibA(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.stub.WithSource("u1", "window.libA={x:1}").WithSource("u2", "window.libA.y=2")
	sb := sandbox.New()

	got, err := env.loader.Execute(context.Background(), starkmod.New("m1", "u1", "u2"), sb, nil)
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	want := map[string]any{"x": int64(1), "y": int64(2)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("export = %#v, want %#v", got, want)
	}
	if slices.Contains(sb.Namespace().OwnKeys(), "libA") {
		t.Error("libA must be removed from the sandbox namespace")
	}
	if slices.Contains(env.global.OwnKeys(), "libA") {
		t.Error("sandboxed execution must not touch the shared namespace")
	}
}

func TestLoader_RetrievalFailureSkipsExecution(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	refused := errors.New("connection refused")
	env.stub.WithSource("u1", "window.ran = true").WithError("u2", refused)

	_, err := env.loader.Execute(context.Background(), starkmod.New("m", "u1", "u2"), nil, nil)
	var retrievalErr *RetrievalError
	if !errors.As(err, &retrievalErr) || !errors.Is(err, refused) {
		t.Fatalf("expected RetrievalError wrapping the cause, got %v", err)
	}
	if slices.Contains(env.global.OwnKeys(), "ran") {
		t.Error("no script may execute when retrieval fails")
	}
	if got := env.logs.Count(slog.LevelError); got != 0 {
		t.Errorf("execution diagnostics = %d, want 0", got)
	}
}

func TestLoader_ThrowingFinalScriptStillExports(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.stub.WithSource("u1", "window.libB = 42; throw new Error('late failure')")

	got, err := env.loader.Execute(context.Background(), starkmod.New("b", "u1"), nil, nil)
	if err != nil {
		t.Fatalf("Execute() should not fail on script errors, got %v", err)
	}
	if got != int64(42) {
		t.Errorf("export = %#v, want 42", got)
	}
	records := env.logs.Records()
	errorsLogged := 0
	for _, r := range records {
		if r.Level != slog.LevelError {
			continue
		}
		errorsLogged++
		if r.Attrs["module"] != "b" || r.Attrs["script"] != "u1" {
			t.Errorf("diagnostic attrs = %v", r.Attrs)
		}
	}
	if errorsLogged != 1 {
		t.Errorf("execution diagnostics = %d, want 1", errorsLogged)
	}
}

func TestLoader_EarlyFailureStopsRemainingScripts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.stub.WithSource("u1", "window.first = 1").
		WithSource("u2", "throw new Error('boom')").
		WithSource("u3", "window.third = 3")

	exp, err := env.loader.Run(context.Background(), starkmod.New("partial", "u1", "u2", "u3"), nil, nil)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if exp.Source != ExportEmpty {
		t.Errorf("export source = %s, want empty (no snapshot before the final script)", exp.Source)
	}
	keys := env.global.OwnKeys()
	if slices.Contains(keys, "third") {
		t.Error("scripts after a failure must not run")
	}
	if !slices.Contains(keys, "first") {
		t.Error("effects of scripts before the failure are kept")
	}
	if got := env.logs.Count(slog.LevelError); got != 1 {
		t.Errorf("execution diagnostics = %d, want 1", got)
	}
}

func TestLoader_ZeroSources(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, map[string]any{"preset": "here"})

	got, err := env.loader.Execute(context.Background(), starkmod.New("preset"), nil, nil)
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if got != "here" {
		t.Errorf("export = %#v, want the name-matched value", got)
	}

	got, err = env.loader.Execute(context.Background(), starkmod.New("nothing"), nil, nil)
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{}) {
		t.Errorf("export = %#v, want empty map", got)
	}
}

func TestLoader_ReexecuteReusesFetch(t *testing.T) {
	t.Parallel()

	runs := 0
	env := newTestEnv(t, map[string]any{"tick": func() int { runs++; return runs }})
	env.stub.WithSource("u1", "window.counter = tick()")
	mod := starkmod.New("c", "u1")

	for want := int64(1); want <= 2; want++ {
		got, err := env.loader.Execute(context.Background(), mod, nil, nil)
		if err != nil {
			t.Fatalf("Execute() unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("export = %#v, want %d", got, want)
		}
	}
	if got := env.stub.Calls("u1"); got != 1 {
		t.Errorf("Calls(u1) = %d, want 1", got)
	}

	env.loader.RemoveTask(mod.Name)
	if _, err := env.loader.Execute(context.Background(), mod, nil, nil); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if got := env.stub.Calls("u1"); got != 2 {
		t.Errorf("Calls(u1) after RemoveTask = %d, want 2", got)
	}
}

func TestLoader_SandboxDepsAndIsolation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.stub.WithSource("u1", "window.greeting = prefix + ', world'")
	sb := sandbox.New()

	got, err := env.loader.Execute(context.Background(), starkmod.New("g", "u1"), sb, map[string]any{"prefix": "hello"})
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if got != "hello, world" {
		t.Errorf("export = %#v", got)
	}

	// Disabled sandboxes fall back to the shared namespace, where prefix is undefined.
	_, err = env.loader.Execute(context.Background(), starkmod.New("g", "u1"), sandbox.New(sandbox.WithEnabled(false)), map[string]any{"prefix": "hello"})
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if got := env.logs.Count(slog.LevelError); got != 1 {
		t.Errorf("expected a ReferenceError diagnostic from the shared namespace, got %d", got)
	}
}

type failingSandbox struct{ err error }

func (s failingSandbox) Active() bool { return true }

func (s failingSandbox) CreateProxySandbox(map[string]any) error { return s.err }

func (s failingSandbox) Namespace() namespace.Namespace { return nil }

func (s failingSandbox) ExecScript(string) error { return nil }

func TestLoader_SandboxFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.stub.WithSource("u1", "window.x = 1")
	cause := errors.New("no isolate available")

	_, err := env.loader.Execute(context.Background(), starkmod.New("m", "u1"), failingSandbox{err: cause}, nil)
	if !errors.Is(err, ErrSandbox) || !errors.Is(err, cause) {
		t.Errorf("expected ErrSandbox wrapping the cause, got %v", err)
	}
	if slices.Contains(env.global.OwnKeys(), "x") {
		t.Error("a sandbox failure must not fall back to the shared namespace")
	}
}

func TestLoader_ConcurrentExecutionsDoNotInterleave(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	const n = 16
	for i := range n {
		env.stub.WithSource(fmt.Sprintf("u%d", i), fmt.Sprintf("window.k%d = %d", i, i))
	}

	results := make([]any, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			mod := starkmod.New(fmt.Sprintf("m%d", i), fmt.Sprintf("u%d", i))
			results[i], errs[i] = env.loader.Execute(context.Background(), mod, nil, nil)
		})
	}
	wg.Wait()

	for i := range n {
		if errs[i] != nil {
			t.Errorf("module %d: unexpected error %v", i, errs[i])
			continue
		}
		if results[i] != int64(i) {
			t.Errorf("module %d export = %#v, want %d", i, results[i], i)
		}
	}
}

func TestLoader_WaitHonoursCallerContext(t *testing.T) {
	t.Parallel()

	stub := testutil.NewStubFetcher().WithSource("u1", "window.v = 1")
	gated := testutil.NewGatedFetcher(stub)
	l, err := New(WithFetcher(gated), WithLogger(testutil.NewLogRecorder().Logger()))
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	t.Cleanup(gated.Release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Execute(ctx, starkmod.New("m", "u1"), nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
