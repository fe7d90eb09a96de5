// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starkmod/starkmod/internal/fetch"
)

func TestMustSetenv_Restores(t *testing.T) {
	const key = "STARKMOD_TESTUTIL_PROBE"
	t.Cleanup(MustUnsetenv(t, key))

	cleanup := MustSetenv(t, key, "value")
	if got := os.Getenv(key); got != "value" {
		t.Fatalf("%s = %q, want %q", key, got, "value")
	}
	cleanup()
	if _, ok := os.LookupEnv(key); ok {
		t.Errorf("%s should be unset after cleanup", key)
	}
}

func TestMustWriteFile(t *testing.T) {
	t.Parallel()

	path := MustWriteFile(t, t.TempDir(), "nested/a.js", "window.a = 1")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() unexpected error: %v", err)
	}
	if string(data) != "window.a = 1" {
		t.Errorf("content = %q", data)
	}
}

func TestLogRecorder(t *testing.T) {
	t.Parallel()

	rec := NewLogRecorder()
	logger := rec.Logger().With("module", "m1")
	logger.Info("loaded", "scripts", 2)
	logger.Error("failed")

	if got := rec.Count(slog.LevelInfo); got != 1 {
		t.Errorf("Count(info) = %d, want 1", got)
	}
	records := rec.Records()
	if len(records) != 2 {
		t.Fatalf("len(Records()) = %d, want 2", len(records))
	}
	if records[0].Attrs["module"] != "m1" {
		t.Errorf("module attr = %v, want m1", records[0].Attrs["module"])
	}
	if records[0].Attrs["scripts"] != int64(2) {
		t.Errorf("scripts attr = %v, want 2", records[0].Attrs["scripts"])
	}
	if got := rec.Messages(slog.LevelError); len(got) != 1 || got[0] != "failed" {
		t.Errorf("Messages(error) = %v", got)
	}
}

func TestStubFetcher(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	f := NewStubFetcher().
		WithSource("https://x/a.js", "a").
		WithError("https://x/b.js", boom).
		WithBodyError("https://x/c.js", boom)
	ctx := context.Background()

	if text, err := fetch.Text(ctx, f, "https://x/a.js"); err != nil || text != "a" {
		t.Errorf("Text(a) = %q, %v", text, err)
	}
	if _, err := fetch.Text(ctx, f, "https://x/b.js"); !errors.Is(err, boom) {
		t.Errorf("Text(b) error = %v, want boom", err)
	}
	if _, err := fetch.Text(ctx, f, "https://x/c.js"); !errors.Is(err, boom) {
		t.Errorf("Text(c) error = %v, want boom", err)
	}
	if _, err := fetch.Text(ctx, f, "https://x/missing.js"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Text(missing) error = %v, want fs.ErrNotExist", err)
	}
	if f.Calls("https://x/a.js") != 1 || f.TotalCalls() != 4 {
		t.Errorf("Calls = %d, TotalCalls = %d", f.Calls("https://x/a.js"), f.TotalCalls())
	}
}

func TestGatedFetcher(t *testing.T) {
	t.Parallel()

	g := NewGatedFetcher(NewStubFetcher().WithSource("u", "src"))
	result := make(chan string, 1)
	go func() {
		text, _ := fetch.Text(context.Background(), g, "u")
		result <- text
	}()

	select {
	case url := <-g.Started():
		if url != "u" {
			t.Errorf("Started() = %q, want u", url)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fetch never started")
	}
	select {
	case <-result:
		t.Fatal("fetch completed before Release")
	default:
	}

	g.Release()
	select {
	case text := <-result:
		if text != "src" {
			t.Errorf("text = %q, want src", text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not complete after Release")
	}
}
