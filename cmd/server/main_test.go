package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stellarlinkco/embench/api"
	"github.com/stellarlinkco/embench/internal/config"
	"github.com/stellarlinkco/embench/internal/store"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "results:\n  type: memory\ndata:\n  task_dir: " + filepath.Join(dir, "tasks") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRunMain(t *testing.T) {
	t.Setenv("EMBENCH_DISABLE_AUTH", "true")

	origRunServer := runServer
	origStderr := stderrWriter
	defer func() {
		runServer = origRunServer
		stderrWriter = origStderr
	}()

	var buf bytes.Buffer
	stderrWriter = &buf

	var gotAddr string
	runServer = func(s *api.Server, addr string) error {
		gotAddr = addr
		return nil
	}

	code := runMain([]string{"-addr", ":9999", "-config", writeConfig(t)})
	if code != 0 {
		t.Fatalf("runMain = %d: %s", code, buf.String())
	}
	if gotAddr != ":9999" {
		t.Fatalf("addr = %q", gotAddr)
	}
}

func TestRunMain_Errors(t *testing.T) {
	t.Setenv("EMBENCH_DISABLE_AUTH", "true")

	origLoad := loadConfig
	origOpen := openStore
	origRun := runServer
	origStderr := stderrWriter
	defer func() {
		loadConfig = origLoad
		openStore = origOpen
		runServer = origRun
		stderrWriter = origStderr
	}()
	stderrWriter = &bytes.Buffer{}

	{
		if code := runMain([]string{"-bogus-flag"}); code != 2 {
			t.Fatalf("flag error = %d, want 2", code)
		}
	}

	{
		loadConfig = func(string) (*config.Config, error) { return nil, errors.New("boom") }
		if code := runMain(nil); code != 1 {
			t.Fatalf("config error = %d, want 1", code)
		}
		loadConfig = origLoad
	}

	{
		openStore = func(*config.Config) (store.Store, error) { return nil, errors.New("boom") }
		if code := runMain([]string{"-config", writeConfig(t)}); code != 1 {
			t.Fatalf("store error = %d, want 1", code)
		}
		openStore = origOpen
	}

	{
		runServer = func(*api.Server, string) error { return errors.New("listen failed") }
		if code := runMain([]string{"-config", writeConfig(t)}); code != 1 {
			t.Fatalf("server error = %d, want 1", code)
		}
	}
}
