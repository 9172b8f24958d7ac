package fileloader

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/confkit-go/internal/infra/confloader"
	"github.com/yndnr/confkit-go/pkg/loadable"
	"github.com/yndnr/confkit-go/pkg/loader"
	"github.com/yndnr/confkit-go/pkg/logger"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func nop() loader.Option { return loader.WithLogger(logger.Nop()) }

func TestNew_Defaults(t *testing.T) {
	tests := []struct {
		cfg      Config
		wantType string
		wantPath string
	}{
		{Config{}, "dotenv", ".env"},
		{Config{Path: "config.json"}, "json-file", "config.json"},
		{Config{Path: "config.yml"}, "yaml-file", "config.yml"},
		{Config{Path: "settings", Format: confloader.FormatJSON}, "json-file", "settings"},
		{Config{Path: "config.json", Type: "app-json"}, "app-json", "config.json"},
	}

	for _, tt := range tests {
		l := New(tt.cfg, nop())
		if l.Type() != tt.wantType {
			t.Errorf("New(%+v).Type() = %q, want %q", tt.cfg, l.Type(), tt.wantType)
		}
		if l.Path() != tt.wantPath {
			t.Errorf("New(%+v).Path() = %q, want %q", tt.cfg, l.Path(), tt.wantPath)
		}
	}
}

func TestLoader_Dotenv(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".env")
	writeFile(t, path, "HOST=example.com\nPORT=8080\n")

	l := New(Config{Path: path}, nop())

	res, err := l.ValueResult(ctx, "HOST")
	if err != nil {
		t.Fatalf("ValueResult() error = %v", err)
	}
	if !res.Found || res.Value != "example.com" {
		t.Errorf("ValueResult(HOST) = %+v", res)
	}
	if want := "file:" + path + "#HOST"; res.Path != want {
		t.Errorf("Path = %q, want %q", res.Path, want)
	}

	res, err = l.ValueResult(ctx, "MISSING")
	if err != nil || res.Found {
		t.Errorf("ValueResult(MISSING) = %+v, %v", res, err)
	}
}

func TestLoader_JSONWithOverrideKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"database_url":"pg://db","pool":{"size":4}}`)

	l := New(Config{Path: path}, nop(), loader.WithOverrideKeys(map[string]string{"DATABASE_URL": "database_url"}))

	v, ok, err := l.Get(ctx, "DATABASE_URL")
	if err != nil || !ok || v != "pg://db" {
		t.Errorf("Get(DATABASE_URL) = %q, %v, %v", v, ok, err)
	}
	v, ok, err = l.Get(ctx, "pool")
	if err != nil || !ok || v != `{"size":4}` {
		t.Errorf("Get(pool) = %q, %v, %v", v, ok, err)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".env")

	l := New(Config{Path: path}, nop())
	if _, err := l.ValueResult(ctx, "K"); err == nil {
		t.Error("ValueResult() expected error for missing file")
	}

	l = New(Config{Path: path, Optional: true}, nop())
	res, err := l.ValueResult(ctx, "K")
	if err != nil {
		t.Fatalf("ValueResult() error = %v", err)
	}
	if res.Found {
		t.Errorf("ValueResult() = %+v, want not found", res)
	}
}

func TestLoader_MalformedContent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `["not","an","object"]`)

	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}

	l := New(Config{Path: path}, loader.WithLogger(log))
	res, err := l.ValueResult(ctx, "K")
	if err != nil {
		t.Fatalf("silent ValueResult() error = %v", err)
	}
	if res.Found {
		t.Errorf("ValueResult() = %+v, want not found", res)
	}
	if !strings.Contains(buf.String(), "ConfigLoader[json-file]:") || !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("parse failure not logged:\n%s", buf.String())
	}

	strict := New(Config{Path: path, Strict: true}, nop())
	if _, err := strict.ValueResult(ctx, "K"); err == nil {
		t.Error("strict ValueResult() expected error")
	}
}

func TestLoader_Disabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.env")

	l := New(Config{Path: path}, nop(), loader.WithDisabled(loadable.Value(true)))
	res, err := l.ValueResult(context.Background(), "K")
	if err != nil || res != nil {
		t.Errorf("ValueResult() = %+v, %v; want nil, nil", res, err)
	}
	if l.Loaded() {
		t.Error("disabled loader read its file")
	}
}

func TestLoader_Watch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.env")
	writeFile(t, path, "K=v1\n")

	l := New(Config{Path: path, Watch: true, Debounce: 10 * time.Millisecond}, nop())
	defer l.Close()

	if v, _, err := l.Get(ctx, "K"); err != nil || v != "v1" {
		t.Fatalf("Get() = %q, %v", v, err)
	}
	if !l.Watching() {
		t.Fatal("Watching() = false after first load")
	}

	updated := make(chan struct{}, 1)
	sub := l.OnUpdate(func() {
		select {
		case updated <- struct{}{}:
		default:
		}
	})
	defer sub.Unsubscribe()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "K=v2\n")

	deadline := time.After(3 * time.Second)
	for {
		select {
		case <-updated:
		case <-deadline:
			t.Fatal("file change was not picked up")
		}
		if v, _, _ := l.Get(ctx, "K"); v == "v2" {
			break
		}
	}

	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if l.Watching() {
		t.Error("Watching() = true after Close()")
	}
}
