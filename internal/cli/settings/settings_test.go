package settings

import (
	"context"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/confkit-go/pkg/confkit"
	"github.com/yndnr/confkit-go/pkg/errs"
	"github.com/yndnr/confkit-go/pkg/logger"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

const sampleSettings = `
namespace: app
loaders:
  - type: env
  - type: memory
    data:
      PORT: "9090"
      TAGS: "a,b"
  - type: dotenv
    path: %s
keys:
  PORT:
    type: int
    default: "8080"
  TAGS:
    type: string-array
    separator: ","
  DATABASE_URL:
    type: url
    required: true
    log_format: partial
  DEBUG:
    type: bool
    default: "false"
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "DATABASE_URL=postgres://db.example.com/app\n")
	path := writeFile(t, dir, "confkit.yaml", strings.Replace(sampleSettings, "%s", envFile, 1))

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Namespace != "app" {
		t.Errorf("Namespace = %q, want app", s.Namespace)
	}
	if len(s.Loaders) != 3 || s.Loaders[1].Data["PORT"] != "9090" {
		t.Errorf("Loaders = %+v", s.Loaders)
	}
	if ks := s.Keys["PORT"]; ks.Type != "int" || ks.Default == nil || *ks.Default != "8080" {
		t.Errorf("Keys[PORT] = %+v", ks)
	}
	if !s.Keys["DATABASE_URL"].Required {
		t.Error("DATABASE_URL should be required")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "confkit.yaml", `
loaders:
  - type: env
keys:
  PORT:
    type: int
`)
	t.Setenv("CONFKIT_NAMESPACE", "from-env")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Namespace != "from-env" {
		t.Errorf("Namespace = %q, want from-env", s.Namespace)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	def := "x"
	tests := []struct {
		name    string
		s       Settings
		wantErr string
	}{
		{
			name: "valid",
			s: Settings{
				Loaders: []LoaderSettings{{Type: "env"}},
				Keys:    map[string]KeySettings{"A": {}},
			},
		},
		{
			name:    "no loaders",
			s:       Settings{Keys: map[string]KeySettings{"A": {}}},
			wantErr: "Loaders",
		},
		{
			name: "unknown loader type",
			s: Settings{
				Loaders: []LoaderSettings{{Type: "consul"}},
				Keys:    map[string]KeySettings{"A": {}},
			},
			wantErr: "Type",
		},
		{
			name: "file loader without path",
			s: Settings{
				Loaders: []LoaderSettings{{Type: "json"}},
				Keys:    map[string]KeySettings{"A": {}},
			},
			wantErr: "Path",
		},
		{
			name: "fetch without url",
			s: Settings{
				Loaders: []LoaderSettings{{Type: "fetch"}},
				Keys:    map[string]KeySettings{"A": {}},
			},
			wantErr: "URL",
		},
		{
			name: "client cert without key",
			s: Settings{
				Loaders: []LoaderSettings{{Type: "fetch", URL: "https://config.example.com", CertFile: "client.crt"}},
				Keys:    map[string]KeySettings{"A": {}},
			},
			wantErr: "KeyFile",
		},
		{
			name: "unknown key type",
			s: Settings{
				Loaders: []LoaderSettings{{Type: "env"}},
				Keys:    map[string]KeySettings{"A": {Type: "duration"}},
			},
			wantErr: "Type",
		},
		{
			name: "required with default",
			s: Settings{
				Loaders: []LoaderSettings{{Type: "env"}},
				Keys:    map[string]KeySettings{"A": {Required: true, Default: &def}},
			},
			wantErr: "required keys cannot have a default",
		},
		{
			name: "bad key format",
			s: Settings{
				Loaders: []LoaderSettings{{Type: "env"}},
				Keys:    map[string]KeySettings{"A": {Type: "semicolon", KeyFormat: "kebab"}},
			},
			wantErr: "unknown key format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "DATABASE_URL=postgres://db.example.com/app\nPORT=7070\n")
	path := writeFile(t, dir, "confkit.yaml", strings.Replace(sampleSettings, "%s", envFile, 1))

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	kit, err := Build(ctx, s, BuildOptions{
		Logger:    logger.Nop(),
		LookupEnv: envMap(map[string]string{"DEBUG": "true"}),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer kit.Close()

	port, err := confkit.Get[int](ctx, kit, "PORT")
	if err != nil || port != 9090 {
		t.Errorf("PORT = %d, %v; want 9090 from memory", port, err)
	}
	tags, err := confkit.Get[[]string](ctx, kit, "TAGS")
	if err != nil || len(tags) != 2 || tags[1] != "b" {
		t.Errorf("TAGS = %v, %v", tags, err)
	}
	debug, err := confkit.Get[bool](ctx, kit, "DEBUG")
	if err != nil || !debug {
		t.Errorf("DEBUG = %v, %v; want true from env", debug, err)
	}

	e, err := kit.GetEntry(ctx, "DATABASE_URL")
	if err != nil {
		t.Fatalf("GetEntry() error = %v", err)
	}
	if e.LoaderType != "dotenv" || e.Path != "file:"+envFile+"#DATABASE_URL" {
		t.Errorf("DATABASE_URL entry = %+v", e)
	}
}

func TestBuild_DefaultsAndMissing(t *testing.T) {
	ctx := context.Background()
	def := "8080"
	s := &Settings{
		Loaders: []LoaderSettings{{Type: "env"}},
		Keys: map[string]KeySettings{
			"PORT":   {Type: "int", Default: &def},
			"SECRET": {Required: true},
		},
	}
	kit, err := Build(ctx, s, BuildOptions{Logger: logger.Nop(), LookupEnv: envMap(nil)})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	e, err := kit.GetEntry(ctx, "PORT")
	if err != nil || !e.Default || e.Value != 8080 {
		t.Errorf("PORT entry = %+v, %v", e, err)
	}
	if _, err := kit.Get(ctx, "SECRET"); !errors.Is(err, errs.ErrMissingValue) {
		t.Errorf("Get(SECRET) error = %v, want missing value", err)
	}
}

func TestBuild_Errors(t *testing.T) {
	bad := "not-a-number"
	s := &Settings{
		Loaders: []LoaderSettings{
			{Type: "env"},
			{Type: "fetch", URL: "relative/path"},
			{Type: "store", InMemory: true, Cipher: "chacha20-poly1305", KeyEnv: "STORE_KEY"},
		},
		Keys: map[string]KeySettings{
			"PORT": {Type: "int", Default: &bad},
		},
	}

	_, err := Build(context.Background(), s, BuildOptions{Logger: logger.Nop(), LookupEnv: envMap(nil)})
	if err == nil {
		t.Fatal("Build() expected error")
	}
	for _, want := range []string{"loader 1 (fetch)", "loader 2 (store)", "STORE_KEY is not set", "key PORT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Build() error = %v, want containing %q", err, want)
		}
	}
}

func TestBuild_Store(t *testing.T) {
	ctx := context.Background()
	key := strings.Repeat("ab", 32)
	s := &Settings{
		Loaders: []LoaderSettings{
			{Type: "store", InMemory: true, Cipher: "auto", KeyEnv: "STORE_KEY"},
		},
		Keys: map[string]KeySettings{"FEATURE": {Type: "bool"}},
	}

	kit, err := Build(ctx, s, BuildOptions{Logger: logger.Nop(), LookupEnv: envMap(map[string]string{"STORE_KEY": key})})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer kit.Close()

	e, err := kit.GetEntry(ctx, "FEATURE")
	if err != nil || e.Found {
		t.Errorf("FEATURE on empty store = %+v, %v", e, err)
	}
}

func TestBuild_SecretsDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "api_token", "s3cr3t\n")

	s := &Settings{
		Loaders: []LoaderSettings{{Type: "secrets-dir", Dir: dir, Names: []string{"API_TOKEN"}, Lower: true}},
		Keys:    map[string]KeySettings{"API_TOKEN": {LogFormat: "masked"}},
	}
	kit, err := Build(ctx, s, BuildOptions{Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer kit.Close()

	v, err := kit.GetString(ctx, "API_TOKEN")
	if err != nil || v != "s3cr3t" {
		t.Errorf("API_TOKEN = %q, %v", v, err)
	}
}

func TestBuild_FetchTLS(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"REGION":"eu-west-1"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	caFile := writeFile(t, dir, "ca.pem", string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})))

	s := &Settings{
		Loaders: []LoaderSettings{{
			Type:    "fetch",
			URL:     srv.URL + "/config.json",
			CAFile:  caFile,
			Headers: map[string]string{"Authorization": "Bearer t"},
			Strict:  true,
		}},
		Keys: map[string]KeySettings{"REGION": {}},
	}
	kit, err := Build(ctx, s, BuildOptions{Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer kit.Close()

	e, err := kit.GetEntry(ctx, "REGION")
	if err != nil {
		t.Fatalf("GetEntry() error = %v", err)
	}
	if e.Value != "eu-west-1" || e.LoaderType != "fetch" {
		t.Errorf("REGION = %+v", e)
	}
}

func TestBuild_FetchMissingCA(t *testing.T) {
	s := &Settings{
		Loaders: []LoaderSettings{{Type: "fetch", URL: "https://config.example.com", CAFile: filepath.Join(t.TempDir(), "missing.pem")}},
		Keys:    map[string]KeySettings{"REGION": {}},
	}
	if _, err := Build(context.Background(), s, BuildOptions{Logger: logger.Nop()}); err == nil || !strings.Contains(err.Error(), "loader 0 (fetch)") {
		t.Errorf("Build() error = %v", err)
	}
}
