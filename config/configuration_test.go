package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func buildFrom(t *testing.T, b *Builder) Configuration {
	t.Helper()
	cfg, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return cfg
}

func TestInMemoryLookup(t *testing.T) {
	cfg := buildFrom(t, NewBuilder().AddInMemory(map[string]any{
		"server": map[string]any{
			"host":    "localhost",
			"port":    8080,
			"debug":   true,
			"timeout": "5s",
		},
	}))

	if got := cfg.Get("server:host"); got != "localhost" {
		t.Errorf("Get(server:host) = %q", got)
	}
	// 点号分隔符也支持
	if got := cfg.Get("server.host"); got != "localhost" {
		t.Errorf("Get(server.host) = %q", got)
	}

	port, err := cfg.GetInt("server:port")
	if err != nil || port != 8080 {
		t.Errorf("GetInt = %d, %v", port, err)
	}
	debug, err := cfg.GetBool("server:debug")
	if err != nil || !debug {
		t.Errorf("GetBool = %v, %v", debug, err)
	}
	timeout, err := cfg.GetDuration("server:timeout")
	if err != nil || timeout != 5*time.Second {
		t.Errorf("GetDuration = %v, %v", timeout, err)
	}

	if !cfg.Exists("server:port") || cfg.Exists("server:missing") {
		t.Error("Exists mismatch")
	}
	if got := cfg.GetWithDefault("server:missing", "fallback"); got != "fallback" {
		t.Errorf("GetWithDefault = %q", got)
	}
}

func TestSourcePrecedence(t *testing.T) {
	cfg := buildFrom(t, NewBuilder().
		AddInMemory(map[string]any{
			"app": map[string]any{"name": "base", "version": "1.0"},
		}).
		AddInMemory(map[string]any{
			"app": map[string]any{"name": "override"},
		}))

	// 后加入的源覆盖同名键，未覆盖的键保留
	if got := cfg.Get("app:name"); got != "override" {
		t.Errorf("Get(app:name) = %q", got)
	}
	if got := cfg.Get("app:version"); got != "1.0" {
		t.Errorf("Get(app:version) = %q", got)
	}
}

func TestYamlFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	content := "server:\n  host: example.com\n  port: 9090\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := buildFrom(t, NewBuilder().AddYamlFile(path))
	if got := cfg.Get("server:host"); got != "example.com" {
		t.Errorf("Get(server:host) = %q", got)
	}

	// 缺失的可选文件不报错
	buildFrom(t, NewBuilder().AddYamlFile(filepath.Join(t.TempDir(), "none.yaml"), true))

	// 缺失的必选文件报错
	if _, err := NewBuilder().AddYamlFile(filepath.Join(t.TempDir(), "none.yaml")).Build(); err == nil {
		t.Error("Expected error for missing required file")
	}
}

func TestEnvironmentVariableSource(t *testing.T) {
	t.Setenv("TESTCFG_SERVER_PORT", "7070")
	t.Setenv("TESTCFG_SERVER_DEBUG", "true")
	t.Setenv("OTHER_KEY", "ignored")

	cfg := buildFrom(t, NewBuilder().AddEnvironmentVariables("TESTCFG_"))

	port, err := cfg.GetInt("server:port")
	if err != nil || port != 7070 {
		t.Errorf("GetInt = %d, %v", port, err)
	}
	if cfg.Exists("other:key") || cfg.Exists("key") {
		t.Error("Expected unprefixed variables to be ignored")
	}
}

type serverOptions struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func TestBindAndSection(t *testing.T) {
	cfg := buildFrom(t, NewBuilder().AddInMemory(map[string]any{
		"server": map[string]any{"host": "localhost", "port": 8080},
	}))

	var opts serverOptions
	if err := cfg.Bind("server", &opts); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if opts.Host != "localhost" || opts.Port != 8080 {
		t.Errorf("Bind = %+v", opts)
	}

	section := cfg.GetSection("server")
	if got := section.Get("host"); got != "localhost" {
		t.Errorf("Section Get = %q", got)
	}

	loaded, err := Load[serverOptions](cfg, "server")
	if err != nil || loaded.Port != 8080 {
		t.Errorf("Load = %+v, %v", loaded, err)
	}
}

func TestOptionsCacheSnapshot(t *testing.T) {
	cfg := buildFrom(t, NewBuilder().AddInMemory(map[string]any{
		"server": map[string]any{"host": "localhost", "port": 8080},
	}))

	cache := NewOptionsCache[serverOptions](cfg, "server")
	if got := cache.Get(); got.Port != 8080 {
		t.Errorf("Get = %+v", got)
	}

	snap := cache.Snapshot()
	snap.Port = 1
	if cache.Get().Port != 8080 {
		t.Error("Expected snapshot mutation to not affect cache")
	}

	// 不存在的配置节退化为零值
	missing := NewOptionsCache[serverOptions](cfg, "nope")
	if got := missing.Get(); got.Host != "" || got.Port != 0 {
		t.Errorf("Expected zero value, got %+v", got)
	}
}

func BenchmarkConfigGet(b *testing.B) {
	cfg, _ := NewBuilder().AddInMemory(map[string]any{
		"server": map[string]any{"host": "localhost", "port": 8080},
	}).Build()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cfg.Get("server:host")
	}
}
