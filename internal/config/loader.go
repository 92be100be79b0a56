// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from five layers (highest
precedence last):

  1. Built-in defaults.
  2. Optional `.env` file at `<root>/conf/.env`.
  3. `conf/pages.yaml`.
  4. Environment variables prefixed `PAGES_`, where `__` maps to “.”
     (e.g., `PAGES_HTTP__LISTEN_ADDR → http.listen_addr`).
  5. Vault references found in layers 3 and 4, resolved and overlaid
     through a confmap provider.

After merging, the tree is unmarshalled into typed structs, validated,
enriched with the runtime root path, and cached in an `atomic.Pointer`
for lock-free reads.  `Reload()` calls `Load()` again and swaps the
pointer.

Instrumentation
---------------
  • DEBUG spans : root discovery, YAML read, vault overlay.
  • ERROR spans : YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  : final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/pages.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • A Vault client is only created when a `vault:` value is present.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/pagemanager/internal/secrets"
)

// EnvPrefix scopes environment overrides.
const EnvPrefix = "PAGES_"

var current atomic.Pointer[Config]

// NewResolver builds the secret resolver on first use.  Tests swap it.
var NewResolver = func(ctx context.Context) (secrets.Resolver, error) {
	return secrets.New(ctx, 5*time.Minute)
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves PAGES_ROOT or climbs directories until conf/pages.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("PAGES_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "pages.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

func defaults() map[string]any {
	return map[string]any{
		"http.listen_addr":     ":8080",
		"database.max_open":    15,
		"database.max_idle":    5,
		"pages.store":          "sql",
		"pages.regions":        []string{"top", "bottom"},
		"pages.cache_ttl":      "5m",
		"pages.template_cache": 128,
		"auth.issuer":          "pagemanager",
		"auth.token_ttl":       "1h",
		"log.level":            "info",
	}
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load discovers the root and loads from there.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, rootDir())
}

// LoadFrom reads defaults, .env, YAML, env overrides, and vault values
// under root, validates, and caches Config.
func LoadFrom(ctx context.Context, root string) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, err
	}

	yamlPath := filepath.Join(root, "conf", "pages.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: PAGES_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k); err != nil {
		zap.S().Errorw("config vault overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if cfg.Pages.Dir == "" {
		cfg.Pages.Dir = root
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = filepath.Join(root, "logs")
	}
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"store", cfg.Pages.Store,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// resolveSecrets overlays every "vault:" string with its secret.
func resolveSecrets(ctx context.Context, k *koanf.Koanf) error {
	var refs []string
	for key, val := range k.All() {
		if s, ok := val.(string); ok && secrets.IsReference(s) {
			refs = append(refs, key)
		}
	}
	if len(refs) == 0 {
		return nil
	}
	sort.Strings(refs)

	r, err := NewResolver(ctx)
	if err != nil {
		return err
	}

	resolved := make(map[string]any, len(refs))
	for _, key := range refs {
		val, err := r.Resolve(ctx, k.String(key))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		resolved[key] = val
	}
	zap.S().Debugw("config vault values resolved", "keys", refs)
	return k.Load(confmap.Provider(resolved, "."), nil)
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }

func Reload(ctx context.Context) error { _, err := Load(ctx); return err }
