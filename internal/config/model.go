// internal/config/model.go
//
// Typed configuration model for the page manager.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from four overlay layers:
//
//   • built-in defaults                       – see defaults(),
//   • optional `.env`                         – dotenv values,
//   • `conf/pages.yaml`                       – primary static file,
//   • `PAGES_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through internal/secrets *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.  Zero timeouts fall back to the
// server package defaults.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The *template* (`DSN`) stays in YAML so operators can tweak host, port,
// or flags without touching Vault.  When it contains a single `%s` verb the
// *secret* (`Password`) is injected there at runtime.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
}

// ConnString returns the DSN with the password filled in.
func (d Database) ConnString() string {
	if strings.Count(d.DSN, "%s") == 1 {
		return fmt.Sprintf(d.DSN, d.Password)
	}
	return d.DSN
}

//
// Pages section
//

// Pages configures page storage, layouts, and caching.
type Pages struct {
	// Store selects the page backend: the `page` table or YAML files.
	Store string `koanf:"store" validate:"required,oneof=sql file"`
	// Dir holds <id>.yaml page files (file store) under pages/, and
	// layout templates under templates/.  Defaults to the root.
	Dir string `koanf:"dir"`
	// Regions lists the known regions of block_display variants.
	Regions []string `koanf:"regions" validate:"min=1,dive,required"`
	// CacheTTL bounds how long a cached page configuration is trusted.
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`
	// TemplateCache is the number of parsed layouts kept in memory.
	TemplateCache int `koanf:"template_cache" validate:"gte=1"`
}

//
// Auth section
//

// Auth configures bearer-token verification.
type Auth struct {
	JWTSecret string        `koanf:"jwt_secret" validate:"required,min=16"`
	Issuer    string        `koanf:"issuer"     validate:"required"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

//
// Geo section
//

// Geo points at an optional MaxMind City database.  Empty disables
// country lookups.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Log section
//

// Log configures the zap logger.
type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	Dir   string `koanf:"dir"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime.
type Paths struct {
	Root string // PAGES_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Pages    Pages    `koanf:"pages"`
	Auth     Auth     `koanf:"auth"`
	Geo      Geo      `koanf:"geo"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"`
}

// StoreDir is where the file store keeps page definitions.
func (p Pages) StoreDir() string { return filepath.Join(p.Dir, "pages") }

// TemplateDir is where layouts are looked up.
func (p Pages) TemplateDir() string { return filepath.Join(p.Dir, "templates") }
