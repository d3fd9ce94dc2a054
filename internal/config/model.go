// internal/config/model.go
//
// Typed configuration model for Onatrix.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `conf/.env`                      – dotenv values,
//   • `conf/global.yaml`                        – primary static file,
//   • `ONATRIX_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	TrustProxy   bool          `koanf:"trust_proxy"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gte=0"`
	TemplatesDir string        `koanf:"templates_dir"`
	RateLimit    RateLimit     `koanf:"rate_limit"`
}

// RateLimit configures the per-client token bucket on form posts.  A zero
// PerMinute disables limiting.
type RateLimit struct {
	PerMinute float64 `koanf:"per_minute" validate:"gte=0"`
	Burst     int     `koanf:"burst"      validate:"gte=0"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The DSN (without password) lives in YAML so operators can tweak host,
// port, or flags.  The password is usually a `vault:` reference and is
// spliced into the DSN at connect time.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
}

//
// Log section
//

// Log configures internal/logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// GeoIP section
//

// GeoIP points at an optional GeoLite2-City database.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Forms section
//

// Forms configures the forms subsystem.
type Forms struct {
	PoliciesDir string   `koanf:"policies_dir"`
	CSRF        bool     `koanf:"csrf"`
	CSRFKey     string   `koanf:"csrf_key"`
	Callback    Callback `koanf:"callback"`
}

// Callback configures the callback-request form.
type Callback struct {
	Policy        string   `koanf:"policy"         validate:"required"`
	StrictOptions bool     `koanf:"strict_options"`
	Options       []Option `koanf:"options"        validate:"dive"`
	Notify        Notify   `koanf:"notify"`
}

// Option is one selectable entry of the callback form.
type Option struct {
	Value string `koanf:"value" validate:"required"`
	Label string `koanf:"label"`
}

// Notify configures post-save notifications.  Every field is optional.
type Notify struct {
	EmailTo      []string `koanf:"email_to"       validate:"omitempty,dive,email"`
	EmailFrom    string   `koanf:"email_from"`
	ResendAPIKey string   `koanf:"resend_api_key"`
	WebhookURL   string   `koanf:"webhook_url"    validate:"omitempty,url"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // ONATRIX_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Log      Log      `koanf:"log"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Forms    Forms    `koanf:"forms"`
	Paths    Paths    `koanf:"-"`
}

// applyDefaults fills zero values that have a sensible default.
func (c *Config) applyDefaults() {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.RateLimit.PerMinute > 0 && c.HTTP.RateLimit.Burst == 0 {
		c.HTTP.RateLimit.Burst = 5
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 15
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Forms.Callback.Policy == "" {
		c.Forms.Callback.Policy = "international"
	}
}
