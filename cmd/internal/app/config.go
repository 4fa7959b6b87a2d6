package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment key: http.addr is PULSELOG_HTTP_ADDR.
const EnvPrefix = "PULSELOG"

// EnvConfigFile names an optional yaml, toml or json config file.
const EnvConfigFile = EnvPrefix + "_CONFIG"

// Config contains all runtime configuration.
type Config struct {
	HTTP HTTPConfig `mapstructure:"http"`
	Log  LogConfig  `mapstructure:"log"`
	DB   DBConfig   `mapstructure:"db"`
	Auth AuthConfig `mapstructure:"auth"`
	CORS CORSConfig `mapstructure:"cors"`
}

type HTTPConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`

	// TrustProxy makes audit logs use X-Forwarded-For.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	// URL empty selects the in-memory stores.
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	Migrate  bool   `mapstructure:"migrate"`

	// ReadinessRequired makes /readyz return 503 unless a database is configured.
	ReadinessRequired bool `mapstructure:"readiness_required"`
}

type AuthConfig struct {
	AccessSecret      string        `mapstructure:"access_secret"`
	AccessTTL         time.Duration `mapstructure:"access_ttl"`
	RefreshTTL        time.Duration `mapstructure:"refresh_ttl"`
	RefreshTokenBytes int           `mapstructure:"refresh_token_bytes"`
	TokenHMACKey      string        `mapstructure:"token_hmac_key"`
	RequireTokenHMAC  bool          `mapstructure:"require_token_hmac"`
	PBKDF2Iterations  int           `mapstructure:"pbkdf2_iterations"`
	CookieSecure      bool          `mapstructure:"cookie_secure"`
	CookieDomain      string        `mapstructure:"cookie_domain"`
}

type CORSConfig struct {
	// AllowedOrigins empty echoes any Origin. Entries may use a wildcard port,
	// e.g. http://localhost:*.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxAgeSeconds  int      `mapstructure:"max_age_seconds"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.read_header_timeout", "5s")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.max_header_bytes", 1<<20)
	v.SetDefault("http.max_body_bytes", 1<<20)
	v.SetDefault("http.trust_proxy", false)

	v.SetDefault("log.level", "info")

	v.SetDefault("db.url", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.migrate", true)
	v.SetDefault("db.readiness_required", false)

	v.SetDefault("auth.access_secret", "")
	v.SetDefault("auth.access_ttl", "15m")
	v.SetDefault("auth.refresh_ttl", "17520h")
	v.SetDefault("auth.refresh_token_bytes", 32)
	v.SetDefault("auth.token_hmac_key", "")
	v.SetDefault("auth.require_token_hmac", false)
	v.SetDefault("auth.pbkdf2_iterations", 100_000)
	v.SetDefault("auth.cookie_secure", true)
	v.SetDefault("auth.cookie_domain", "")

	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("cors.max_age_seconds", 600)
}

// LoadConfig reads defaults, the optional PULSELOG_CONFIG file and PULSELOG_* env vars.
func LoadConfig() (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.CORS.AllowedOrigins = cleanOrigins(cfg.CORS.AllowedOrigins)
	return cfg, nil
}

// cleanOrigins splits comma lists that arrive as a single element and drops blanks.
func cleanOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		for _, o := range strings.Split(raw, ",") {
			o = strings.TrimRight(strings.TrimSpace(o), "/")
			if o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
