package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:",squash"`
	Log     LogConfig     `mapstructure:",squash"`
	Mongo   MongoConfig   `mapstructure:",squash"`
	Auth    AuthConfig    `mapstructure:",squash"`
	SMTP    SMTPConfig    `mapstructure:",squash"`
	Cache   CacheConfig   `mapstructure:",squash"`
	Options OptionsConfig `mapstructure:",squash"`
}

type AppConfig struct {
	Env         string `mapstructure:"app_env"`
	Port        string `mapstructure:"port"`
	FrontendURL string `mapstructure:"frontend_url"`
}

// AllowedOrigins is the browser origin allow-list for CORS and WebSockets.
func (a AppConfig) AllowedOrigins() []string {
	origins := []string{"http://localhost:3000"}
	for _, o := range strings.Split(a.FrontendURL, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" && o != origins[0] {
			origins = append(origins, o)
		}
	}
	return origins
}

type LogConfig struct {
	Level    string `mapstructure:"log_level"`
	Encoding string `mapstructure:"log_encoding"`
}

type MongoConfig struct {
	URI     string        `mapstructure:"mongo_uri"`
	DB      string        `mapstructure:"mongo_db"`
	Timeout time.Duration `mapstructure:"mongo_timeout"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"jwt_ttl"`
	ResetTokenTTL time.Duration `mapstructure:"reset_token_ttl"`
	ResetURL      string        `mapstructure:"reset_url"`
	RatePerMin    float64       `mapstructure:"auth_rate_per_min"`
	RateBurst     int           `mapstructure:"auth_rate_burst"`
}

type SMTPConfig struct {
	Host string `mapstructure:"smtp_host"`
	Port string `mapstructure:"smtp_port"`
	User string `mapstructure:"smtp_user"`
	Pass string `mapstructure:"smtp_pass"`
	From string `mapstructure:"smtp_from"`
}

// Configured reports whether enough is set to actually send mail.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Port != "" && c.User != "" && c.Pass != ""
}

type CacheConfig struct {
	Backend       string        `mapstructure:"cache_backend"`
	TTL           time.Duration `mapstructure:"cache_ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

type OptionsConfig struct {
	CSVPath       string `mapstructure:"options_csv"`
	ImportOnStart bool   `mapstructure:"options_import_on_start"`
	ImportCron    string `mapstructure:"options_import_cron"`
}

var keys = []string{
	"app_env", "port", "frontend_url",
	"log_level", "log_encoding",
	"mongo_uri", "mongo_db", "mongo_timeout",
	"jwt_secret", "jwt_ttl", "reset_token_ttl", "reset_url", "auth_rate_per_min", "auth_rate_burst",
	"smtp_host", "smtp_port", "smtp_user", "smtp_pass", "smtp_from",
	"cache_backend", "cache_ttl", "redis_addr", "redis_password", "redis_db",
	"options_csv", "options_import_on_start", "options_import_cron",
}

// Load reads .env (when present) and the process environment.
// JWT_SECRET and MONGO_URI are required.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("app_env", "dev")
	v.SetDefault("port", "8000")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "json")
	v.SetDefault("mongo_db", "strategy")
	v.SetDefault("mongo_timeout", "10s")
	v.SetDefault("jwt_ttl", "12h")
	v.SetDefault("reset_token_ttl", "1h")
	v.SetDefault("reset_url", "http://localhost:3000/reset-password")
	v.SetDefault("auth_rate_per_min", 20)
	v.SetDefault("auth_rate_burst", 10)
	v.SetDefault("cache_backend", "none")
	v.SetDefault("cache_ttl", "30s")
	v.SetDefault("redis_db", 0)
	v.SetDefault("options_import_on_start", false)
	v.SetDefault("options_import_cron", "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))

	if cfg.Auth.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET not set in env")
	}
	if cfg.Mongo.URI == "" {
		return Config{}, errors.New("MONGO_URI not set in env")
	}
	return cfg, nil
}
