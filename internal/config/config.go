package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Version string        `yaml:"version" json:"version"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Auth    AuthConfig    `yaml:"auth" json:"auth"`
	Palette PaletteConfig `yaml:"palette" json:"palette"`
}

type ServerConfig struct {
	Addr                   string `yaml:"addr" json:"addr"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" json:"shutdown_timeout_seconds"`
	DevStatic              bool   `yaml:"dev_static" json:"dev_static"`
	StaticDir              string `yaml:"static_dir" json:"static_dir"`
}

type StoreConfig struct {
	// Driver is one of http, memory, file, redis, sqlite.
	Driver         string       `yaml:"driver" json:"driver"`
	BaseURL        string       `yaml:"base_url" json:"base_url"`
	Root           string       `yaml:"root" json:"root"`
	AuthToken      string       `yaml:"auth_token" json:"-"`
	TimeoutSeconds int          `yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxCASRetries  int          `yaml:"max_cas_retries" json:"max_cas_retries"`
	DataDir        string       `yaml:"data_dir" json:"data_dir"`
	Redis          RedisConfig  `yaml:"redis" json:"redis"`
	SQLite         SQLiteConfig `yaml:"sqlite" json:"sqlite"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"-"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" json:"path"`
}

type AuthConfig struct {
	CookieName      string `yaml:"cookie_name" json:"cookie_name"`
	CookieSecure    string `yaml:"cookie_secure" json:"cookie_secure"` // auto | true | false
	SessionTTLHours int    `yaml:"session_ttl_hours" json:"session_ttl_hours"`
	BcryptCost      int    `yaml:"bcrypt_cost" json:"bcrypt_cost"`
	GuestName       string `yaml:"guest_name" json:"guest_name"`
}

type PaletteConfig struct {
	Colors []string `yaml:"colors" json:"colors"`
}

// DefaultColors is the avatar palette used when the config does not name one.
var DefaultColors = []string{
	"#FF7A00", "#FF5EB3", "#6E52FF", "#9327FF", "#00BEE8",
	"#1FD7C1", "#FF745E", "#FFA35E", "#FC71FF", "#FFC701",
	"#0038FF", "#C3FF2B", "#FFE62B", "#FF4646", "#FFBB2B",
}

func (s *ServerConfig) ApplyDefaults() {
	if s.Addr == "" {
		s.Addr = ":8080"
	}
	if s.ShutdownTimeoutSeconds <= 0 {
		s.ShutdownTimeoutSeconds = 30
	}
	if s.StaticDir == "" {
		s.StaticDir = "static"
	}
}

func (s *StoreConfig) ApplyDefaults() {
	if s.Driver == "" {
		s.Driver = "file"
	}
	if s.Root == "" {
		s.Root = "join"
	}
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = 10
	}
	if s.MaxCASRetries <= 0 {
		s.MaxCASRetries = 5
	}
	if s.DataDir == "" {
		s.DataDir = "data"
	}
	if s.Redis.Addr == "" {
		s.Redis.Addr = "localhost:6379"
	}
	if s.Redis.Prefix == "" {
		s.Redis.Prefix = "join:"
	}
	if s.SQLite.Path == "" {
		s.SQLite.Path = "join.db"
	}
}

func (a *AuthConfig) ApplyDefaults() {
	if a.CookieName == "" {
		a.CookieName = "join_session"
	}
	if a.CookieSecure == "" {
		a.CookieSecure = "auto"
	}
	if a.SessionTTLHours <= 0 {
		a.SessionTTLHours = 7 * 24
	}
	if a.BcryptCost <= 0 {
		a.BcryptCost = 12
	}
	if a.GuestName == "" {
		a.GuestName = "Guest"
	}
}

func (p *PaletteConfig) ApplyDefaults() {
	if len(p.Colors) == 0 {
		p.Colors = append([]string(nil), DefaultColors...)
	}
}

func (c *Config) ApplyDefaults() {
	c.Server.ApplyDefaults()
	c.Store.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Palette.ApplyDefaults()
}

// Default returns a config with every default applied.
func Default() *Config {
	c := &Config{Version: "1"}
	c.ApplyDefaults()
	return c
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Config
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	r.ApplyEnv()
	r.ApplyDefaults()
	return &r, nil
}

// LoadOrDefault is Load, except that a missing file yields Default with
// environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	c, err := Load(path)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	c = &Config{Version: "1"}
	c.ApplyEnv()
	c.ApplyDefaults()
	return c, nil
}
