package config

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnv overrides config values from JOIN_* environment variables.
// Unset variables leave the value untouched.
func (c *Config) ApplyEnv() {
	if v := getEnv("JOIN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	switch strings.ToLower(getEnv("JOIN_DEV_STATIC")) {
	case "1", "true", "yes":
		c.Server.DevStatic = true
	}
	if v := getEnv("JOIN_STORE_DRIVER"); v != "" {
		c.Store.Driver = strings.ToLower(v)
	}
	if v := getEnv("JOIN_STORE_URL"); v != "" {
		c.Store.BaseURL = v
	}
	if v := getEnv("JOIN_STORE_ROOT"); v != "" {
		c.Store.Root = v
	}
	if v := getEnv("JOIN_STORE_AUTH"); v != "" {
		c.Store.AuthToken = v
	}
	if val := getEnvInt("JOIN_STORE_TIMEOUT_SECONDS"); val > 0 {
		c.Store.TimeoutSeconds = val
	}
	if v := getEnv("JOIN_DATA_DIR"); v != "" {
		c.Store.DataDir = v
	}
	if v := getEnv("JOIN_REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := getEnv("JOIN_REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if v := getEnv("JOIN_SQLITE_PATH"); v != "" {
		c.Store.SQLite.Path = v
	}
	if v := getEnv("JOIN_COOKIE_SECURE"); v != "" {
		c.Auth.CookieSecure = strings.ToLower(v)
	}
	if val := getEnvInt("JOIN_SESSION_TTL_HOURS"); val > 0 {
		c.Auth.SessionTTLHours = val
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvInt(key string) int {
	val := getEnv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}
