package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"disqusctl/pkg/logging"
)

const subsystem = "ConfigLoader"

// Environment variables that override the config file.
const (
	EnvPublicKey   = "DISQUS_PUBLIC_KEY"
	EnvSecretKey   = "DISQUS_SECRET_KEY"
	EnvRedirectURI = "DISQUS_REDIRECT_URI"
	EnvStore       = "DISQUSCTL_STORE"
	EnvRedisURL    = "DISQUSCTL_REDIS_URL"
)

// Load reads the configuration at path (DefaultPath when empty). Precedence,
// highest first: process environment, .env files, the YAML file, defaults.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug(subsystem, "No config file found at %s, using defaults", path)
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", path, err)
		}
		logging.Debug(subsystem, "Loaded configuration from %s", path)
	}

	dotenv, err := readDotEnv(".env", filepath.Join(filepath.Dir(path), ".env"))
	if err != nil {
		return Config{}, err
	}
	config.applyEnv(func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	})

	return config, nil
}

// readDotEnv merges the .env files that exist. Earlier files win.
func readDotEnv(files ...string) (map[string]string, error) {
	merged := make(map[string]string)
	seen := make(map[string]bool)
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err == nil {
			if seen[abs] {
				continue
			}
			seen[abs] = true
		}
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}

		values, err := godotenv.Read(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		for k, v := range values {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
		logging.Debug(subsystem, "Loaded environment from %s", file)
	}
	return merged, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Disqus.PublicKey, EnvPublicKey)
	set(&c.Disqus.SecretKey, EnvSecretKey)
	set(&c.Disqus.RedirectURI, EnvRedirectURI)
	set(&c.Store.Kind, EnvStore)
	set(&c.Store.RedisURL, EnvRedisURL)
}

// Save writes config to path as YAML, creating the directory if needed.
// The file may contain the secret key and is written with mode 0600.
func Save(path string, config Config) error {
	if path == "" {
		path = DefaultPath()
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}
