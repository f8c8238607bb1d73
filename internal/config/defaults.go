package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"disqusctl/pkg/disqus"
)

const (
	appDir         = "disqusctl"
	configFileName = "config.yaml"
)

// DefaultPath returns $XDG_CONFIG_HOME/disqusctl/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appDir, configFileName)
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Disqus: DisqusConfig{
			APIBaseURL:    disqus.DefaultAPIBaseURL,
			AuthBaseURL:   disqus.DefaultAuthBaseURL,
			ParamEncoding: "raw",
		},
		Store: StoreConfig{
			Kind: "file",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}
