package config

// Config is the top-level configuration structure for disqusctl.
type Config struct {
	Disqus DisqusConfig `yaml:"disqus"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

// DisqusConfig holds the application credentials and API endpoints.
type DisqusConfig struct {
	PublicKey   string `yaml:"publicKey,omitempty"`
	SecretKey   string `yaml:"secretKey,omitempty"`
	RedirectURI string `yaml:"redirectURI,omitempty"`

	APIBaseURL  string `yaml:"apiBaseURL,omitempty"`  // default: https://disqus.com/api/3.0/
	AuthBaseURL string `yaml:"authBaseURL,omitempty"` // default: https://disqus.com/api/oauth/2.0/

	// ParamEncoding is "raw" (default) or "escaped".
	ParamEncoding string `yaml:"paramEncoding,omitempty"`
}

// StoreConfig selects where the identity is persisted.
type StoreConfig struct {
	Kind     string `yaml:"kind,omitempty"`     // file, pebble, redis or memory (default: file)
	Path     string `yaml:"path,omitempty"`     // directory for file, database path for pebble
	RedisURL string `yaml:"redisURL,omitempty"` // required for redis
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn or error
	Format string `yaml:"format,omitempty"` // text or json
}
