package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"disqusctl/internal/config"
	"disqusctl/internal/store"
	"disqusctl/pkg/disqus"
	"disqusctl/pkg/logging"
)

// session bundles the loaded configuration with a client backed by the
// configured identity store.
type session struct {
	config config.Config
	store  store.Config
	client *disqus.Client
	closer io.Closer
}

// loadConfig reads and validates the config file and applies its log
// section unless --log-level or --log-format were given.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	level := cfg.Log.Level
	if cmd.Flags().Changed("log-level") || level == "" {
		level = logLevel
	}
	format := cfg.Log.Format
	if cmd.Flags().Changed("log-format") || format == "" {
		format = logFormat
	}
	parsed, err := logging.ParseLevel(level)
	if err != nil {
		return config.Config{}, err
	}
	logging.Init(parsed, logging.Format(format), cmd.ErrOrStderr())

	return cfg, nil
}

// openSession loads the configuration, opens the identity store and builds
// a client. When needCredentials is set, missing API credentials are
// reported before anything is opened.
func openSession(cmd *cobra.Command, needCredentials bool) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if needCredentials {
		if err := cfg.ValidateCredentials(); err != nil {
			return nil, err
		}
	}

	storeCfg, err := cfg.StoreOptions()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.ClientOptions()
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	identityStore, closer, err := store.Open(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", storeCfg.Kind, err)
	}

	client, err := disqus.NewClient(ctx, append(opts, disqus.WithStore(identityStore))...)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	return &session{config: cfg, store: storeCfg, client: client, closer: closer}, nil
}

// Close waits for background work of the client and releases the store.
func (s *session) Close() error {
	return errors.Join(s.client.Close(), s.closer.Close())
}
