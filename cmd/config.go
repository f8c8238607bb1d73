package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"disqusctl/internal/config"
)

// configInitOptions holds the values written by config init.
type configInitOptions struct {
	publicKey   string
	secretKey   string
	redirectURI string
	store       string
	force       bool
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the disqusctl config file",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd(), newConfigPathCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	opts := &configInitOptions{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with your application credentials",
		Long: `Write a config file holding your Disqus application credentials.

Examples:
  disqusctl config init --public-key PUB --secret-key SECRET --redirect-uri http://localhost:8976/callback`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.publicKey, "public-key", "", "Disqus application public key")
	cmd.Flags().StringVar(&opts.secretKey, "secret-key", "", "Disqus application secret key")
	cmd.Flags().StringVar(&opts.redirectURI, "redirect-uri", "", "redirect URI registered for the application")
	cmd.Flags().StringVar(&opts.store, "store", "file", "identity store: file, pebble, redis or memory")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing config file")
	return cmd
}

func runConfigInit(cmd *cobra.Command, opts *configInitOptions) error {
	path := configFilePath()
	if _, err := os.Stat(path); err == nil && !opts.force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfg := config.DefaultConfig()
	cfg.Disqus.PublicKey = opts.publicKey
	cfg.Disqus.SecretKey = opts.secretKey
	cfg.Disqus.RedirectURI = opts.redirectURI
	cfg.Store.Kind = opts.store
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(path, cfg); err != nil {
		return err
	}
	authPrint(cmd, "Wrote %s\n", path)
	if err := cfg.ValidateCredentials(); err != nil {
		authPrint(cmd, "Credentials are incomplete; set them in the file or the environment:\n%v\n", err)
	}
	return nil
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file, .env files and
environment variables were applied. The secret key is masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Disqus.SecretKey = maskSecret(cfg.Disqus.SecretKey)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), configFilePath())
		},
	}
}

func configFilePath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// maskSecret keeps the first four characters of secret.
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", 8)
}
