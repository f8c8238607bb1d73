package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"disqusctl/internal/config"
	"disqusctl/pkg/disqus"
	"disqusctl/pkg/logging"
)

const watchSubsystem = "Watch"

// watchOptions configures the watch command.
type watchOptions struct {
	metricsAddr     string
	refreshInterval time.Duration
}

func newWatchCmd() *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the stored token fresh and follow config changes",
		Long: `Run in the foreground and keep the stored identity usable.

On start and whenever the config file changes, the credentials are
re-applied, which refreshes the stored token once. With --refresh-interval
the token is also refreshed periodically. The process notifies systemd
when it is ready, so it can run as a Type=notify unit.

Examples:
  disqusctl watch
  disqusctl watch --refresh-interval 24h --metrics-addr 127.0.0.1:9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().DurationVar(&opts.refreshInterval, "refresh-interval", 0, "refresh the token periodically (0 disables)")
	return cmd
}

func runWatch(cmd *cobra.Command, opts *watchOptions) error {
	ctx := cmd.Context()

	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	path := configFilePath()

	if opts.metricsAddr != "" {
		_, stop, err := serveMetrics(opts.metricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	applyCredentials(s.client, s.config)

	watcher := config.NewWatcher(config.WatcherConfig{
		Path:     path,
		OnChange: func() { reloadCredentials(s.client, path) },
	})
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()
	if opts.refreshInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refreshPeriodically(ctx, s.client, opts.refreshInterval)
		}()
	}

	notify(daemon.SdNotifyReady)
	authPrint(cmd, "Watching %s (Ctrl+C to stop)\n", path)

	<-ctx.Done()
	notify(daemon.SdNotifyStopping)
	logging.Info(watchSubsystem, "Stopping")
	return nil
}

// applyCredentials re-applies the configured credentials, which starts the
// one-shot refresh of a stored identity.
func applyCredentials(client *disqus.Client, cfg config.Config) {
	client.Configure(cfg.Disqus.PublicKey, cfg.Disqus.SecretKey, cfg.Disqus.RedirectURI)
}

// reloadCredentials loads the config file again and applies its credentials.
// An invalid file keeps the previous credentials.
func reloadCredentials(client *disqus.Client, path string) {
	cfg, err := config.Load(path)
	if err == nil {
		err = errors.Join(cfg.Validate(), cfg.ValidateCredentials())
	}
	if err != nil {
		logging.Warn(watchSubsystem, "Ignoring config change: %v", err)
		return
	}

	notify(daemon.SdNotifyReloading)
	applyCredentials(client, cfg)
	logging.Info(watchSubsystem, "Credentials reloaded from %s", path)
	notify(daemon.SdNotifyReady)
}

func refreshPeriodically(ctx context.Context, client *disqus.Client, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := client.Refresh(ctx)
			switch {
			case err == nil:
				logging.Info(watchSubsystem, "Access token refreshed")
			case errors.Is(err, disqus.ErrNotAuthenticated), errors.Is(err, disqus.ErrNoRefreshToken):
				logging.Debug(watchSubsystem, "Skipping refresh: %v", err)
			default:
				logging.Warn(watchSubsystem, "Periodic refresh failed: %v", err)
			}
		}
	}
}

// serveMetrics exposes the default Prometheus registry on addr/metrics and
// returns the address actually listened on.
func serveMetrics(addr string) (string, func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to serve metrics on %s: %w", addr, err)
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(watchSubsystem, err, "Metrics server stopped")
		}
	}()
	logging.Info(watchSubsystem, "Serving metrics on http://%s/metrics", listener.Addr())

	return listener.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}

// notify sends state to systemd. Outside a notify unit this is a no-op.
func notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Warn(watchSubsystem, "systemd notification failed: %v", err)
		return
	}
	if sent {
		logging.Debug(watchSubsystem, "Notified systemd: %s", state)
	}
}
