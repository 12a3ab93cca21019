// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seal.
//
// go-seal is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/viol3/Sui-Unity-SDK-sub000/internal/config"
	"github.com/viol3/Sui-Unity-SDK-sub000/internal/rest"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/health"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/keyserver"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/logging"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/metrics"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/ratelimit"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

const resourceInterval = 15 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a key server",
		Long: `Run a key server with the keyserver section of the configuration. The
master key is loaded from storage, or generated on first start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return fmt.Errorf("invalid --addr: %w", err)
				}
				p, err := strconv.Atoi(port)
				if err != nil {
					return fmt.Errorf("invalid --addr port: %w", err)
				}
				a.cfg.KeyServer.Host, a.cfg.KeyServer.Port = host, p
				if err := a.cfg.KeyServer.Validate(); err != nil {
					return err
				}
			}
			ctx, stop := SignalContext(cmd.Context())
			defer stop()
			return Serve(ctx, &a.cfg.KeyServer, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address host:port (default from config)")
	return cmd
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Serve runs a key server until ctx is cancelled, then shuts it down
// gracefully.
func Serve(ctx context.Context, cfg *config.KeyServerConfig, logger logging.Logger) error {
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr(), err)
	}
	return serve(ctx, cfg, logger, ln)
}

func serve(ctx context.Context, cfg *config.KeyServerConfig, logger logging.Logger, ln net.Listener) error {
	defer ln.Close()

	id, err := seal.ParseObjectID(cfg.ObjectID)
	if err != nil {
		return err
	}

	backend, err := openStorage(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer backend.Close()

	msk, created, err := keyserver.LoadOrCreateMasterKey(backend, id, nil)
	if err != nil {
		return err
	}
	raw := msk.Bytes()
	logger.Info("Master key ready",
		logging.String("object_id", id.String()),
		logging.String("storage", cfg.Storage.Backend),
		logging.Bool("created", created),
		logging.Redacted("master_key", raw))
	clear(raw)
	if cfg.Storage.Backend == config.StorageMemory {
		logger.Warn("Master key is held in memory and is lost on exit")
	}

	policy, err := buildPolicy(&cfg.Policy)
	if err != nil {
		return err
	}

	svc, err := keyserver.NewService(&keyserver.ServiceConfig{
		ObjectID:  id,
		MasterKey: msk,
		Policy:    policy,
		MaxIDs:    cfg.MaxIDs,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	checker := health.NewChecker()
	checker.RegisterCheck("master_key", health.StorageKeyCheck("master_key", backend, keyserver.MasterKeyPath(id)))

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(&ratelimit.Config{
			Enabled:           true,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMin,
			Burst:             cfg.RateLimit.Burst,
			TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders,
		})
		defer limiter.Stop()
	}

	tlsConfig, err := cfg.TLS.LoadTLSConfig()
	if err != nil {
		return err
	}

	var metricsPath string
	if cfg.Metrics.Enabled {
		metrics.Enable()
		metricsPath = cfg.Metrics.Path
		collector := metrics.StartResourceCollector(ctx, resourceInterval)
		defer collector.Stop()
	} else {
		metrics.Disable()
	}

	srv, err := rest.NewServer(&rest.Config{
		Service:      svc,
		Addr:         cfg.Addr(),
		TLSConfig:    tlsConfig,
		Logger:       logger,
		Health:       checker,
		RateLimiter:  limiter,
		MetricsPath:  metricsPath,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	checker.MarkStarted()

	logger.Info("Key server ready",
		logging.String("addr", ln.Addr().String()),
		logging.String("object_id", id.String()),
		logging.String("public_key", base64.StdEncoding.EncodeToString(svc.PublicKey().Bytes())))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
