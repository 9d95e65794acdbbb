// Command bridged is the homed-google-bridge process entrypoint: it loads
// configuration, builds the logger, and wires the gateway TCP listener,
// the HTTPS fulfillment listener, and the Home Graph push pumps together,
// following the teacher library's examples/service/main.go wiring and the
// signal-driven graceful-shutdown shape of
// nerrad567/cmd/graylogic/main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	homegraphapi "google.golang.org/api/homegraph/v1"
	"google.golang.org/api/option"

	"github.com/faltung/homed-google-bridge/internal/auth0"
	"github.com/faltung/homed-google-bridge/internal/config"
	"github.com/faltung/homed-google-bridge/internal/devicerepo"
	"github.com/faltung/homed-google-bridge/internal/fulfillment"
	"github.com/faltung/homed-google-bridge/internal/fulfillmentapi"
	"github.com/faltung/homed-google-bridge/internal/gateway"
	"github.com/faltung/homed-google-bridge/internal/homegraph"
	"github.com/faltung/homed-google-bridge/internal/ingest"
	"github.com/faltung/homed-google-bridge/internal/logging"
	"github.com/faltung/homed-google-bridge/internal/tlslistener"
	"github.com/faltung/homed-google-bridge/internal/userstore"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the bridge's YAML configuration file")
	bindingsPath := flag.String("bindings", "bindings.yaml", "path to the gateway user/token bindings file")
	auth0Domain := flag.String("auth0-domain", "", "Auth0 tenant domain used to validate fulfillment bearer tokens")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *bindingsPath, *auth0Domain); err != nil {
		fmt.Fprintf(os.Stderr, "bridged: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, bindingsPath, auth0Domain string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		logging.Default().Fatal("loading configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	bindings, err := userstore.Load(bindingsPath)
	if err != nil {
		return fmt.Errorf("loading gateway bindings: %w", err)
	}

	repo := devicerepo.New()

	hgService, err := homegraphapi.NewService(ctx, option.WithCredentialsFile(cfg.HomeGraph.CredentialsFile))
	if err != nil {
		return fmt.Errorf("building home graph client: %w", err)
	}
	hg := homegraph.New(logger, hgService)

	router := fulfillment.New(repo, hg, cfg.Fulfillment.SyncDebounce, logger)
	defer router.Close()

	tokenValidator := auth0.New(logger, auth0Domain)
	fulfillmentHandler := fulfillmentapi.New(logger, tokenValidator, router)

	mux := http.NewServeMux()
	mux.Handle(fulfillmentapi.FulfillmentPath, fulfillmentHandler)

	httpsServer := tlslistener.New(cfg.Fulfillment.ListenAddr, cfg.Fulfillment.Domain, cfg.Fulfillment.CertCacheDir, mux)
	go func() {
		if err := httpsServer.ListenAndServe(); err != nil {
			logger.Info("fulfillment listener stopped", zap.Error(err))
		}
	}()

	gatewayListener, err := net.Listen("tcp", cfg.Gateway.ListenAddr)
	if err != nil {
		return fmt.Errorf("starting gateway listener: %w", err)
	}
	logger.Info("listening",
		zap.String("gateway_addr", cfg.Gateway.ListenAddr),
		zap.String("fulfillment_addr", cfg.Fulfillment.ListenAddr))

	go acceptGatewayConnections(ctx, gatewayListener, cfg.Gateway, repo, bindings, logger)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	gatewayListener.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpsServer.Shutdown(shutdownCtx)
}

func acceptGatewayConnections(ctx context.Context, ln net.Listener, opts config.GatewayConfig, repo *devicerepo.Repository, bindings *userstore.Store, logger *zap.Logger) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Info("gateway accept failed", zap.Error(err))
				return
			}
		}
		go serveGatewayConnection(ctx, conn, opts, repo, bindings, logger)
	}
}

func serveGatewayConnection(ctx context.Context, conn net.Conn, opts config.GatewayConfig, repo *devicerepo.Repository, bindings *userstore.Store, logger *zap.Logger) {
	gwConn := gateway.New(conn, gateway.Options{
		HandshakeAuthTimeout: opts.HandshakeAuthTimeout,
		MaxReceiveBuffer:     opts.MaxReceiveBuffer,
	}, logger)

	session := ingest.NewSession(repo, bindings, gwConn, logger)
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go session.Run(connCtx)

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			gwConn.Feed(buf[:n])
		}
		if err != nil {
			return
		}
	}
}
