package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/poet-enclave/simulator/internal/common/config"
	"github.com/poet-enclave/simulator/internal/poetapi"
	"github.com/poet-enclave/simulator/internal/poetenclave"
)

func main() {
	configFile := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Printf("failed to load configuration: %v, file: %s\n", err, *configFile)
		os.Exit(1)
	}

	if level, levelErr := logrus.ParseLevel(cfg.LogLevel); levelErr == nil {
		log.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("received signal, shutting down")
		cancel()
	}()

	core := poetenclave.NewEnclaveCore(log)
	core.Initialize(poetenclave.WithNodeName(cfg.NodeName))
	log.WithField("antiSybilID", core.AntiSybilID()).Info("enclave core initialized")

	svc, err := poetapi.NewService(poetapi.Config{
		Host:                   cfg.API.Host,
		Port:                   cfg.API.Port,
		EnableCORS:             cfg.API.EnableCORS,
		AllowedOrigins:         cfg.API.AllowedOrigins,
		JWTSecret:              cfg.API.JWTSecret,
		RateLimitPerMinute:     cfg.API.RateLimitPerMinute,
		DefaultMinimumWaitTime: cfg.MinimumWaitTime,
	}, core, log)
	if err != nil {
		log.WithField("error", err.Error()).Error("failed to construct poet enclave service")
		os.Exit(1)
	}

	housekeeper, err := newHousekeeper(cfg.Housekeeping, core, log)
	if err != nil {
		log.WithField("error", err.Error()).Error("failed to construct housekeeping scheduler")
		os.Exit(1)
	}
	if housekeeper != nil {
		housekeeper.Start()
		defer housekeeper.Stop()
	}

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- svc.Start()
	}()

	select {
	case err := <-serveErrCh:
		if err != nil {
			log.WithField("error", err.Error()).Error("poet enclave service exited")
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down poet enclave service")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := svc.Stop(shutdownCtx); err != nil {
		log.WithField("error", err.Error()).Error("failed to stop poet enclave service cleanly")
	}

	log.Info("poet enclave service stopped")
}
