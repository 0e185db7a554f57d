package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/polygate/config"
	"github.com/alejandrodnm/polygate/internal/adapters/httpapi"
	"github.com/alejandrodnm/polygate/internal/adapters/notify"
	"github.com/alejandrodnm/polygate/internal/adapters/polymarket"
	"github.com/alejandrodnm/polygate/internal/adapters/storage"
	"github.com/alejandrodnm/polygate/internal/application/engine"
	"github.com/alejandrodnm/polygate/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	status := flag.Bool("status", false, "print config and event-log statistics, then exit")
	once := flag.Bool("once", false, "run one scan + one tracking pass, print tables and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	closeLog := setupLogger(cfg.Log)
	defer closeLog()

	if err := cfg.Validate(!*status); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	slog.Info("polygate starting",
		"config", *configPath,
		"threshold", cfg.Engine.Threshold,
		"trade_size", cfg.Engine.TradeSize,
		"interval", cfg.Engine.PollInterval,
		"auto_approve", cfg.Engine.AutoApprove,
		"once", *once,
		"status", *status,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store *storage.EventStore
	if cfg.StorageEnabled() {
		store, err = storage.NewEventStore(cfg.Storage.DSN, 0)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
	}

	console := notify.NewConsole()

	if *status {
		printStatus(ctx, cfg, store, console)
		return
	}

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)
	gateway := polymarket.NewMarketGateway(client, polymarket.GatewayConfig{
		EventSlug: cfg.Market.EventSlug,
		Keywords:  cfg.Market.Keywords,
		PageLimit: cfg.Market.PageLimit,
		Window:    cfg.Engine.Window,
	})

	authClient, err := polymarket.NewAuthClient(client, polymarket.AuthConfig{
		PrivateKey:    cfg.API.PrivateKey,
		ChainID:       cfg.API.ChainID,
		SignatureType: cfg.API.SignatureType,
		Funder:        cfg.API.ProxyAddress,
	})
	if err != nil {
		slog.Error("failed to create auth client", "err", err)
		os.Exit(1)
	}
	if err := authClient.EnsureCreds(ctx); err != nil {
		slog.Error("failed to derive API credentials, check PRIVATE_KEY", "err", err)
		os.Exit(1)
	}
	trading := polymarket.NewTradingClient(authClient)
	slog.Info("authenticated with CLOB", "address", trading.Address(), "signer", authClient.SignerAddress())

	// Interfaces nil explícitas: un *EventStore nil dentro de la interfaz no es nil.
	var (
		events  ports.EventLog
		querier ports.EventQuerier
		balance ports.BalanceProvider
	)
	if store != nil {
		events, querier = store, store
	}
	if cfg.API.RPCURL != "" {
		reader, err := polymarket.NewBalanceReader(ctx, cfg.API.RPCURL, trading.Address())
		if err != nil {
			slog.Warn("balance reader disabled", "err", err)
		} else {
			defer reader.Close()
			balance = reader
		}
	}

	eng := engine.New(engine.Config{
		Threshold:           cfg.Engine.Threshold,
		TradeSize:           cfg.Engine.TradeSize,
		LimitPrice:          cfg.Engine.LimitPrice,
		PollInterval:        cfg.Engine.PollInterval,
		Window:              cfg.Engine.Window,
		AutoApprove:         cfg.Engine.AutoApprove,
		MaxConcurrentChecks: cfg.Engine.MaxConcurrentChecks,
		WalletAddress:       trading.Address(),
	}, engine.Deps{
		Markets:   gateway,
		Submitter: trading,
		Status:    trading,
		Events:    events,
		Notifier:  console,
	})

	if *once {
		runOnce(ctx, eng, console, balance)
		return
	}

	eng.Start(ctx)

	srv := httpapi.NewServer(httpapi.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, eng, querier, balance)

	runErr := srv.Run(ctx)
	eng.Stop()
	if runErr != nil {
		slog.Error("http server exited with error", "err", runErr)
		os.Exit(1)
	}

	slog.Info("polygate stopped cleanly")
}
