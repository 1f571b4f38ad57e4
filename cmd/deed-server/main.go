package main

import (
	"flag"
	"time"

	"deedscout-backend/lib/browser"
	"deedscout-backend/lib/configutil"
	"deedscout-backend/lib/serviceutil"
	"deedscout-backend/services/resolver"
)

type ResolverConfig struct {
	PoolSize               int64 `json:"pool_size"`
	AddressDeadlineSeconds int   `json:"address_deadline_seconds"`
}

type Config struct {
	Port     int            `json:"port"`
	Browser  browser.Config `json:"browser"`
	Resolver ResolverConfig `json:"resolver"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.Resolver.PoolSize == 0 {
		cfg.Resolver.PoolSize = 2
	}

	launcher := browser.NewChromedpLauncher(ctx, cfg.Browser)
	pool := browser.NewPool(launcher, cfg.Resolver.PoolSize)
	defer pool.Close()

	service := resolver.NewService(resolver.ServiceOptions{
		Pool:            pool,
		AddressDeadline: time.Duration(cfg.Resolver.AddressDeadlineSeconds) * time.Second,
	})

	serviceutil.StartHttpServer(ctx, cfg.Port, resolver.NewHandler(service))
}
