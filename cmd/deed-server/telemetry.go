package main

import (
	"context"
	"log/slog"
	"os"

	"deedscout-backend/lib/restyutil"
	"deedscout-backend/lib/scrapers/deeds"
	"deedscout-backend/lib/serviceutil"
	"deedscout-backend/lib/telemetry"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	err := telemetry.SetupFromEnv(ctx, "deed-server")
	if os.IsNotExist(err) {
		slog.WarnContext(ctx, "no telemetry.json5 found, running without exporters")
	} else if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		telemetry.Shutdown(context.Background())
	}()
	telemetry.InstrumentPerfStats(ctx)

	if !verbose {
		return
	}

	deeds.SetRestyInstrumentOutput(
		restyutil.NewFilesystemOutput(".dev/resty/deeds"),
	)
}
