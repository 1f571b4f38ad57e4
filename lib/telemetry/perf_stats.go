package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

const perfSampleInterval = time.Second * 30

var perfMeter = otel.Meter("go.perf_stats")

type perfGauges struct {
	cpuUsage    func(context.Context, float64)
	allocatedMb func(context.Context, int64)
	liveObjects func(context.Context, int64)
	goroutines  func(context.Context, int64)
}

func newPerfGauges() perfGauges {
	cpuGauge, _ := perfMeter.Float64Gauge("cpu_usage")
	memGauge, _ := perfMeter.Int64Gauge("allocated_mb")
	objGauge, _ := perfMeter.Int64Gauge("live_objects")
	goroutineGauge, _ := perfMeter.Int64Gauge("goroutine_count")

	return perfGauges{
		cpuUsage:    func(ctx context.Context, v float64) { cpuGauge.Record(ctx, v) },
		allocatedMb: func(ctx context.Context, v int64) { memGauge.Record(ctx, v) },
		liveObjects: func(ctx context.Context, v int64) { objGauge.Record(ctx, v) },
		goroutines:  func(ctx context.Context, v int64) { goroutineGauge.Record(ctx, v) },
	}
}

func (g perfGauges) sample(ctx context.Context) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	g.allocatedMb(ctx, int64(memStats.Alloc/1_000_000))
	g.liveObjects(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
	g.goroutines(ctx, int64(runtime.NumGoroutine()))

	// cpu.Percent blocks for the sampling window
	usage, err := cpu.Percent(time.Minute, false)
	if err != nil {
		slog.Warn("failed to read cpu usage", "err", err)
		return
	}
	g.cpuUsage(ctx, usage[0])
}

// InstrumentPerfStats periodically records process runtime gauges
// until the context ends.
func InstrumentPerfStats(ctx context.Context) {
	gauges := newPerfGauges()

	go func() {
		ticker := time.NewTicker(perfSampleInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				gauges.sample(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}
