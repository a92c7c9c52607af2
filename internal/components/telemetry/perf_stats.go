package telemetry

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const report_perf_stats = "perf_stats"

// InstrumentPerfStats registers process gauges (cpu, heap, goroutines) that
// are observed whenever the meter provider collects. The returned function
// unregisters them.
func InstrumentPerfStats(tel API) (func(), error) {
	meter := otel.Meter("bakpdlbot/perf_stats")

	cpuGauge, err := meter.Float64ObservableGauge("cpu_usage", metric.WithUnit("%"))
	if err != nil {
		return nil, err
	}
	heapGauge, err := meter.Int64ObservableGauge("heap_alloc", metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	goroutineGauge, err := meter.Int64ObservableGauge("goroutine_count")
	if err != nil {
		return nil, err
	}

	registration, err := meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		o.ObserveInt64(heapGauge, int64(mem.HeapAlloc))
		o.ObserveInt64(goroutineGauge, int64(runtime.NumGoroutine()))

		// an interval of 0 compares against the previous call
		usage, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil {
			tel.ReportWarning(report_perf_stats, err)
			return nil
		}
		if len(usage) > 0 {
			o.ObserveFloat64(cpuGauge, usage[0])
		}
		return nil
	}, cpuGauge, heapGauge, goroutineGauge)
	if err != nil {
		return nil, err
	}

	return func() {
		err := registration.Unregister()
		if err != nil {
			tel.ReportWarning(report_perf_stats, err)
		}
	}, nil
}
