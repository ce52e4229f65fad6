// Command example is a runnable demonstration of the cotask runtime: it
// spins up a DefaultHost, drains a pipe built from a slice of inputs
// through a rate-limited, parallel Map stage, and exposes live task and
// pipe gauges over Prometheus while it runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/cotask/cotask"
	"github.com/cotask/cotask/cometrics"
	"github.com/cotask/cotask/pipe"
)

var errFlaky = errors.New("example: transient fetch failure")

func main() {
	_ = godotenv.Load()

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	host := cotask.NewDefaultHost(cotask.WithHostLogger(logger))
	defer host.Close()

	reg := cotask.NewRegistry()

	addr := ":9102"
	if v := os.Getenv("COTASK_METRICS_ADDR"); v != "" {
		addr = v
	}
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(cometrics.NewTaskCollector(reg))

	metricsSrv := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer metricsSrv.Shutdown(context.Background())

	items := make([]any, 20)
	for i := range items {
		items[i] = i + 1
	}
	source := pipe.FromSlice(host, items)

	fetched := source.Map(func(t *cotask.Task, in cotask.Values) (cotask.Values, error) {
		id := in[0].(int)
		cotask.Sleep(host, time.Duration(10+rand.Intn(40))*time.Millisecond)
		if id%7 == 0 {
			return nil, errFlaky
		}
		return cotask.Values{fmt.Sprintf("item-%d", id)}, nil
	},
		pipe.Parallel(4),
		pipe.Throttle(5*time.Millisecond),
		pipe.Timeout(200*time.Millisecond),
		pipe.Ordered(true),
		pipe.Catch(func(err error) (cotask.Values, bool) {
			return cotask.Values{"<skipped>"}, true
		}),
	)
	promReg.MustRegister(cometrics.NewPipeCollector(fetched))

	done := make(chan struct{})
	driver := cotask.Spawn(func(t *cotask.Task, _ cotask.Values) (cotask.Values, error) {
		fetched.Each(func(v []any) {
			logger.Info("fetched", "value", v[0])
		})
		close(done)
		return nil, nil
	})
	reg.Track(driver)

	select {
	case <-done:
		logger.Info("pipeline drained", "errors", len(fetched.Report()))
	case <-ctx.Done():
		logger.Info("interrupted, cancelling pipeline")
		fetched.Cancel()
	}
}
