package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/subosito/gotenv"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vantha.app/expense-sync/internal/auth"
	"vantha.app/expense-sync/internal/clients/expenseapi"
	"vantha.app/expense-sync/internal/config"
	"vantha.app/expense-sync/internal/logger"
	"vantha.app/expense-sync/internal/model/summary"
	"vantha.app/expense-sync/internal/model/synccache"
	"vantha.app/expense-sync/internal/model/tracker"
)

const serviceName = "expense-sync"

// logObserver writes a line per change notification; the demo's stand-in
// for a redrawing view.
type logObserver struct {
	cache   *synccache.Cache
	service *tracker.Service
}

func (o *logObserver) CollectionChanged(key synccache.Key) {
	recs := o.cache.CurrentRecords(key)
	logger.Info("collection changed",
		zap.String("key", string(key)),
		zap.Int("records", len(recs)))

	if last, ok := o.service.LastExpense(key); ok {
		logger.Info("last expense",
			zap.Float64("amount", last.Amount),
			zap.String("currency", last.Currency),
			zap.String("label", last.Label()))
	}
}

func main() {
	logger.Info("Tracker init - start")

	_ = gotenv.Load()

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config:", zap.Error(err))
	}

	closer := initTracing()
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client := expenseapi.New(conf.Remote())
	cache := synccache.New(client, conf.Sync())
	scheduler := synccache.NewScheduler(ctx, cache, conf.Sync())
	defer scheduler.Stop()

	identity, err := auth.New(conf.Auth(), cache)
	if err != nil {
		logger.Fatal("failed to init identity:", zap.Error(err))
	}

	service := tracker.NewService(client, cache, scheduler, identity)
	reporter := summary.NewGenerator(cache)

	key := service.OwnerKey()
	sub := cache.Subscribe(ctx, key, &logObserver{cache: cache, service: service})
	defer cache.Unsubscribe(sub)

	logger.Info("Tracker init - end", zap.String("owner", string(key)))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				report, err := reporter.Generate(key, "month")
				if err != nil {
					logger.Error("summary failed", zap.Error(err))
					continue
				}
				logger.Info("month to date",
					zap.Float64("total", report.Total),
					zap.Int("count", report.Count))
			}
		}
	})

	if err = group.Wait(); err != nil {
		logger.Fatal("tracker stopped", zap.Error(err))
	}
}

func initTracing() io.Closer {
	cfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  "const",
			Param: 1,
		},
	}

	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		logger.Fatal("failed to init tracing:", zap.Error(err))
	}
	opentracing.SetGlobalTracer(tracer)
	return closer
}
