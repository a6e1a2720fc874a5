// @title         churnlearn API
// @version       0.1.0
// @description   Model metadata and batch churn scoring

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"churnlearn/internal/platform/config"
	"churnlearn/internal/platform/logger"
	phttp "churnlearn/internal/platform/net/http"
	"churnlearn/internal/platform/store"
	"churnlearn/internal/platform/store/pg"

	"churnlearn/internal/services/api"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	// bring up logging early
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// open the platform store; pg only when models live there
	st, err := store.Open(ctx, store.FromConf(root, "churnlearn", "api"),
		store.WithLogger(*l), store.WithQueryTracer(queryTimer(reg)))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server listens on CORE_API_ADDR
	srv := phttp.NewServer(apiCfg)

	// mount our API
	err = api.Mount(ctx, srv.Router(), api.Options{
		Config:         root,
		Store:          st,
		Logger:         l,
		Registry:       reg,
		EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
		EnableMetrics:  apiCfg.MayBool("METRICS", true),
	})
	if err != nil {
		l.Panic().Err(err).Msg("api.Mount failed")
	}

	// run
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}

// queryTimer observes model registry statements in churnlearn_pg_query_seconds
func queryTimer(reg prometheus.Registerer) pg.QueryTracer {
	h := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "churnlearn_pg_query_seconds",
		Help:    "Postgres statement latency",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 7),
	}, []string{"outcome"})
	return pg.TracerFunc(func(_ context.Context, ev pg.QueryEvent) {
		outcome := "ok"
		if ev.Err != nil {
			outcome = "error"
		}
		h.WithLabelValues(outcome).Observe(ev.Elapsed.Seconds())
	})
}
