// Package api provides the HTTP API for the application
package api

import (
	"context"
	"strconv"
	"time"

	"churnlearn/internal/platform/config"
	"churnlearn/internal/platform/logger"
	phttp "churnlearn/internal/platform/net/http"
	"churnlearn/internal/platform/net/middleware"
	"churnlearn/internal/platform/store"

	"churnlearn/internal/modkit"
	"churnlearn/internal/modkit/httpkit"
	"churnlearn/internal/modkit/module"
	"churnlearn/internal/modkit/swaggerkit"

	metahttp "churnlearn/internal/services/api/meta/http"
	metamod "churnlearn/internal/services/api/meta/module"
	scoringmod "churnlearn/internal/services/api/scoring/module"

	// model storage module (owns the Store port)
	modelsmod "churnlearn/internal/services/models/module"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Registry       *prometheus.Registry
	EnableSwagger  bool
	EnableProfiler bool
	EnableMetrics  bool
}

// Mount mounts the API service onto the given router
func Mount(ctx context.Context, r phttp.Router, opt Options) error {
	// shared deps for modules
	deps := modkit.Deps{Cfg: opt.Config}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	reg := opt.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	// Construct the models module first and extract its Store port
	models, err := modelsmod.New(ctx, deps, modelsmod.FromConfig(deps.Cfg))
	if err != nil {
		return err
	}
	mp := module.MustPortsOf[modelsmod.Ports](models)

	// Inject the Store into the scoring module and the readiness probe
	scoring, err := scoringmod.New(deps, scoringmod.Options{}, reg, modkit.WithPorts(mp), modkit.WithSwagger(opt.EnableSwagger))
	if err != nil {
		return err
	}
	meta := metamod.New(deps, modkit.WithSwagger(opt.EnableSwagger), modkit.WithPorts(metamod.Ports{
		Models: metahttp.PingFunc(func(ctx context.Context) error {
			_, err := mp.Store.List(ctx)
			return err
		}),
	}))

	mods := []module.Module{
		meta,
		models, // mounts nothing, listed so every module goes through the same loop
		scoring,
	}

	if opt.EnableMetrics {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	httpkit.MountAPI(r, httpkit.APIVersion, httpkit.CommonStack(stackOptions(opt.Config, reg)), func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
		}
	})
	return nil
}

// stackOptions reads CORE_API_ request limits and feeds finished requests
// into a latency histogram labelled by route pattern
func stackOptions(cfg config.Conf, reg prometheus.Registerer) httpkit.StackOptions {
	c := cfg.Prefix("CORE_API_")
	latency := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "churnlearn_http_request_seconds",
		Help:    "API request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	return httpkit.StackOptions{
		AccessLog: middleware.AccessLogOptions{
			Slow: c.MayDuration("SLOW_REQUEST", 500*time.Millisecond),
			Observe: func(rec middleware.Record) {
				route := rec.Route
				if route == "" {
					route = "unmatched"
				}
				latency.WithLabelValues(rec.Method, route, strconv.Itoa(rec.Status)).Observe(rec.Elapsed.Seconds())
			},
		},
		CORSOrigins: c.MayCSV("CORS_ORIGINS", nil),
		Timeout:     c.MayDuration("REQUEST_TIMEOUT", 30*time.Second),
	}
}
