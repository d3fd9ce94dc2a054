// cmd/web/main.go
//
// Onatrix – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (conf/.env → conf/global.yaml → ONATRIX_* env,
//     with vault: references resolved).
//
//  2. Start the daily rotating logger (tees to console when running in a
//     TTY).
//
//  3. Open the MySQL pool and apply every component's migrations.
//
//  4. Open the optional GeoLite2 database.
//
//  5. Build the forms stack: policy registry, CSRF signer, message queue,
//     and post-save actions.
//
//  6. Build the view engine and the callback component, then mount every
//     registered component on the chi router.
//
//  7. Expose Prometheus /metrics and a /healthz probe.
//
//  8. Run the HTTP server and the message workers in one errgroup until
//     SIGINT or SIGTERM.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	callbackcomp "github.com/yanizio/onatrix/components/callback"
	"github.com/yanizio/onatrix/internal/callback"
	"github.com/yanizio/onatrix/internal/component"
	"github.com/yanizio/onatrix/internal/config"
	"github.com/yanizio/onatrix/internal/database"
	"github.com/yanizio/onatrix/internal/form"
	"github.com/yanizio/onatrix/internal/logger"
	"github.com/yanizio/onatrix/internal/message"
	"github.com/yanizio/onatrix/internal/middleware"
	"github.com/yanizio/onatrix/internal/page"
	"github.com/yanizio/onatrix/internal/requestinfo"
	"github.com/yanizio/onatrix/internal/server"
	"github.com/yanizio/onatrix/internal/view"
	"github.com/yanizio/onatrix/internal/widget"
)

const (
	queueSize    = 256
	queueWorkers = 2
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	if err := run(); err != nil {
		zap.S().Errorw("onatrix exited", "err", err)
		fmt.Fprintln(os.Stderr, "onatrix:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logDir := cfg.Log.Dir
	if logDir == "" {
		logDir = filepath.Join(cfg.Paths.Root, "logs")
	}
	log, err := logger.New(logger.Options{Dir: logDir, Level: cfg.Log.Level, Tee: runningInTTY()})
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	//
	// ── 3.  Database ────────────────────────────────────────────────────
	//
	db, err := database.Open(ctx, database.Options{
		DSN:      cfg.Database.DSN,
		Password: cfg.Database.Password,
		MaxOpen:  cfg.Database.MaxOpen,
		MaxIdle:  cfg.Database.MaxIdle,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	log.Infow("database online")

	store := callback.NewStore(db)
	if err := database.Migrate(ctx, db, store); err != nil {
		return err
	}

	//
	// ── 4.  GeoIP (optional) ────────────────────────────────────────────
	//
	var geo *requestinfo.GeoDB
	if cfg.GeoIP.DBPath != "" {
		if geo, err = requestinfo.OpenGeo(cfg.GeoIP.DBPath); err != nil {
			log.Warnw("geoip disabled", "err", err)
		} else {
			defer geo.Close()
		}
	}

	//
	// ── 5.  Forms stack ─────────────────────────────────────────────────
	//
	policies := form.NewRegistry()
	if dir := cfg.Forms.PoliciesDir; dir != "" {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cfg.Paths.Root, dir)
		}
		n, err := policies.LoadDir(dir)
		if err != nil {
			return fmt.Errorf("load policies: %w", err)
		}
		log.Infow("policies loaded", "dir", dir, "count", n)
	}
	policy, ok := policies.Get(cfg.Forms.Callback.Policy)
	if !ok {
		return fmt.Errorf("unknown callback policy %q (have %v)", cfg.Forms.Callback.Policy, policies.Names())
	}

	var signer *form.Signer
	if cfg.Forms.CSRF {
		signer = form.NewSigner([]byte(cfg.Forms.CSRFKey))
	}

	queue, actions := buildNotify(cfg.Forms.Callback.Notify, log)

	//
	// ── 6.  Views and components ────────────────────────────────────────
	//
	widgets := &widget.Registry{}
	engine := view.New(cfg.HTTP.TemplatesDir, widgets)

	var limiter *middleware.RateLimiter
	if rl := cfg.HTTP.RateLimit; rl.PerMinute > 0 {
		limiter = middleware.NewRateLimiter(rl.PerMinute, rl.Burst, requestinfo.ClientKey)
	}

	opts := make(callback.StaticOptions, len(cfg.Forms.Callback.Options))
	for i, o := range cfg.Forms.Callback.Options {
		opts[i] = callback.Option{Value: o.Value, Label: o.Label}
	}

	cbComp, err := callbackcomp.New(callbackcomp.Deps{
		Policy:        policy,
		Saver:         store,
		Pages:         page.Resolver{Default: "/callback"},
		Options:       opts,
		View:          engine,
		Widgets:       widgets,
		Signer:        signer,
		RequireCSRF:   cfg.Forms.CSRF,
		StrictOptions: cfg.Forms.Callback.StrictOptions,
		Actions:       actions,
		Limiter:       limiter,
	})
	if err != nil {
		return fmt.Errorf("callback component: %w", err)
	}

	var comps component.Registry
	comps.Register(cbComp)

	r := chi.NewRouter()
	r.Use(logger.Middleware(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)
	if cfg.HTTP.ForceHTTPS {
		r.Use(middleware.ForceHTTPS)
	}
	r.Use(requestinfo.Enrich(requestinfo.Options{Geo: geo, TrustProxy: cfg.HTTP.TrustProxy}))

	//
	// ── 7.  Operational endpoints ───────────────────────────────────────
	//
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthz(db))

	comps.MountAll(r)
	log.Infow("components mounted", "widgets", widgets.Keys(), "policy", policy.Name)

	//
	// ── 8.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r, server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, srv) })
	g.Go(func() error { return queue.Run(gctx) })

	err = g.Wait()
	log.Infow("onatrix stopped", "err", err)
	return err
}

// buildNotify picks the email and webhook senders from config.  Without a
// Resend key emails are written to the log instead.
func buildNotify(n config.Notify, log *zap.SugaredLogger) (*message.Queue, *form.Actions) {
	var email message.EmailSender = message.LogSender{}
	if n.ResendAPIKey != "" && n.EmailFrom != "" {
		email = message.NewResendSender(n.ResendAPIKey, n.EmailFrom)
	} else if len(n.EmailTo) > 0 {
		log.Warnw("resend not configured; notification emails go to the log")
	}
	hook := message.HTTPSender{Client: &http.Client{Timeout: 10 * time.Second}}

	queue := message.NewQueue(queueSize, queueWorkers, email, hook)
	return queue, &form.Actions{
		Queue:      queue,
		EmailTo:    n.EmailTo,
		Subject:    "New callback request",
		WebhookURL: n.WebhookURL,
	}
}

// healthz pings the database.
func healthz(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.FromContext(ctx).Warnw("health check failed", "err", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}
