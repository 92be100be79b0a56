// cmd/web/main.go
//
// Page manager – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Console logger, then configuration (defaults, .env, conf/pages.yaml,
//     PAGES_ env, and vault: references).
//
//  2. Daily rotating file logger (tees to console when running in a TTY).
//
//  3. Database pool, page store (sql or file), and optional GeoIP reader.
//
//  4. Plugin managers: conditions, blocks, and variants.
//
//  5. Page registry, layout engine, and context providers.
//
//  6. Component migrations, then every component mounted on the root
//     router behind the security, request-info, and bearer-token
//     middleware.  /metrics exposes Prometheus.
//
//  7. LoadAll warms the registry and builds the page route table.
//
//  8. Serve until SIGINT or SIGTERM, then shut down gracefully.
//
// Flags
// -----
//
//	-token <user id>   print a bearer token for the user and exit.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/pagemanager/internal/acl"
	"github.com/yanizio/pagemanager/internal/auth"
	"github.com/yanizio/pagemanager/internal/block"
	"github.com/yanizio/pagemanager/internal/component"
	"github.com/yanizio/pagemanager/internal/condition"
	"github.com/yanizio/pagemanager/internal/config"
	"github.com/yanizio/pagemanager/internal/database"
	"github.com/yanizio/pagemanager/internal/logger"
	"github.com/yanizio/pagemanager/internal/middleware"
	"github.com/yanizio/pagemanager/internal/page"
	"github.com/yanizio/pagemanager/internal/pagectx"
	"github.com/yanizio/pagemanager/internal/plugin"
	"github.com/yanizio/pagemanager/internal/provider"
	"github.com/yanizio/pagemanager/internal/registry"
	"github.com/yanizio/pagemanager/internal/requestinfo"
	"github.com/yanizio/pagemanager/internal/server"
	"github.com/yanizio/pagemanager/internal/store"
	"github.com/yanizio/pagemanager/internal/variant"
	"github.com/yanizio/pagemanager/internal/view"

	_ "github.com/yanizio/pagemanager/components/pageadmin"
	_ "github.com/yanizio/pagemanager/components/pages"
)

func main() {
	tokenFor := flag.Int64("token", -1, "print a bearer token for this user id and exit")
	flag.Parse()

	logger.Bootstrap()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if *tokenFor >= 0 {
		tok, err := tokens.Issue(*tokenFor, cfg.Auth.TokenTTL)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Println(tok)
		return
	}

	logOut, err := logger.New(cfg.Log.Dir, cfg.Log.Level, logger.IsTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	if err := run(ctx, cfg, tokens); err != nil {
		logOut.Fatalw("page manager stopped", "err", err)
	}
	logOut.Infow("page manager stopped")
}

func run(ctx context.Context, cfg *config.Config, tokens *auth.Tokens) error {
	log := zap.S()

	//
	// ── 1.  Database, store, and GeoIP ──────────────────────────────────
	//
	db, err := database.OpenWithOptions(ctx, cfg.Database.ConnString(), cfg.Database.MaxOpen, cfg.Database.MaxIdle)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	log.Infow("database online")

	var pages store.Store
	switch cfg.Pages.Store {
	case "file":
		fs, err := store.NewFileStore(cfg.Pages.StoreDir())
		if err != nil {
			return fmt.Errorf("page files: %w", err)
		}
		pages = fs
	default:
		pages = store.NewSQLStore(db)
	}

	var geo requestinfo.CityLookup
	reader, err := requestinfo.OpenGeo(cfg.Geo.DBPath)
	if err != nil {
		return fmt.Errorf("open geoip: %w", err)
	}
	if reader != nil {
		defer reader.Close()
		geo = reader
	}

	//
	// ── 2.  Plugin managers ─────────────────────────────────────────────
	//
	handler := pagectx.NewHandler(pagectx.NewTypes())
	eval := condition.NewEvaluator(handler)

	conds := plugin.NewManager("condition")
	condition.Register(conds)

	blocks := plugin.NewManager("block")
	block.Register(blocks, map[string]block.Renderer{"user": nil})

	variants := plugin.NewManager("variant")
	variant.Register(variants, variant.Deps{
		Conditions: conds,
		Blocks:     blocks,
		Regions:    cfg.Pages.Regions,
	})

	//
	// ── 3.  Registry, layouts, and providers ────────────────────────────
	//
	reg := registry.New(pages, page.Plugins{Variants: variants, Conditions: conds}, nil, cfg.Pages.CacheTTL)
	views := view.New(cfg.Pages.TemplateDir(), cfg.Pages.TemplateCache)

	users := acl.NewUsers(db)
	providers := []page.Provider{
		provider.NewCurrentUser(users),
		provider.Request{},
		provider.NewRouteParams(map[string]provider.Resolver{
			"integer":          provider.Integer,
			condition.TypeUser: provider.User(users),
		}),
	}

	//
	// ── 4.  Components and middleware ───────────────────────────────────
	//
	comps := component.All()
	if err := component.Migrate(ctx, db, comps); err != nil {
		return err
	}

	root := chi.NewRouter()
	if cfg.HTTP.ForceHTTPS {
		root.Use(middleware.ForceHTTPS)
	}
	root.Use(middleware.Security)
	root.Use(requestinfo.NewEnricher(geo).Middleware)
	root.Use(tokens.Authenticate)
	root.Handle("/metrics", promhttp.Handler())

	svc := component.Services{
		DB:         db,
		Pages:      reg,
		Views:      views,
		Evaluator:  eval,
		Providers:  providers,
		Conditions: conds,
		Blocks:     blocks,
		Variants:   variants,
	}
	if err := component.Mount(root, svc, comps); err != nil {
		return err
	}

	//
	// ── 5.  Warm the registry (builds the route table) ─────────────────
	//
	if err := reg.LoadAll(ctx); err != nil {
		return fmt.Errorf("load pages: %w", err)
	}

	//
	// ── 6.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, root, server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})

	errc := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
