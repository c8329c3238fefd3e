package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/jubileesolutions/overlay-backend/internal/http"
	"github.com/jubileesolutions/overlay-backend/internal/ingest"
	"github.com/jubileesolutions/overlay-backend/internal/observability"
	"github.com/jubileesolutions/overlay-backend/internal/repo"
	"github.com/jubileesolutions/overlay-backend/internal/services"
	"github.com/jubileesolutions/overlay-backend/internal/sysutil"
)

const shutdownGrace = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the periodic compiler when AUTO_COMPILE_INTERVAL is set)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.Version())
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close(db) }()

	gen, idx, err := openIndex(ctx)
	if err != nil {
		return err
	}
	key, err := services.OverrideKeyByName(cfg.Compiler.OverrideKey, cfg.Compiler.OverrideFoldCase)
	if err != nil {
		return err
	}

	overlays := services.NewOverlayService(db)
	compiler := newCompiler(db, gen, idx)
	deps := httpapi.Deps{
		Overlays: overlays,
		Resolver: services.NewInheritanceResolver(db, key),
		Compiler: compiler,
		Searcher: services.NewSearchService(gen, idx),
		Importer: ingest.NewImporter(overlays),
		Ready: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", sysutil.Version()).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Compiler.AutoInterval > 0 {
		g.Go(func() error {
			autoCompile(gctx, compiler, cfg.Compiler.AutoInterval)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		log.Info().Msg("shutting down http server")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// autoCompile runs a full pass every interval until ctx ends. Failed passes
// are logged and retried on the next tick.
func autoCompile(ctx context.Context, c *services.Compiler, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	log.Info().Dur("interval", interval).Msg("periodic compiler started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			res, err := c.Compile(ctx, services.CompileOptions{})
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Msg("periodic compile failed")
				}
				continue
			}
			log.Info().
				Str("run_id", res.ID).
				Int("new", res.NewEntries).
				Int("re_embedded", res.ReEmbedded).
				Int("errors", len(res.Errors)).
				Msg("periodic compile finished")
		}
	}
}
