package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/auth"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/config"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/content"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/db"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/ddl"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/gelf"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/handler"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/notify"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/oxidb"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/router"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/store"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/upload"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// portal is the assembled server and everything it must release.
type portal struct {
	handler http.Handler
	closers []func()
}

func (p *portal) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

func loadRegistry(cfg *config.Config) (*schema.Registry, error) {
	if cfg.SchemaDir == "" {
		return schema.Builtin()
	}
	return schema.Load(os.DirFS(cfg.SchemaDir), ".")
}

func openBackend(ctx context.Context, cfg *config.Config) (upload.Backend, func(), error) {
	if cfg.Upload.Backend == "oxidb" {
		o := cfg.OxiDB
		pool, err := oxidb.NewPool(o.Host, o.Port, o.PoolSize, o.Keepalive)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to OxiDB: %w", err)
		}
		log.Printf("Connected to OxiDB at %s:%d (pool size: %d)", o.Host, o.Port, o.PoolSize)
		b, err := upload.NewBucket(ctx, pool, o.Bucket)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return b, pool.Close, nil
	}
	d, err := upload.NewDisk(cfg.Upload.Dir)
	if err != nil {
		return nil, nil, err
	}
	return d, func() {}, nil
}

// newPortal connects every dependency and mounts the router.
func newPortal(ctx context.Context, cfg *config.Config) (*portal, error) {
	p := &portal{}
	ok := false
	defer func() {
		if !ok {
			p.Close()
		}
	}()

	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}
	pool, d, err := db.Open(ctx, cfg.DBOptions())
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, func() { pool.Close() })

	if cfg.Database.AutoMigrate {
		if err := ddl.Migrate(ctx, pool, d, reg.All()); err != nil {
			return nil, err
		}
		log.Printf("Schema: %d tables ready", len(reg.Names()))
	}
	st := store.New(pool, d, reg)

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, closeBackend)
	uploads := upload.New(backend, cfg.Upload.MaxBytes, cfg.Upload.BaseURL)
	log.Printf("Uploads: %s backend (max %d bytes)", uploads.Backend(), uploads.MaxBytes())

	var notifier notify.Notifier = notify.Log{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	}
	dispatcher := notify.NewDispatcher(notifier, notify.StoreMarker{Store: st}, cfg.Notify.QueueSize, cfg.Notify.Timeout)
	p.closers = append(p.closers, dispatcher.Close)

	authSvc, err := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.AdminEmail, cfg.Auth.AdminPass, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	p.handler = router.New(router.Options{
		JWTSecret:  cfg.Auth.JWTSecret,
		AdminEmail: cfg.Auth.AdminEmail,
		CORSOrigin: cfg.CORSOrigin,
	}, router.Handlers{
		Auth:    handler.NewAuthHandler(authSvc),
		Admin:   handler.NewAdminHandler(pool, cfg.Database.Driver, reg, uploads, cfg.Auth.AdminEmail),
		Schema:  handler.NewSchemaHandler(reg),
		Table:   handler.NewTableHandler(st),
		Upload:  handler.NewUploadHandler(uploads),
		Content: handler.NewContentHandler(content.NewService(st, dispatcher)),
		Form:    handler.NewFormHandler(st, uploads),
	})
	ok = true
	return p, nil
}

func setupLogging(cfg *config.Config) func() {
	if cfg.GelfAddr == "" {
		return func() {}
	}
	w, err := gelf.New(cfg.GelfAddr, gelf.DefaultService)
	if err != nil {
		log.Printf("Warning: GELF init failed: %v", err)
		return func() {}
	}
	log.SetOutput(io.MultiWriter(os.Stderr, w))
	log.Printf("GELF logging: enabled (%s)", cfg.GelfAddr)
	return func() {
		log.SetOutput(os.Stderr)
		w.Close()
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	defer setupLogging(cfg)()

	p, err := newPortal(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           p.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("OxiPortal server starting on %s", cfg.HTTPAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
