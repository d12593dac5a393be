package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pierrefittel/okura/pkg/api"
	"github.com/pierrefittel/okura/pkg/db"
	"github.com/pierrefittel/okura/pkg/study"
)

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFlag := fs.String("config", "", "Path to the YAML config (default $CONFIG_PATH or ./config.yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}

	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()
	if err := db.InitDB(ctx, conn); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	start := time.Now()
	engine, reg, err := buildEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	log.Info("analysis engine ready", "languages", reg.Languages(), "elapsed", time.Since(start))

	sched, err := newScheduler(cfg.SRS)
	if err != nil {
		return err
	}
	loc, err := cfg.SRS.Location()
	if err != nil {
		return err
	}
	svc := study.NewService(log, conn, study.Options{
		Scheduler:   sched,
		Location:    loc,
		HeatmapDays: cfg.SRS.HeatmapDays,
	})

	handler := api.NewHandler(log, engine, svc, api.Options{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Languages:      reg.Languages(),
	})
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
