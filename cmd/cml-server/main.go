// Command cml-server runs the 1C exchange HTTP server.
//
// The server accepts CommerceML uploads from 1C, hands parsed catalogues
// and offers to a delegate, and exports accumulated orders back. This
// binary wires a logging delegate; real deployments embed the server
// package with their own exchange.Delegate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sergey-gru/go-cml/internal/config"
	"github.com/sergey-gru/go-cml/internal/server"
	"github.com/sergey-gru/go-cml/internal/storage/mongodb"
	"github.com/sergey-gru/go-cml/internal/storage/postgres"
	"github.com/sergey-gru/go-cml/pkg/cml"
	"github.com/sergey-gru/go-cml/pkg/exchange"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer closeStore()
	logger.Info("session store ready", slog.String("type", cfg.Storage.Type))

	srv, err := server.New(cfg, store, &loggingDelegate{log: logger}, logger)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (exchange.Store, func(), error) {
	switch cfg.Storage.Type {
	case "mongodb":
		s, err := mongodb.NewStore(ctx, &mongodb.Config{
			URI:        cfg.Storage.MongoDB.URI,
			Database:   cfg.Storage.MongoDB.Database,
			Collection: cfg.Storage.MongoDB.Collection,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close(context.Background()) }, nil
	case "postgres":
		s, err := postgres.NewStore(ctx, &postgres.Config{DSN: cfg.Storage.Postgres.DSN})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return exchange.NewMemoryStore(), func() {}, nil
	}
}

// loggingDelegate records what each exchange delivers without persisting
// the catalogue anywhere. It keeps the binary useful for integration
// testing against a real 1C installation.
type loggingDelegate struct {
	log *slog.Logger
}

func (d *loggingDelegate) ImportClassifier(_ context.Context, c *cml.Classifier) error {
	d.log.Info("classifier imported",
		slog.String("id", c.ID),
		slog.String("name", c.Name),
		slog.Int("groups", len(c.Groups)),
		slog.Int("properties", len(c.Properties)))
	return nil
}

func (d *loggingDelegate) ImportCatalogue(_ context.Context, c *cml.Catalogue) error {
	d.log.Info("catalogue imported",
		slog.String("id", c.ID),
		slog.String("name", c.Name),
		slog.Bool("changes_only", c.ContainsChangesOnly),
		slog.Int("products", len(c.Products)))
	return nil
}

func (d *loggingDelegate) ImportOffers(_ context.Context, p *cml.OffersPack) error {
	d.log.Info("offers imported",
		slog.String("id", p.ID),
		slog.Int("offers", len(p.Offers)))
	return nil
}

func (d *loggingDelegate) ImportDocument(_ context.Context, doc *cml.Document) error {
	d.log.Info("document imported",
		slog.String("id", doc.ID),
		slog.String("number", doc.Number),
		slog.String("operation", string(doc.Operation)))
	return nil
}

func (d *loggingDelegate) ExportOrders(context.Context) ([]*cml.Document, error) {
	// Nothing accumulates orders here; a real delegate queries its shop
	// database.
	return nil, nil
}

func (d *loggingDelegate) Report(context.Context) (string, error) {
	return "Exchange finished", nil
}
