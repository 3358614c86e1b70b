// Package app wires the services shared by the API server and the operator console.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/docflow/internal/classification"
	"github.com/MrJamesThe3rd/docflow/internal/client"
	clientStore "github.com/MrJamesThe3rd/docflow/internal/client/store"
	"github.com/MrJamesThe3rd/docflow/internal/config"
	"github.com/MrJamesThe3rd/docflow/internal/database"
	"github.com/MrJamesThe3rd/docflow/internal/document"
	docStore "github.com/MrJamesThe3rd/docflow/internal/document/store"
	"github.com/MrJamesThe3rd/docflow/internal/financial"
	financialStore "github.com/MrJamesThe3rd/docflow/internal/financial/store"
	"github.com/MrJamesThe3rd/docflow/internal/llm"
	"github.com/MrJamesThe3rd/docflow/internal/notify"
	"github.com/MrJamesThe3rd/docflow/internal/persistence"
	"github.com/MrJamesThe3rd/docflow/internal/workflow"
)

type App struct {
	DB          *sql.DB
	Documents   *document.Service
	Resolver    *client.Resolver
	Coordinator *persistence.Coordinator
	Engine      *workflow.Engine

	vertex *llm.Vertex
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.New(cfg.ConnectionString(), database.Pool{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	if err := database.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	vertex, err := llm.NewVertex(ctx, cfg.Vertex.Project, cfg.Vertex.Region)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to vertex: %w", err)
	}

	var notifier notify.Gateway = notify.NewLogGateway(logger)
	if cfg.Notify.Endpoint != "" {
		notifier = notify.NewHTTPGateway(cfg.Notify.Endpoint, cfg.Notify.Token, cfg.Notify.Timeout)
	}

	var (
		documents   = docStore.New(db)
		resolver    = client.NewResolver(clientStore.New(db))
		coordinator = persistence.NewCoordinator(documents, logger, cfg.Workflow.StaleAfter)
	)

	engine := workflow.NewEngine(&workflow.Runtime{
		Coordinator: coordinator,
		Classifier:  classification.NewClassifier(vertex.Model(cfg.Vertex.ClassificationModel, cfg.Vertex.Temperature), logger),
		Resolver:    resolver,
		Extractor:   financial.NewExtractor(vertex.Model(cfg.Vertex.ExtractionModel, cfg.Vertex.Temperature)),
		Validator:   financial.NewValidator(),
		Accounts:    financialStore.New(db),
		Notifier:    notifier,
		Logger:      logger,
	}, cfg.Workflow.Concurrency)

	return &App{
		DB:          db,
		Documents:   document.NewService(documents),
		Resolver:    resolver,
		Coordinator: coordinator,
		Engine:      engine,
		vertex:      vertex,
	}, nil
}

func (a *App) Close() error {
	vErr := a.vertex.Close()
	dbErr := a.DB.Close()

	if vErr != nil {
		return vErr
	}

	return dbErr
}
