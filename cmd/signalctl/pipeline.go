package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Harshitk-cp/signalrealm/internal/api"
	"github.com/Harshitk-cp/signalrealm/internal/config"
	"github.com/Harshitk-cp/signalrealm/internal/prompts"
	"github.com/Harshitk-cp/signalrealm/internal/service"
	"github.com/Harshitk-cp/signalrealm/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pipeline struct {
	db          *pgxpool.Pool
	signals     *service.SignalService
	analysis    *service.AnalysisService
	reflections *service.ReflectionService
}

func newPipeline(ctx context.Context) (*pipeline, error) {
	templates := prompts.NewStoreFromDir(config.PromptsDir())
	if err := templates.Validate(); err != nil {
		return nil, fmt.Errorf("validate prompt templates: %w", err)
	}

	db, err := openDB(ctx)
	if err != nil {
		return nil, err
	}

	signalStore := store.NewSignalStore(db)
	realmStore := store.NewRealmStore(db)
	compositor := prompts.NewCompositor(templates)
	router := api.NewModelRouter(logger)

	return &pipeline{
		db:          db,
		signals:     service.NewSignalService(signalStore),
		analysis:    service.NewAnalysisService(signalStore, realmStore, router, compositor, logger),
		reflections: service.NewReflectionService(store.NewReflectionStore(db), realmStore, router, compositor, logger),
	}, nil
}

func (p *pipeline) Close() {
	p.db.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
