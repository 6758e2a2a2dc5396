package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"digitalroom/internal/blob"
	"digitalroom/internal/catalog"
	"digitalroom/internal/editor"
	"digitalroom/internal/notice"
	"digitalroom/internal/persistence"
	"digitalroom/pkg/domain"
)

// app holds the stores shared by every subcommand.
type app struct {
	store    persistence.Store
	rows     domain.RowStore
	registry *prometheus.Registry
	blobs    blob.Store
}

func openApp(ctx context.Context) (*app, error) {
	store, err := persistence.Open(ctx, cfg.Storage, catalog.IDStrategies())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	reg := prometheus.NewRegistry()
	metrics, err := persistence.NewMetrics(reg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &app{
		store:    store,
		rows:     persistence.Instrument(store, metrics, logger.Named("store")),
		registry: reg,
	}, nil
}

func (a *app) Close() error { return a.store.Close() }

// blobStore opens the configured blob backend on first use.
func (a *app) blobStore(ctx context.Context) (blob.Store, error) {
	if a.blobs != nil {
		return a.blobs, nil
	}
	s, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	a.blobs = s
	return s, nil
}

// schemaFor resolves an entity name. category scopes prompts to one
// prompt category.
func schemaFor(entity, category string) (editor.Schema, error) {
	if category != "" {
		if entity != "prompts" {
			return editor.Schema{}, fmt.Errorf("--category only applies to prompts")
		}
		return catalog.ForCategory(category), nil
	}
	s, ok := catalog.Lookup(entity)
	if !ok {
		return editor.Schema{}, fmt.Errorf("unknown entity %q (see `digitalroom entities`)", entity)
	}
	return s, nil
}

// newEditor builds an editor whose notices go to the returned recorder and
// the log.
func (a *app) newEditor(ctx context.Context, schema editor.Schema, withBlobs bool) (*editor.Editor, *notice.Recorder, error) {
	rec := notice.NewRecorder(0)
	opts := []editor.Option{
		editor.WithNotifier(notice.Multi(rec, notice.NewLogNotifier(logger.Named("notice")))),
		editor.WithLogger(logger.Named("editor")),
		editor.WithSortGap(cfg.Editor.SortGap, cfg.Editor.SortBaseline),
	}
	if withBlobs {
		bs, err := a.blobStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, editor.WithBlobStore(bs))
	}
	ed, err := editor.New(schema, a.rows, opts...)
	if err != nil {
		return nil, nil, err
	}
	return ed, rec, nil
}
