package stressdb

import (
	"context"
	"fmt"

	"github.com/nickyhof/stressdb/core"
	"github.com/nickyhof/stressdb/db"
	"github.com/nickyhof/stressdb/internal/config"
	"github.com/nickyhof/stressdb/load"
	"github.com/nickyhof/stressdb/op"
	"github.com/nickyhof/stressdb/ps"
	"go.uber.org/zap"
)

type Instance struct {
	Persistence *ps.Persistence
	Registry    *load.Registry
	Config      *config.Config
	logger      *zap.Logger
}

// Open creates the store and the variant registry described by cfg.
func Open(cfg *config.Config, logger *zap.Logger) (*Instance, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	persistence, err := openPersistence(cfg.Store)
	if err != nil {
		return nil, err
	}
	return OpenWith(persistence, cfg, logger)
}

// OpenWith is Open over an existing store.
func OpenWith(persistence *ps.Persistence, cfg *config.Config, logger *zap.Logger) (*Instance, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := load.NewRegistry(logger.Named("registry"))
	for _, v := range cfg.Variants {
		loader, err := NewLoader(v, cfg, persistence, logger)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(load.Variant{VariantInfo: variantInfo(v), Loader: loader}); err != nil {
			return nil, err
		}
	}

	return &Instance{
		Persistence: persistence,
		Registry:    registry,
		Config:      cfg,
		logger:      logger,
	}, nil
}

func openPersistence(store config.StoreConfig) (*ps.Persistence, error) {
	if store.BaseDir == "" {
		return ps.NewMemoryPersistence()
	}
	var gitUrl *string
	if store.GitURL != "" {
		gitUrl = &store.GitURL
	}
	return ps.NewFilePersistence(store.BaseDir, gitUrl)
}

func variantInfo(v config.VariantConfig) core.VariantInfo {
	info, _ := load.Builtin(v.ID)
	info.ID = v.ID
	if v.Title != "" {
		info.Title = v.Title
	}
	if v.Subtitle != "" {
		info.Subtitle = v.Subtitle
	}
	return info
}

// NewLoader builds the loader a variant is bound to.
func NewLoader(v config.VariantConfig, cfg *config.Config, persistence *ps.Persistence, logger *zap.Logger) (load.Loader, error) {
	switch v.Source {
	case config.SourceCSV:
		return &load.CSVLoader{TablePath: v.Path, NotesPath: v.NotesPath, Layout: v.Layout, S3: &cfg.S3}, nil
	case config.SourceDuckDB:
		return &load.DuckDBLoader{
			Path:       v.Path,
			TableSheet: v.TableSheet,
			NotesSheet: v.NotesSheet,
			NotesPath:  v.NotesPath,
			Layout:     v.Layout,
			S3:         &cfg.S3,
		}, nil
	case config.SourcePostgres:
		return &load.PostgresLoader{
			DSN:        v.DSN,
			TableQuery: v.TableQuery,
			NotesQuery: v.NotesQuery,
			Layout:     v.Layout,
			Logger:     logger.Named("postgres"),
		}, nil
	case config.SourceGit:
		return &load.GitLoader{Persistence: persistence}, nil
	default:
		return nil, fmt.Errorf("variant %s: unknown source %q", v.ID, v.Source)
	}
}

func (instance *Instance) Engine() *db.Engine {
	return db.NewEngine(instance.Registry, instance.logger.Named("engine"))
}

func (instance *Instance) NewSession() *db.Session {
	return db.NewSession("")
}

// Import loads variant through loader and commits it into the store. The
// registry drops its cached copy so sessions see the new edition. A nil
// transaction means the table was unchanged.
func (instance *Instance) Import(ctx context.Context, variant string, loader load.Loader, identity core.Identity) (*ps.Transaction, error) {
	table, err := loader.Load(ctx, variant)
	if err != nil {
		return nil, err
	}
	if table.Variant == "" {
		table.Variant = variant
	}
	if table.Title == "" {
		if info, ok := load.Builtin(variant); ok {
			table.Title = info.Title
		}
	}

	txn, _, err := op.ImportTable(table, instance.Persistence, identity)
	if err != nil {
		return nil, err
	}
	instance.Registry.Invalidate(variant)

	if txn != nil {
		instance.logger.Info("table imported",
			zap.String("variant", variant),
			zap.String("source", load.SourceOf(loader)),
			zap.Int("records", len(table.Records)),
			zap.String("transaction", txn.Id))
	}
	return txn, nil
}

// Restore returns variant to its edition as of asof with a new commit.
func (instance *Instance) Restore(variant string, asof ps.Transaction, identity core.Identity) (ps.Transaction, error) {
	tableOp, err := op.GetTable(variant, instance.Persistence)
	if err != nil {
		return ps.Transaction{}, err
	}
	txn, err := tableOp.Restore(asof, identity)
	if err != nil {
		return ps.Transaction{}, err
	}
	instance.Registry.Invalidate(variant)
	return txn, nil
}
