package load

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nickyhof/stressdb/core"
	"github.com/nickyhof/stressdb/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrDuplicateVariant = errors.New("variant already registered")

// Loader produces the table of one variant. Implementations report I/O
// failures as errors and malformed tables as *core.DataIntegrityError.
type Loader interface {
	Load(ctx context.Context, variant string) (*core.MaterialTable, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, variant string) (*core.MaterialTable, error)

func (f LoaderFunc) Load(ctx context.Context, variant string) (*core.MaterialTable, error) {
	return f(ctx, variant)
}

// Built-in variants. They carry no loader; configuration binds each to a
// source.
var (
	Ferrous = core.VariantInfo{
		ID:       "Table-1A",
		Title:    "Ferrous materials",
		Subtitle: "Maximum allowable stress values S for ferrous materials",
	}
	Bolting = core.VariantInfo{
		ID:       "Table-3",
		Title:    "Bolting materials",
		Subtitle: "Maximum allowable stress values S for bolting materials",
	}
)

// Builtin returns the descriptor of a built-in variant.
func Builtin(id string) (core.VariantInfo, bool) {
	for _, info := range []core.VariantInfo{Ferrous, Bolting} {
		if info.ID == id {
			return info, true
		}
	}
	return core.VariantInfo{}, false
}

type Variant struct {
	core.VariantInfo
	Loader Loader
}

// Registry maps variant ids to loaders and caches loaded tables. Each
// variant is loaded at most once at a time; concurrent first requests share
// the load. Failed loads are not cached.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]Variant
	order    []string
	tables   map[string]*core.MaterialTable
	flight   singleflight.Group
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		variants: make(map[string]Variant),
		tables:   make(map[string]*core.MaterialTable),
		logger:   logger,
	}
}

func (r *Registry) Register(variant Variant) error {
	if variant.ID == "" {
		return fmt.Errorf("variant id is required")
	}
	if variant.Loader == nil {
		return fmt.Errorf("variant %s has no loader", variant.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.variants[variant.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateVariant, variant.ID)
	}
	r.variants[variant.ID] = variant
	r.order = append(r.order, variant.ID)
	return nil
}

// Variants lists the registered variants in registration order.
func (r *Registry) Variants() []core.VariantInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]core.VariantInfo, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, r.variants[id].VariantInfo)
	}
	return infos
}

func (r *Registry) Lookup(id string) (Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	variant, ok := r.variants[id]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %s", core.ErrUnknownVariant, id)
	}
	return variant, nil
}

// Table returns the table of variant id, loading it on first use.
//
// Concurrent callers share one load. The shared load is detached from any
// single caller's cancellation; a caller whose ctx ends stops waiting and
// gets ctx.Err() while the load carries on for the others.
func (r *Registry) Table(ctx context.Context, id string) (*core.MaterialTable, error) {
	r.mu.RLock()
	table, cached := r.tables[id]
	r.mu.RUnlock()
	if cached {
		return table, nil
	}

	variant, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}

	flight := r.flight.DoChan(id, func() (interface{}, error) {
		r.mu.RLock()
		table, cached := r.tables[id]
		r.mu.RUnlock()
		if cached {
			return table, nil
		}

		table, err := r.load(context.WithoutCancel(ctx), variant)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.tables[id] = table
		r.mu.Unlock()
		return table, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-flight:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*core.MaterialTable), nil
	}
}

func (r *Registry) load(ctx context.Context, variant Variant) (*core.MaterialTable, error) {
	source := SourceOf(variant.Loader)
	start := time.Now()

	table, err := variant.Loader.Load(ctx, variant.ID)
	if err == nil && table == nil {
		err = fmt.Errorf("loader returned no table for %s", variant.ID)
	}
	if err == nil {
		if table.Variant == "" {
			table.Variant = variant.ID
		}
		if table.Title == "" {
			table.Title = variant.Title
		}
		err = table.Validate()
	}

	elapsed := time.Since(start)
	records := 0
	if err == nil {
		records = len(table.Records)
	}
	metrics.RecordTableLoad(variant.ID, source, records, elapsed, err)

	if err != nil {
		r.logger.Error("table load failed",
			zap.String("variant", variant.ID),
			zap.String("source", source),
			zap.Error(err))
		return nil, err
	}

	r.logger.Info("table loaded",
		zap.String("variant", variant.ID),
		zap.String("source", source),
		zap.Int("records", records),
		zap.Int("temperatures", len(table.TemperaturesC)),
		zap.Int("notes", len(table.Notes)),
		zap.Duration("elapsed", elapsed))
	return table, nil
}

// Invalidate drops the cached table of id so the next request reloads it.
func (r *Registry) Invalidate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, id)
}

// SourceOf names the kind of source behind a loader, for logs and metrics.
func SourceOf(loader Loader) string {
	if s, ok := loader.(interface{ Source() string }); ok {
		return s.Source()
	}
	return "custom"
}
