// Package dealer resolves per-dealer scheduling context once per batch.
package dealer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"nsa-scheduler/internal/common/config"
	"nsa-scheduler/internal/common/logger"
	"nsa-scheduler/internal/models"
)

// SlotSizeAPI is the slice of the platform client the resolver needs.
type SlotSizeAPI interface {
	SlotSize(ctx context.Context, dealerUUID string) (int, error)
}

// Resolver builds DealerContext values from static configuration plus the
// platform's hours-of-operation endpoint. Contexts are resolved once per
// distinct dealer in the batch and cached for the run; the cache is never
// invalidated mid-run.
type Resolver struct {
	dealers map[string]config.DealerConfig
	api     SlotSizeAPI
	logger  logger.Logger
	cache   map[string]*models.DealerContext
}

func NewResolver(dealers map[string]config.DealerConfig, api SlotSizeAPI, log logger.Logger) *Resolver {
	return &Resolver{
		dealers: dealers,
		api:     api,
		logger:  log,
		cache:   make(map[string]*models.DealerContext),
	}
}

// Prefetch resolves the context for every distinct dealer present in the
// batch. Unknown dealers cache a nil context so rows can fail fast.
func (r *Resolver) Prefetch(ctx context.Context, rows []*models.OrderRow) {
	for _, row := range rows {
		if _, seen := r.cache[row.DealerID]; seen {
			continue
		}
		r.cache[row.DealerID] = r.resolve(ctx, row.DealerID)
	}
}

// Get returns the cached context for a dealer. The second return is false
// when the dealer is absent from configuration.
func (r *Resolver) Get(dealerID string) (*models.DealerContext, bool) {
	dc, ok := r.cache[dealerID]
	if !ok || dc == nil {
		return nil, false
	}
	return dc, true
}

func (r *Resolver) resolve(ctx context.Context, dealerID string) *models.DealerContext {
	cfg, ok := r.dealers[dealerID]
	if !ok {
		r.logger.Warn("dealer not found in configuration", map[string]interface{}{
			"dealerId": dealerID,
		})
		return nil
	}

	slotSize, err := r.api.SlotSize(ctx, cfg.DealerUUID)
	if err != nil {
		r.logger.Warn("slot size fetch failed, using default", map[string]interface{}{
			"dealerId": dealerID,
			"error":    err.Error(),
		})
		slotSize = 15
	}

	catalog, err := LoadOpcodeCatalog(cfg.OpcodeCatalogPath)
	if err != nil {
		r.logger.Warn("opcode catalog load failed, using empty catalog", map[string]interface{}{
			"dealerId": dealerID,
			"path":     cfg.OpcodeCatalogPath,
			"error":    err.Error(),
		})
		catalog = map[string]string{}
	}

	return &models.DealerContext{
		DealerID:              dealerID,
		Name:                  cfg.Name,
		DealerUUID:            cfg.DealerUUID,
		DepartmentUUID:        cfg.DepartmentUUID,
		SlotSizeMins:          slotSize,
		ValidOpcodes:          catalog,
		DefaultNSAOpcode:      cfg.DefaultNSAOpcode,
		ServiceIntervalMonths: cfg.ServiceIntervalMonths,
	}
}

// LoadOpcodeCatalog reads an opcode,description CSV with a header row.
func LoadOpcodeCatalog(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open opcode catalog %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	catalog := make(map[string]string)
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read opcode catalog %s: %w", path, err)
		}
		if first {
			first = false
			continue
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		opcode := strings.TrimSpace(record[0])
		description := ""
		if len(record) > 1 {
			description = strings.TrimSpace(record[1])
		}
		catalog[opcode] = description
	}
	return catalog, nil
}
