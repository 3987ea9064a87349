package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

const maxSuggestions = 3

// ShowRecordParams contains parameters for showing a deployment record
type ShowRecordParams struct {
	// Unit narrows the output to one recorded unit; empty shows everything.
	Unit string
	// Pick offers every recorded unit to the selector when Unit is empty.
	Pick bool
}

// ShowRecordResult contains a record and, optionally, one unit of it
type ShowRecordResult struct {
	Record         *models.DeploymentRecord
	Unit           *models.UnitRecord
	Implementation *models.UnitRecord
	Wiring         []*models.WiringRecord
	Upgrades       []*models.UpgradeRecord
}

// ShowRecord is the use case for inspecting what has been deployed
type ShowRecord struct {
	cfg      *config.RuntimeConfig
	network  Network
	records  RecordStore
	selector UnitSelector
	sink     ProgressSink
}

// NewShowRecord creates a new ShowRecord use case
func NewShowRecord(cfg *config.RuntimeConfig, network Network, records RecordStore, selector UnitSelector, sink ProgressSink) *ShowRecord {
	if sink == nil {
		sink = NopProgress{}
	}
	return &ShowRecord{cfg: cfg, network: network, records: records, selector: selector, sink: sink}
}

// Run executes the show record use case
func (uc *ShowRecord) Run(ctx context.Context, params ShowRecordParams) (*ShowRecordResult, error) {
	if uc.cfg.Network == nil {
		return nil, domain.ErrNoNetwork
	}

	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "loading", Message: "Loading deployment record", Spinner: true})

	chainID := uc.cfg.Network.ChainID
	if chainID == 0 {
		id, err := uc.network.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get chain ID: %w", err)
		}
		chainID = id
	}
	record, err := uc.records.Load(ctx, uc.cfg.Network.Name, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment record: %w", err)
	}

	result := &ShowRecordResult{Record: record}
	if params.Unit == "" && params.Pick && len(record.Order) > 0 {
		if uc.selector == nil || uc.cfg.NonInteractive {
			return nil, fmt.Errorf("--pick needs an interactive terminal")
		}
		units := make([]*models.UnitRecord, 0, len(record.Order))
		for _, name := range record.Order {
			units = append(units, record.Units[name])
		}
		selected, err := uc.selector.SelectUnit(ctx, units, "Select a unit")
		if err != nil {
			return nil, err
		}
		params.Unit = selected.Name
	}
	if params.Unit == "" {
		uc.sink.OnProgress(ctx, ProgressEvent{Stage: "complete", Message: "Record loaded"})
		return result, nil
	}

	unit, err := uc.findUnit(ctx, record, params.Unit)
	if err != nil {
		return nil, err
	}
	result.Unit = unit

	if impl, ok := record.Unit(unit.Name + "Implementation"); ok {
		result.Implementation = impl
	}
	result.Wiring = lo.Filter(record.Wiring, func(w *models.WiringRecord, _ int) bool {
		return w.Target == unit.Name
	})
	result.Upgrades = lo.Filter(record.Upgrades, func(u *models.UpgradeRecord, _ int) bool {
		return u.Target == unit.Name || u.TargetAddress == unit.Address
	})

	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "complete", Message: "Unit loaded"})
	return result, nil
}

// findUnit matches name exactly, then case-insensitively, then offers the
// fuzzy candidates to the selector.
func (uc *ShowRecord) findUnit(ctx context.Context, record *models.DeploymentRecord, name string) (*models.UnitRecord, error) {
	if u, ok := record.Unit(name); ok {
		return u, nil
	}

	for _, candidate := range record.Names() {
		if strings.EqualFold(candidate, name) {
			u, _ := record.Unit(candidate)
			return u, nil
		}
	}

	suggestions := suggestUnits(record, name)
	if uc.selector != nil && !uc.cfg.NonInteractive && len(suggestions) > 0 {
		candidates := make([]*models.UnitRecord, 0, len(suggestions))
		for _, s := range suggestions {
			u, _ := record.Unit(s)
			candidates = append(candidates, u)
		}
		selected, err := uc.selector.SelectUnit(ctx, candidates, fmt.Sprintf("No unit named %q. Select one", name))
		if err == nil && selected != nil {
			return selected, nil
		}
	}

	return nil, &domain.UnitNotFoundError{Name: name, Network: record.Network, Suggestions: suggestions}
}

// suggestUnits returns up to maxSuggestions recorded names close to name,
// best match first.
func suggestUnits(record *models.DeploymentRecord, name string) []string {
	if record == nil || name == "" {
		return nil
	}
	names := record.Names()

	matches := fuzzy.Find(strings.ToLower(name), lo.Map(names, func(n string, _ int) string {
		return strings.ToLower(n)
	}))
	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		out = append(out, names[m.Index])
	}

	// Substring hits that fuzzy ranking missed, e.g. a name longer than the candidate.
	for _, n := range names {
		if strings.Contains(strings.ToLower(name), strings.ToLower(n)) && !lo.Contains(out, n) {
			out = append(out, n)
		}
	}

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}
