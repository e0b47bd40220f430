package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// Documents reads and writes the typed run documents on top of a
// DocumentStore. Missing documents load as empty defaults.
type Documents struct {
	Store DocumentStore
}

func NewDocuments(s DocumentStore) *Documents {
	return &Documents{Store: s}
}

func (d *Documents) LoadState(ctx context.Context) (*domain.RunState, error) {
	st := domain.NewRunState()
	if err := d.load(ctx, DocState, st); err != nil {
		return nil, err
	}
	if st.Streaks == nil {
		st.Streaks = map[string]int{}
	}
	if st.OpenAlerts == nil {
		st.OpenAlerts = map[string]domain.AlertRef{}
	}
	return st, nil
}

func (d *Documents) SaveState(ctx context.Context, st *domain.RunState) error {
	if st == nil {
		st = domain.NewRunState()
	}
	return d.save(ctx, DocState, st)
}

func (d *Documents) LoadHistory(ctx context.Context) (domain.HistoryDoc, error) {
	doc := domain.HistoryDoc{Events: []domain.ProbeResult{}}
	if err := d.load(ctx, DocHistory, &doc); err != nil {
		return domain.HistoryDoc{}, err
	}
	if doc.Events == nil {
		doc.Events = []domain.ProbeResult{}
	}
	return doc, nil
}

func (d *Documents) SaveHistory(ctx context.Context, doc domain.HistoryDoc) error {
	if doc.Events == nil {
		doc.Events = []domain.ProbeResult{}
	}
	return d.save(ctx, DocHistory, doc)
}

func (d *Documents) LoadLatest(ctx context.Context) (domain.LatestDoc, error) {
	doc := domain.LatestDoc{Results: []domain.ProbeResult{}}
	if err := d.load(ctx, DocLatest, &doc); err != nil {
		return domain.LatestDoc{}, err
	}
	if doc.Results == nil {
		doc.Results = []domain.ProbeResult{}
	}
	return doc, nil
}

func (d *Documents) SaveLatest(ctx context.Context, doc domain.LatestDoc) error {
	if doc.Results == nil {
		doc.Results = []domain.ProbeResult{}
	}
	return d.save(ctx, DocLatest, doc)
}

func (d *Documents) LoadAlerts(ctx context.Context) (domain.AlertsDoc, error) {
	doc := domain.AlertsDoc{Alerts: []domain.AlertEvent{}}
	if err := d.load(ctx, DocAlerts, &doc); err != nil {
		return domain.AlertsDoc{}, err
	}
	if doc.Alerts == nil {
		doc.Alerts = []domain.AlertEvent{}
	}
	return doc, nil
}

func (d *Documents) SaveAlerts(ctx context.Context, doc domain.AlertsDoc) error {
	if doc.Alerts == nil {
		doc.Alerts = []domain.AlertEvent{}
	}
	return d.save(ctx, DocAlerts, doc)
}

func (d *Documents) LoadRecoveries(ctx context.Context) (domain.RecoveriesDoc, error) {
	doc := domain.RecoveriesDoc{Recoveries: []domain.RecoveryEvent{}}
	if err := d.load(ctx, DocRecoveries, &doc); err != nil {
		return domain.RecoveriesDoc{}, err
	}
	if doc.Recoveries == nil {
		doc.Recoveries = []domain.RecoveryEvent{}
	}
	return doc, nil
}

func (d *Documents) SaveRecoveries(ctx context.Context, doc domain.RecoveriesDoc) error {
	if doc.Recoveries == nil {
		doc.Recoveries = []domain.RecoveryEvent{}
	}
	return d.save(ctx, DocRecoveries, doc)
}

func (d *Documents) load(ctx context.Context, name string, dst any) error {
	b, err := d.Store.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (d *Documents) save(ctx context.Context, name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := d.Store.Put(ctx, name, b); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}
