package repo_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/repo"
	"github.com/hamed0406/uptimewatch/internal/repo/file"
	"github.com/hamed0406/uptimewatch/internal/repo/memory"
	"github.com/hamed0406/uptimewatch/internal/repo/natskv"
	pg "github.com/hamed0406/uptimewatch/internal/repo/postgres"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.DocumentStore = memory.New()
	var _ repo.DocumentStore = (*file.Store)(nil)
	var _ repo.DocumentStore = (*pg.Store)(nil)
	var _ repo.DocumentStore = (*natskv.Store)(nil)
}

func TestDocuments_DefaultsWhenAbsent(t *testing.T) {
	ctx := context.Background()
	docs := repo.NewDocuments(memory.New())

	st, err := docs.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(st.Streaks) != 0 || len(st.OpenAlerts) != 0 || st.Streaks == nil {
		t.Fatalf("expected empty state, got %+v", st)
	}

	h, err := docs.LoadHistory(ctx)
	if err != nil || h.Events == nil || len(h.Events) != 0 {
		t.Fatalf("expected empty history, got %+v err=%v", h, err)
	}
	if a, err := docs.LoadAlerts(ctx); err != nil || a.Alerts == nil {
		t.Fatalf("expected empty alerts, got %+v err=%v", a, err)
	}
	if r, err := docs.LoadRecoveries(ctx); err != nil || r.Recoveries == nil {
		t.Fatalf("expected empty recoveries, got %+v err=%v", r, err)
	}
	if l, err := docs.LoadLatest(ctx); err != nil || l.Results == nil {
		t.Fatalf("expected empty latest, got %+v err=%v", l, err)
	}
}

func TestDocuments_EmptyCollectionsEncodeAsArrays(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	docs := repo.NewDocuments(store)

	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	if err := docs.SaveAlerts(ctx, domain.AlertsDoc{GeneratedAt: now}); err != nil {
		t.Fatalf("SaveAlerts: %v", err)
	}
	if err := docs.SaveHistory(ctx, domain.HistoryDoc{}); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}

	b, _ := store.Get(ctx, repo.DocAlerts)
	if !strings.Contains(string(b), `"alerts": []`) {
		t.Fatalf("alerts should be an empty array: %s", b)
	}
	b, _ = store.Get(ctx, repo.DocHistory)
	if !strings.Contains(string(b), `"events": []`) {
		t.Fatalf("events should be an empty array: %s", b)
	}
}

func TestDocuments_StateRoundTripsOpenAlerts(t *testing.T) {
	ctx := context.Background()
	docs := repo.NewDocuments(memory.New())

	st := domain.NewRunState()
	ref := domain.AlertRef("abc")
	st.Set("https://a", domain.TargetState{Streak: 3, OpenAlert: &ref})
	st.Set("https://b", domain.TargetState{Streak: 0})
	if err := docs.SaveState(ctx, st); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got, err := docs.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	a := got.Get("https://a")
	if a.Streak != 3 || a.OpenAlert == nil || *a.OpenAlert != "abc" {
		t.Fatalf("unexpected a: %+v", a)
	}
	if got.Get("https://b").HasOpenAlert() {
		t.Fatalf("b should have no open alert")
	}
}

func TestDocuments_MalformedIsError(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_ = store.Put(ctx, repo.DocState, []byte(`{"streaks": [1,2]}`))

	if _, err := repo.NewDocuments(store).LoadState(ctx); err == nil {
		t.Fatalf("expected decode error for malformed state")
	}
}
