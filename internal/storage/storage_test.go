package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store := New(filepath.Join(t.TempDir(), "conversions.sqlite"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateSession(ctx, "mouse-01", "session-abc", "/data/raw", map[string]any{"force": true})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive session ID, got %d", id)
	}

	session, err := store.Session(ctx, id)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}

	if session.Subject != "mouse-01" {
		t.Errorf("expected subject mouse-01, got %s", session.Subject)
	}
	if session.SessionID != "session-abc" {
		t.Errorf("expected session id session-abc, got %s", session.SessionID)
	}
	if session.RawPath != "/data/raw" {
		t.Errorf("expected raw path /data/raw, got %s", session.RawPath)
	}
	if session.Config == nil {
		t.Error("expected config to be recorded")
	}
}

func TestStore_RecordCacheAndSeries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sessionID, err := store.CreateSession(ctx, "mouse-01", "session-abc", "/data/raw", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if _, err = store.RecordCache(ctx, &CacheRecord{
		SessionID:       sessionID,
		Path:            "/data/cache",
		TotalNumSamples: 1000,
		Height:          540,
		Width:           640,
		Dtype:           "uint8",
		FPS:             60.0,
		SourceBytes:     1 << 30,
		CacheBytes:      1 << 28,
	}); err != nil {
		t.Fatalf("RecordCache failed: %v", err)
	}

	records := []SeriesRecord{
		{SessionID: sessionID, Name: "optical_channel_calcium", ChannelID: 2, WavelengthNm: 470, NumSamples: 500, SamplingHz: 30.0, TimestampsSource: "externally-aligned"},
		{SessionID: sessionID, Name: "optical_channel_isosbestic", ChannelID: 3, WavelengthNm: 405, NumSamples: 500, SamplingHz: 30.0, TimestampsSource: "externally-aligned"},
	}
	for i := range records {
		if _, err = store.RecordSeries(ctx, &records[i]); err != nil {
			t.Fatalf("RecordSeries failed: %v", err)
		}
	}

	got, err := store.SeriesForSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("SeriesForSession failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 series records, got %d", len(got))
	}
	if got[0].Name != "optical_channel_calcium" || got[1].Name != "optical_channel_isosbestic" {
		t.Errorf("unexpected series order: %s, %s", got[0].Name, got[1].Name)
	}
	if got[0].SamplingHz != 30.0 {
		t.Errorf("expected 30.0 Hz, got %f", got[0].SamplingHz)
	}
}

func TestStore_Sessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, subject := range []string{"mouse-01", "mouse-02"} {
		if _, err := store.CreateSession(ctx, subject, "session", "/data/raw", nil); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].Subject != "mouse-01" || sessions[1].Subject != "mouse-02" {
		t.Errorf("unexpected session order: %s, %s", sessions[0].Subject, sessions[1].Subject)
	}
}
