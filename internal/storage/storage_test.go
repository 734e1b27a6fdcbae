package storage

import (
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWatermark_MissingIsZero(t *testing.T) {
	s := newTestStorage(t)
	got, err := s.LoadWatermark("steam")
	if err != nil {
		t.Fatalf("LoadWatermark: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("got %v, want zero time", got)
	}
}

func TestWatermark_SaveAndLoad(t *testing.T) {
	s := newTestStorage(t)
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := s.SaveWatermark("steam", want); err != nil {
		t.Fatalf("SaveWatermark: %v", err)
	}
	got, err := s.LoadWatermark("steam")
	if err != nil {
		t.Fatalf("LoadWatermark: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWatermark_Upsert(t *testing.T) {
	s := newTestStorage(t)
	first := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	if err := s.SaveWatermark("steam", first); err != nil {
		t.Fatalf("SaveWatermark: %v", err)
	}
	if err := s.SaveWatermark("steam", second); err != nil {
		t.Fatalf("SaveWatermark (overwrite): %v", err)
	}
	got, err := s.LoadWatermark("steam")
	if err != nil {
		t.Fatalf("LoadWatermark: %v", err)
	}
	if !got.Equal(second) {
		t.Errorf("got %v, want %v", got, second)
	}
}

func TestWatermark_PerSource(t *testing.T) {
	s := newTestStorage(t)
	steam := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	other := steam.Add(time.Hour)

	if err := s.SaveWatermark("steam", steam); err != nil {
		t.Fatalf("SaveWatermark: %v", err)
	}
	if err := s.SaveWatermark("other", other); err != nil {
		t.Fatalf("SaveWatermark: %v", err)
	}
	got, err := s.LoadWatermark("steam")
	if err != nil {
		t.Fatalf("LoadWatermark: %v", err)
	}
	if !got.Equal(steam) {
		t.Errorf("got %v, want %v", got, steam)
	}
}
