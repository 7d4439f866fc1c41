package storage

import (
	"os"
	"testing"
	"time"
)

func TestSearchStatsAverageNPS(t *testing.T) {
	stats := &SearchStats{TotalNodes: 2_000_000, TotalTime: 2 * time.Second}
	if got := stats.AverageNPS(); got != 1_000_000 {
		t.Errorf("expected 1,000,000 NPS, got %v", got)
	}

	empty := &SearchStats{}
	if got := empty.AverageNPS(); got != 0 {
		t.Errorf("expected 0 NPS with no recorded time, got %v", got)
	}
}

func TestStorageRecordAndLoadStats(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "kestrel-storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)
	t.Setenv("XDG_DATA_HOME", tmpDir)

	store, err := NewStorage()
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	defer store.Close()

	stats, err := store.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats on empty store: %v", err)
	}
	if stats.Searches != 0 {
		t.Errorf("expected 0 searches on empty store, got %d", stats.Searches)
	}

	if err := store.RecordSearch(50_000, 100*time.Millisecond); err != nil {
		t.Fatalf("RecordSearch: %v", err)
	}
	if err := store.RecordSearch(75_000, 150*time.Millisecond); err != nil {
		t.Fatalf("RecordSearch: %v", err)
	}

	stats, err = store.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if stats.Searches != 2 {
		t.Errorf("expected 2 searches, got %d", stats.Searches)
	}
	if stats.TotalNodes != 125_000 {
		t.Errorf("expected 125,000 total nodes, got %d", stats.TotalNodes)
	}
}

func TestStorageBookCache(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "kestrel-storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)
	t.Setenv("XDG_DATA_HOME", tmpDir)

	store, err := NewStorage()
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	defer store.Close()

	data, path, err := store.LoadBook()
	if err != nil {
		t.Fatalf("LoadBook on empty store: %v", err)
	}
	if data != nil || path != "" {
		t.Errorf("expected no cached book, got path=%q len(data)=%d", path, len(data))
	}

	blob := []byte{0x01, 0x02, 0x03, 0x04}
	if err := store.SaveBook("/tmp/test.bin", blob); err != nil {
		t.Fatalf("SaveBook: %v", err)
	}

	data, path, err = store.LoadBook()
	if err != nil {
		t.Fatalf("LoadBook: %v", err)
	}
	if path != "/tmp/test.bin" {
		t.Errorf("expected path /tmp/test.bin, got %q", path)
	}
	if len(data) != len(blob) {
		t.Errorf("expected %d cached bytes, got %d", len(blob), len(data))
	}
}

func TestDataPaths(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "kestrel-storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)
	t.Setenv("XDG_DATA_HOME", tmpDir)

	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("data directory was not created: %s", dataDir)
	}
}
