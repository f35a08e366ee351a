package telemetry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	write("061026.txt", "heures\tstill\n10:00:00\t0.8\n")
	write("061226.txt", "heures\tstill\n")
	write("notes.txt", "not a log")
	write("061126.csv", "wrong extension")

	src := NewDirSource(dir, ".txt", time.UTC)

	if src.FileName(day(10)) != "061026.txt" {
		t.Errorf("FileName() = %q", src.FileName(day(10)))
	}

	data, err := src.Fetch(context.Background(), day(10))
	if err != nil || len(data) == 0 {
		t.Fatalf("Fetch() = %q, %v", data, err)
	}

	if _, err := src.Fetch(context.Background(), day(11)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch(missing) error = %v, want ErrNotFound", err)
	}

	rng, err := src.Available()
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if !rng.Start.Equal(day(10)) || !rng.End.Equal(day(12)) {
		t.Errorf("Available() = %v", rng)
	}

	fp, err := src.Fingerprint(day(10))
	if err != nil || !fp.Exists || fp.Size == 0 {
		t.Errorf("Fingerprint() = %+v, %v", fp, err)
	}
	fp, err = src.Fingerprint(day(11))
	if err != nil || fp.Exists {
		t.Errorf("Fingerprint(missing) = %+v, %v", fp, err)
	}
}

func TestDirSource_AvailableEmpty(t *testing.T) {
	src := NewDirSource(t.TempDir(), "", time.UTC)
	if _, err := src.Available(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Available() error = %v, want ErrNotFound", err)
	}
}

func TestDirSource_MergeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "061026.txt"), []byte("heures\tstill\n10:00:00\t0.8\n"), 0600); err != nil {
		t.Fatal(err)
	}

	m := NewMerger(NewDirSource(dir, ".txt", time.UTC), NewParser(time.UTC, time.Minute), MergerConfig{Parallelism: 2})
	res, err := m.Merge(context.Background(), Range{Start: day(9), End: day(10)})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if res.Series.Len() != 1 || len(res.Missing) != 1 {
		t.Errorf("Len = %d Missing = %v", res.Series.Len(), res.Missing)
	}
}
