package storage

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"aura/internal/config"
	"aura/internal/meeting"
)

var sample = []meeting.Record{
	{ID: "a", Title: "Standup", Transcript: "we shipped ", Summary: "**## Standup ##**\n• shipped"},
	{ID: "b", Title: "Meeting - 10:00:00", Transcript: "", Summary: ""},
}

func TestJSONFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.json")
	f := NewJSONFile(path)
	ctx := context.Background()

	got, err := f.Load(ctx)
	if err != nil || got != nil {
		t.Fatalf("Load() on missing file = %v, %v; want nil, nil", got, err)
	}

	if err := f.Save(ctx, sample); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n        \"id\": \"a\"") {
		t.Errorf("file not indented with 4 spaces:\n%s", data)
	}

	got, err = f.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, sample) {
		t.Errorf("Load() = %+v, want %+v", got, sample)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only sessions.json", len(entries))
	}
}

func TestJSONFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := NewJSONFile(path).Load(context.Background()); err == nil {
		t.Error("Load() error = nil on corrupt file")
	}
}

func TestSQLiteSaveReplaces(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "aura.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	if err := db.Save(ctx, sample); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, sample) {
		t.Errorf("Load() = %+v, want %+v", got, sample)
	}

	next := []meeting.Record{{ID: "b", Title: "Renamed"}}
	if err := db.Save(ctx, next); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, _ = db.Load(ctx)
	if !reflect.DeepEqual(got, next) {
		t.Errorf("Load() after replace = %+v, want %+v", got, next)
	}

	if err := db.Save(ctx, nil); err != nil {
		t.Fatalf("Save(nil) error = %v", err)
	}
	if got, _ := db.Load(ctx); len(got) != 0 {
		t.Errorf("Load() after empty save = %+v", got)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(config.StorageConfig{Backend: config.StorageJSON, SessionsFile: filepath.Join(dir, "s.json")})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*JSONFile); !ok {
		t.Errorf("Open(json) = %T", b)
	}
	if _, err := Open(config.StorageConfig{Backend: "etcd"}); err == nil {
		t.Error("Open(etcd) error = nil")
	}
}
