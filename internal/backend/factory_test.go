package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"kaskelas/internal/config"
	"kaskelas/internal/core"
	"kaskelas/internal/store"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", SeedDir: "seed", AMQPURL: "amqp://h/"}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != SQLiteBackend || got.SQLiteDBPath != "x.db" || got.SeedDir != "seed" || got.AMQPURL != "amqp://h/" {
		t.Fatalf("config = %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		cfg Config
		ok  bool
	}{
		{Config{Type: MemoryBackend}, true},
		{Config{Type: SQLiteBackend, SQLiteDBPath: "kas.db"}, true},
		{Config{Type: SQLiteBackend}, false},
		{Config{Type: "sheets"}, false},
		{Config{Type: MemoryBackend, AMQPURL: "amqp://h/"}, false},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); (err == nil) != tc.ok {
			t.Fatalf("Validate(%+v) = %v", tc.cfg, err)
		}
	}
}

func TestCreateBackendWiresHub(t *testing.T) {
	for _, cfg := range []Config{
		{Type: MemoryBackend, SeedDir: t.TempDir()},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "kas.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			ctx := context.Background()
			res, err := NewFactory(nil).CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Cleanup()

			if err := res.Ready(ctx); err != nil {
				t.Fatalf("ready: %v", err)
			}

			got := make(chan store.Change, 1)
			unsub := res.Hub.Subscribe(store.Students, func(c store.Change) { got <- c })
			defer unsub()

			st, err := res.Store.CreateStudent(ctx, core.Student{Name: "Ahmad", NIM: "19001", Cohort: core.DefaultCohort})
			if err != nil {
				t.Fatalf("create student: %v", err)
			}
			select {
			case c := <-got:
				if c.ID != st.ID || c.Op != store.OpInsert {
					t.Fatalf("change = %+v", c)
				}
			case <-time.After(time.Second):
				t.Fatal("no change delivered")
			}

			if _, err := res.Store.GetStudent(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}
