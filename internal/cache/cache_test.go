package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

// backends returns a fresh store of every kind sharing the given clock.
func backends(t *testing.T, c *clock) map[string]Store {
	t.Helper()
	mem := NewMemoryStore()
	mem.now = c.now

	sq, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	sq.now = c.now
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]Store{"memory": mem, "sqlite": sq}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t, &clock{t: time.Unix(1_700_000_000, 0)}) {
		t.Run(name, func(t *testing.T) {
			if _, found, err := store.Get(ctx, "missing"); err != nil || found {
				t.Fatalf("Get(missing) = found %v, err %v", found, err)
			}

			if err := store.Set(ctx, "a", []byte("one"), time.Minute); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := store.Set(ctx, "a", []byte("two"), time.Minute); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}
			got, found, err := store.Get(ctx, "a")
			if err != nil || !found || string(got) != "two" {
				t.Fatalf("Get(a) = %q, %v, %v", got, found, err)
			}

			if err := store.Delete(ctx, "a"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, found, _ := store.Get(ctx, "a"); found {
				t.Error("deleted key still present")
			}

			_ = store.Set(ctx, "b", []byte("x"), time.Minute)
			_ = store.Set(ctx, "c", []byte("y"), time.Minute)
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			for _, k := range []string{"b", "c"} {
				if _, found, _ := store.Get(ctx, k); found {
					t.Errorf("key %q survived Clear", k)
				}
			}

			if err := store.Set(ctx, "zero", []byte("x"), 0); err != nil {
				t.Fatalf("Set(ttl=0) error = %v", err)
			}
			if _, found, _ := store.Get(ctx, "zero"); found {
				t.Error("non-positive TTL should not store")
			}
		})
	}
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(1_700_000_000, 0)}

	stores := backends(t, c)
	for _, store := range stores {
		_ = store.Set(ctx, "k", []byte("v"), 30*time.Second)
	}

	c.t = c.t.Add(29 * time.Second)
	for name, store := range stores {
		if _, found, _ := store.Get(ctx, "k"); !found {
			t.Errorf("%s: entry expired early", name)
		}
	}

	c.t = c.t.Add(time.Second)
	for name, store := range stores {
		if _, found, err := store.Get(ctx, "k"); found || err != nil {
			t.Errorf("%s: expired entry returned found=%v err=%v", name, found, err)
		}
	}
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := OpenSQLite(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Set(ctx, "registration:example.com", []byte(`{"source":"rdap"}`), time.Hour); err != nil {
		t.Fatal(err)
	}
	_ = first.Close()

	if _, err := os.Stat(filepath.Join(dir, SQLiteFileName)); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	second, err := OpenSQLite(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	got, found, err := second.Get(ctx, "registration:example.com")
	if err != nil || !found || string(got) != `{"source":"rdap"}` {
		t.Fatalf("Get() after reopen = %q, %v, %v", got, found, err)
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	m := NewMemoryStore()
	_ = m.Close()
	if _, _, err := m.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after Close = %v", err)
	}
	if err := m.Set(context.Background(), "k", nil, time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("Set() after Close = %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	type record struct {
		Domain string `json:"domain"`
	}
	if err := SetJSON(ctx, store, "r", record{Domain: "example.com"}, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got record
	found, err := GetJSON(ctx, store, "r", &got)
	if err != nil || !found || got.Domain != "example.com" {
		t.Fatalf("GetJSON() = %+v, %v, %v", got, found, err)
	}

	_ = store.Set(ctx, "corrupt", []byte("{"), time.Minute)
	if found, err := GetJSON(ctx, store, "corrupt", &got); found || err != nil {
		t.Errorf("corrupt entry should be a miss, got %v, %v", found, err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"", false},
		{BackendMemory, false},
		{BackendSQLite, false},
		{BackendNone, false},
		{"redis", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			store, err := New(tt.backend, t.TempDir())
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v", tt.backend, err)
			}
			if store != nil {
				_ = store.Close()
			}
		})
	}

	if _, err := New(BackendSQLite, ""); err == nil {
		t.Error("sqlite without a directory should fail")
	}
}
