package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/samvad-hq/getjson/internal/domain"
	bolt "go.etcd.io/bbolt"
)

func openTestStore(t *testing.T, opts Options) *boltStore {
	t.Helper()
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "journal.db"), normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreRecentReturnsNewestFirst(t *testing.T) {
	store := openTestStore(t, Options{})
	base := time.Now().Add(-time.Minute)

	for i, id := range []string{"a", "b", "c"} {
		err := store.Record(domain.Outcome{
			ID:         id,
			URL:        "http://example.test/" + id,
			State:      domain.OutcomeResolved,
			StatusCode: 200,
			FetchedAt:  base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	got, err := store.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("unexpected order %#v", got)
	}
	if got[0].URL != "http://example.test/c" || got[0].StatusCode != 200 {
		t.Fatalf("outcome not round-tripped: %#v", got[0])
	}
}

func TestBoltStoreExpiresOutcomes(t *testing.T) {
	store := openTestStore(t, Options{OutcomeTTL: time.Hour, CleanupInterval: time.Hour})
	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Record(domain.Outcome{ID: "old", State: domain.OutcomeRejected, StatusCode: 404}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// Two hours later the entry is past its TTL and the cleanup cadence has elapsed.
	now = now.Add(2 * time.Hour)
	got, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected expired outcome to be hidden, got %#v", got)
	}

	if err := store.Record(domain.Outcome{ID: "new", State: domain.OutcomeResolved, StatusCode: 200}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	var keys int
	if err := store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(outcomeBucket)).ForEach(func(_, _ []byte) error {
			keys++
			return nil
		})
	}); err != nil {
		t.Fatalf("count keys: %v", err)
	}
	if keys != 1 {
		t.Fatalf("expected sweep to leave 1 key, got %d", keys)
	}
}

func TestBoltStoreRejectsEmptyID(t *testing.T) {
	store := openTestStore(t, Options{})
	if err := store.Record(domain.Outcome{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Record(domain.Outcome{ID: "x"}); err != nil {
		t.Fatalf("noop store Record: %v", err)
	}
	got, err := store.Recent(5)
	if err != nil || got != nil {
		t.Fatalf("noop Recent = %v, %v", got, err)
	}
}

func TestNewStoreValidatesType(t *testing.T) {
	if _, err := NewStore("bbolt", " ", Options{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for missing bbolt path, got %v", err)
	}
	if _, err := NewStore("redis", "x", Options{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for unsupported type, got %v", err)
	}
}

func TestNewStoreLockedJournalIsNotConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	held, err := NewStore("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer held.Close()

	_, err = NewStore("bbolt", path, Options{})
	if err == nil {
		t.Fatal("expected lock timeout while the journal is held")
	}
	if errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("lock timeout reported as config error: %v", err)
	}
}
