package fitsync_test

import (
	"testing"
	"time"

	"fitsync-go/internal/cache"
	"fitsync-go/internal/fitsync"
	"fitsync-go/internal/testutil"
)

type snapshot struct {
	Name string `json:"name"`
}

func newCacheStore() (*fitsync.CacheStore, *cache.MemoryStore, *testutil.StubClock) {
	local := cache.NewMemoryStore()
	clock := testutil.FixedClock()
	return fitsync.NewCacheStore(local, clock, nil, nil), local, clock
}

func TestCacheStore_RoundTrip(t *testing.T) {
	c, _, _ := newCacheStore()
	if err := c.Write("k", "u1", snapshot{Name: "squat"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var got snapshot
	hit, err := c.Read("k", "u1", &got)
	if err != nil || !hit {
		t.Fatalf("Read() = %v, %v, want hit", hit, err)
	}
	if got.Name != "squat" {
		t.Errorf("Name = %q, want %q", got.Name, "squat")
	}
}

func TestCacheStore_Misses(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reader string
	}{
		{name: "nothing stored", raw: "", reader: "u1"},
		{name: "corrupt entry", raw: "{not json", reader: "u1"},
		{name: "other version", raw: `{"version":999,"user_id":"u1","data":{"name":"x"}}`, reader: "u1"},
		{name: "other user", raw: `{"version":1,"user_id":"u2","data":{"name":"x"}}`, reader: "u1"},
		{name: "undecodable payload", raw: `{"version":1,"user_id":"u1","data":[1,2]}`, reader: "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, local, _ := newCacheStore()
			if tt.raw != "" {
				if err := local.Set("k", tt.raw); err != nil {
					t.Fatalf("Set() error = %v", err)
				}
			}
			var got snapshot
			hit, err := c.Read("k", tt.reader, &got)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if hit {
				t.Errorf("Read() hit = true, want miss")
			}
		})
	}
}

func TestCacheStore_Freshness(t *testing.T) {
	c, _, clock := newCacheStore()

	fresh, err := c.Fresh("k", time.Hour)
	if err != nil || fresh {
		t.Fatalf("Fresh() without stamp = %v, %v, want false", fresh, err)
	}

	if err := c.WriteStamp("k", clock.Now()); err != nil {
		t.Fatalf("WriteStamp() error = %v", err)
	}
	clock.Advance(59 * time.Minute)
	if fresh, _ := c.Fresh("k", time.Hour); !fresh {
		t.Error("Fresh() = false inside window")
	}
	clock.Advance(time.Minute)
	if fresh, _ := c.Fresh("k", time.Hour); fresh {
		t.Error("Fresh() = true at window edge")
	}
}

func TestCacheStore_FutureStampIsStale(t *testing.T) {
	c, _, clock := newCacheStore()
	if err := c.WriteStamp("k", clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("WriteStamp() error = %v", err)
	}
	if fresh, err := c.Fresh("k", 24*time.Hour); err != nil || fresh {
		t.Errorf("Fresh() = %v, %v, want false, nil", fresh, err)
	}
}

func TestCacheStore_CorruptStampIsStale(t *testing.T) {
	c, local, _ := newCacheStore()
	if err := local.Set("k_timestamp", "yesterday"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if fresh, err := c.Fresh("k", time.Hour); err != nil || fresh {
		t.Errorf("Fresh() = %v, %v, want false, nil", fresh, err)
	}
}

func TestCacheStore_Remove(t *testing.T) {
	c, local, clock := newCacheStore()
	if err := c.Write("k", "u1", snapshot{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := c.WriteStamp("k", clock.Now()); err != nil {
		t.Fatalf("WriteStamp() error = %v", err)
	}
	if err := c.Remove("k"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if keys := local.Keys(); len(keys) != 0 {
		t.Errorf("keys left after Remove: %v", keys)
	}
}

func TestCacheStore_EntryRecordsWriter(t *testing.T) {
	c, _, clock := newCacheStore()
	if err := c.Write("k", "u1", snapshot{Name: "x"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	entry, err := c.Entry("k")
	if err != nil || entry == nil {
		t.Fatalf("Entry() = %v, %v", entry, err)
	}
	if entry.UserID != "u1" || !entry.SavedAt.Equal(clock.Now()) {
		t.Errorf("entry = %+v", entry)
	}
}
