package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/Dev-Ruco/pressflow/internal/adapters/memory"
	"github.com/Dev-Ruco/pressflow/pkg/ports"
)

func TestMemoryStateStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, memory.NewStateStore())
}

func TestMemoryArticleStore_Contract(t *testing.T) {
	ports.RunArticleStoreContract(t, memory.NewArticleStore())
}

func TestMemoryTitleCache_Contract(t *testing.T) {
	ports.RunTitleCacheContract(t, memory.NewTitleCache())
}

func TestMemoryTitleCache_Expiry(t *testing.T) {
	cache := memory.NewTitleCache()

	current := time.Now()
	cache.SetClock(func() time.Time { return current })

	ctx := context.Background()
	if err := cache.Put(ctx, "art-1", []string{"a", "b"}, time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	current = current.Add(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "art-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected entry to expire after TTL")
	}
}
