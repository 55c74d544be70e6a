// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("leads:a", []string{"acme-co", "globex"})

	got, ok := c.Get("leads:a")
	if !ok {
		t.Fatal("expected cache hit")
	}
	leads, ok := got.([]string)
	if !ok || len(leads) != 2 {
		t.Fatalf("unexpected cached value %v", got)
	}

	if _, ok := c.Get("leads:missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCacheExpiration(t *testing.T) {
	c := New(time.Minute)

	c.SetWithTTL("short", "value", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("expected expired entry to miss")
	}

	stats := c.GetStats()
	if stats.Evictions < 1 {
		t.Errorf("expected eviction on expired read, got %d", stats.Evictions)
	}
}

func TestCacheClear(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after Clear")
	}
	if got := c.GetStats().TotalKeys; got != 0 {
		t.Errorf("expected 0 keys after Clear, got %d", got)
	}
}

func TestCacheDelete(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", 1)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after Delete")
	}

	// Deleting a missing key is a no-op.
	c.Delete("never-set")
}

func TestCacheStats(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.GetStats()
	if stats.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}

	rate := c.HitRate()
	if rate < 66.0 || rate > 67.0 {
		t.Errorf("expected hit rate ~66.7, got %.2f", rate)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%3)
			for j := 0; j < 100; j++ {
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if got := c.GetStats().TotalKeys; got != 3 {
		t.Errorf("expected 3 keys, got %d", got)
	}
}

func TestGenerateKey(t *testing.T) {
	type params struct {
		Workspace string
		Limit     int
	}

	a := GenerateKey("leads", params{Workspace: "tenant-a", Limit: 50})
	b := GenerateKey("leads", params{Workspace: "tenant-a", Limit: 50})
	if a != b {
		t.Error("identical params should produce identical keys")
	}

	other := GenerateKey("leads", params{Workspace: "tenant-b", Limit: 50})
	if a == other {
		t.Error("different params should produce different keys")
	}

	method := GenerateKey("recent", params{Workspace: "tenant-a", Limit: 50})
	if a == method {
		t.Error("different methods should produce different keys")
	}
}
