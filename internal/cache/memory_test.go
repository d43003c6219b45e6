package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProviderExpiry(t *testing.T) {
	now := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryProvider()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("expected cached value, got %q err=%v", got, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss after expiry, got %v", err)
	}
}

func TestMemoryProviderDel(t *testing.T) {
	c := NewMemoryProvider()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
	if err := c.Del(ctx, "absent"); err != nil {
		t.Fatalf("deleting an absent key should succeed: %v", err)
	}
}

func TestJSONHelpersRoundTripThroughProvider(t *testing.T) {
	c := NewMemoryProvider()
	ctx := context.Background()

	type payload struct {
		Village string `json:"village"`
		Cases   int    `json:"cases"`
	}
	if err := SetJSON(ctx, c, "hotspots", []payload{{Village: "Rampur", Cases: 4}}, time.Minute); err != nil {
		t.Fatalf("set json: %v", err)
	}
	var out []payload
	if err := GetJSON(ctx, c, "hotspots", &out); err != nil {
		t.Fatalf("get json: %v", err)
	}
	if len(out) != 1 || out[0].Village != "Rampur" || out[0].Cases != 4 {
		t.Fatalf("unexpected payload: %+v", out)
	}

	if err := GetJSON(ctx, NoopProvider{}, "hotspots", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected noop provider miss, got %v", err)
	}
}
