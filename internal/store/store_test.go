// internal/store/store_test.go
package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

func sampleProfile(hostname string) *types.SiteSelectorProfile {
	p := types.NewSiteSelectorProfile(hostname)
	p.Rules[types.FieldPrice] = []types.SelectorRule{
		{Selector: ".price-main"},
		{Selector: "span.amount", Attribute: "content"},
	}
	p.Rules[types.FieldTitle] = []types.SelectorRule{
		{Selector: "h1.product-title"},
	}
	return p
}

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Put(ctx, sampleProfile("shop.example.com")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get(ctx, "shop.example.com")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Hostname != "shop.example.com" {
		t.Errorf("hostname = %q, want shop.example.com", got.Hostname)
	}
	if len(got.Rules[types.FieldPrice]) != 2 {
		t.Errorf("price rules = %d, want 2", len(got.Rules[types.FieldPrice]))
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set on Put")
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "missing.example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreHostnameNormalization(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Put(ctx, sampleProfile("  Shop.Example.COM ")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get(ctx, "shop.example.com")
	if err != nil {
		t.Fatalf("Get after normalization failed: %v", err)
	}
	if got.Hostname != "shop.example.com" {
		t.Errorf("hostname = %q, want lowercase trimmed form", got.Hostname)
	}
}

func TestMemoryStoreCloneIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	original := sampleProfile("shop.example.com")
	if err := s.Put(ctx, original); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Mutating the caller's copy must not reach the stored profile.
	original.Rules[types.FieldPrice][0].Selector = "mutated"

	got, err := s.Get(ctx, "shop.example.com")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Rules[types.FieldPrice][0].Selector != ".price-main" {
		t.Error("stored profile shares memory with the caller's profile")
	}

	// Mutating a returned profile must not reach the stored one either.
	got.Rules[types.FieldTitle][0].Selector = "mutated"
	again, err := s.Get(ctx, "shop.example.com")
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if again.Rules[types.FieldTitle][0].Selector != "h1.product-title" {
		t.Error("returned profile shares memory with the stored one")
	}
}

func TestMemoryStoreUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Put(ctx, sampleProfile("shop.example.com")); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	replacement := types.NewSiteSelectorProfile("shop.example.com")
	replacement.Rules[types.FieldTitle] = []types.SelectorRule{{Selector: "h2.alt-title"}}
	if err := s.Put(ctx, replacement); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1 after upsert", s.Len())
	}
	got, err := s.Get(ctx, "shop.example.com")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Rules[types.FieldPrice]) != 0 {
		t.Error("upsert kept rules from the replaced profile")
	}
	if got.Rules[types.FieldTitle][0].Selector != "h2.alt-title" {
		t.Errorf("title rule = %q, want h2.alt-title", got.Rules[types.FieldTitle][0].Selector)
	}
}

func TestMemoryStoreRejectsEmptyHostname(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Put(context.Background(), types.NewSiteSelectorProfile("")); err == nil {
		t.Fatal("Put accepted a profile without a hostname")
	}
	if err := s.Put(context.Background(), nil); err == nil {
		t.Fatal("Put accepted a nil profile")
	}
}

func TestEncodeDecodeRules(t *testing.T) {
	profile := sampleProfile("shop.example.com")

	raw, err := encodeRules(profile)
	if err != nil {
		t.Fatalf("encodeRules failed: %v", err)
	}
	decoded, err := decodeRules("shop.example.com", raw, profile.UpdatedAt)
	if err != nil {
		t.Fatalf("decodeRules failed: %v", err)
	}
	if len(decoded.Rules) != len(profile.Rules) {
		t.Errorf("decoded %d field rules, want %d", len(decoded.Rules), len(profile.Rules))
	}
	rules := decoded.Rules[types.FieldPrice]
	if len(rules) != 2 || rules[1].Attribute != "content" {
		t.Errorf("price rules round-trip mismatch: %+v", rules)
	}
}

func TestDecodeRulesEmpty(t *testing.T) {
	decoded, err := decodeRules("shop.example.com", "", time.Time{})
	if err != nil {
		t.Fatalf("decodeRules failed on empty payload: %v", err)
	}
	if !decoded.IsEmpty() {
		t.Error("empty payload should decode to an empty profile")
	}
}

func TestNewFactorySelection(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatalf("New with empty backend failed: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("empty backend gave %T, want *MemoryStore", s)
	}

	if _, err := New(Config{Backend: "etcd"}); err == nil {
		t.Error("unknown backend accepted")
	}
}
