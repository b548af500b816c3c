package cart

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"goflare.io/storefront/models"
	"goflare.io/storefront/store"
)

func TestKey(t *testing.T) {
	if got := Key("42"); got != "cartItems_42" {
		t.Errorf("Expected cartItems_42, got %s", got)
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), zaptest.NewLogger(t))

	cart, err := repo.Load(ctx, "1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cart == nil || len(cart) != 0 {
		t.Fatalf("Expected empty non-nil cart, got %#v", cart)
	}

	want := models.Cart{item("1", 1.5, 2), item("2", 3, 1)}
	if err = repo.Save(ctx, "1", want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.Load(ctx, "1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertCart(t, got, want...)

	other, err := repo.Load(ctx, "2")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertCart(t, other)
}

func TestRepositoryLoad(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    models.Cart
		wantErr error
	}{
		{name: "null", raw: "null", want: models.Cart{}},
		{name: "empty array", raw: "[]", want: models.Cart{}},
		{name: "malformed", raw: `{"id":`, wantErr: ErrMalformedCart},
		{name: "object", raw: `{"id":"1"}`, wantErr: ErrMalformedCart},
		{
			name: "drops invalid lines",
			raw:  `[{"id":"","quantity":1},{"id":"1","price":2,"quantity":0},{"id":"2","price":3,"quantity":1}]`,
			want: models.Cart{{ID: "2", Price: 3, Quantity: 1}},
		},
		{
			name: "merges duplicates",
			raw:  `[{"id":"1","name":"A","price":2,"quantity":1},{"id":"1","name":"B","price":9,"quantity":2}]`,
			want: models.Cart{{ID: "1", Name: "A", Price: 2, Quantity: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := store.NewMemory()
			if err := kv.Set(ctx, Key("1"), tt.raw); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			repo := NewRepository(kv, zaptest.NewLogger(t, zaptest.Level(zap.ErrorLevel)))

			got, err := repo.Load(ctx, "1")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			assertCart(t, got, tt.want...)
		})
	}
}

func TestRepositorySaveNilCart(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	repo := NewRepository(kv, zaptest.NewLogger(t))

	if err := repo.Save(ctx, "1", nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	raw, found, err := kv.Get(ctx, Key("1"))
	if err != nil || !found {
		t.Fatalf("Expected stored cart, found=%v err=%v", found, err)
	}
	if raw != "[]" {
		t.Errorf("Expected [], got %s", raw)
	}
}

func TestRepositoryStoreErrors(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	_ = kv.Close()
	repo := NewRepository(kv, zaptest.NewLogger(t, zaptest.Level(zap.FatalLevel)))

	if _, err := repo.Load(ctx, "1"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Expected ErrClosed from Load, got %v", err)
	}
	if err := repo.Save(ctx, "1", models.Cart{}); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Expected ErrClosed from Save, got %v", err)
	}
}
