package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"goflare.io/storefront/cart"
	"goflare.io/storefront/catalog"
	"goflare.io/storefront/models"
	"goflare.io/storefront/models/enum"
	"goflare.io/storefront/session"
	"goflare.io/storefront/store"
)

var catalogRoutes = map[string]string{
	"/products":                      `[{"id":1,"title":"Backpack","price":109.95,"image":"https://img/1"},{"id":2,"title":"Shirt","price":22.3,"image":"https://img/2"}]`,
	"/products/1":                    `{"id":1,"title":"Backpack","price":109.95,"image":"https://img/1","category":"men's clothing"}`,
	"/products/2":                    `{"id":2,"title":"Shirt","price":22.3,"image":"https://img/2"}`,
	"/products/categories":           `["electronics","jewelery"]`,
	"/products/category/electronics": `[{"id":9,"title":"Drive","price":64}]`,
	"/users/1":                       `{"id":1,"username":"johnd","email":"john@gmail.com","name":{"firstname":"john","lastname":"doe"},"address":{"city":"kilcoole","street":"new road","number":7682,"zipcode":"12926-3874"}}`,
}

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := catalogRoutes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, kv store.Store, catalogURL string) *service {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	svc := NewService(Config{
		Catalog:        catalog.NewClient(catalogURL, logger),
		Store:          kv,
		TokenSecret:    []byte("test-secret"),
		Workers:        1,
		SessionOptions: []session.Option{session.WithPicker(func(int) int { return 0 })},
	}, logger)
	return svc.(*service)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func closeService(t *testing.T, s *service) {
	t.Helper()
	if err := s.Close(testContext(t)); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestCatalogBrowsing(t *testing.T) {
	srv := newCatalogServer(t)
	s := newTestService(t, store.NewMemory(), srv.URL)
	defer closeService(t, s)
	ctx := testContext(t)

	products, err := s.ListProducts(ctx)
	if err != nil || len(products) != 2 {
		t.Fatalf("Expected 2 products, got %d (%v)", len(products), err)
	}

	categories, err := s.ListCategories(ctx)
	if err != nil || len(categories) != 3 || categories[0].ID != models.CategoryAll {
		t.Fatalf("Unexpected categories: %v (%v)", categories, err)
	}

	products, err = s.ListCategoryProducts(ctx, "electronics")
	if err != nil || len(products) != 1 {
		t.Fatalf("Expected 1 electronics product, got %d (%v)", len(products), err)
	}

	if _, err = s.GetProduct(ctx, "77"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestLoginAndCartFlow(t *testing.T) {
	srv := newCatalogServer(t)
	kv := store.NewMemory()
	s := newTestService(t, kv, srv.URL)
	ctx := testContext(t)

	if _, err := s.Login(ctx, "test", "nope"); !errors.Is(err, session.ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials, got %v", err)
	}
	user, err := s.Login(ctx, session.DemoUsername, session.DemoPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != "1" {
		t.Fatalf("Expected user 1, got %s", user.ID)
	}

	if _, err = s.AddToCart(ctx, "1", 2); err != nil {
		t.Fatalf("AddToCart failed: %v", err)
	}
	if _, err = s.AddToCart(ctx, "2", 1); err != nil {
		t.Fatalf("AddToCart failed: %v", err)
	}
	if _, err = s.AddToCart(ctx, "77", 1); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
	if _, err = s.AddToCart(ctx, "1", 0); err == nil {
		t.Error("Expected error for zero quantity")
	}
	s.IncreaseCartItem("2")
	s.DecreaseCartItem("1")

	summary, err := s.CartSummary(ctx)
	if err != nil {
		t.Fatalf("CartSummary failed: %v", err)
	}
	if summary.Lines != 2 || summary.Units != 3 {
		t.Errorf("Expected 2 lines and 3 units, got %+v", summary)
	}

	closeService(t, s)

	raw, found, err := kv.Get(ctx, cart.Key("1"))
	if err != nil || !found {
		t.Fatalf("Expected stored cart, found=%v err=%v", found, err)
	}
	var stored models.Cart
	if err = json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("Stored cart is not valid JSON: %v", err)
	}
	if len(stored) != 2 || stored[0].ID != "1" || stored[0].Quantity != 1 || stored[1].Quantity != 2 {
		t.Errorf("Unexpected stored cart: %+v", stored)
	}
}

func TestSessionRestoredAcrossServices(t *testing.T) {
	srv := newCatalogServer(t)
	kv := store.NewMemory()
	ctx := testContext(t)

	first := newTestService(t, kv, srv.URL)
	if _, err := first.Login(ctx, session.DemoUsername, session.DemoPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	email := "jane@example.com"
	if _, err := first.EditProfile(ctx, models.UserEdit{Email: &email}); err != nil {
		t.Fatalf("EditProfile failed: %v", err)
	}
	if _, err := first.AddToCart(ctx, "2", 3); err != nil {
		t.Fatalf("AddToCart failed: %v", err)
	}
	closeService(t, first)

	second := newTestService(t, kv, srv.URL)
	defer closeService(t, second)
	if err := second.RestoreSession(ctx); err != nil {
		t.Fatalf("RestoreSession failed: %v", err)
	}

	user, ok := second.CurrentUser()
	if !ok {
		t.Fatal("Expected restored session")
	}
	if user.Email != email {
		t.Errorf("Expected edited email to persist, got %s", user.Email)
	}
	items, err := second.CartItems(ctx)
	if err != nil {
		t.Fatalf("CartItems failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "2" || items[0].Quantity != 3 {
		t.Errorf("Unexpected restored cart: %+v", items)
	}

	if err = second.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, ok = second.CurrentUser(); ok {
		t.Error("Expected to be logged out")
	}
	if items, _ = second.CartItems(ctx); len(items) != 0 {
		t.Errorf("Expected empty cart after logout, got %+v", items)
	}
}

func TestRestoreSessionIgnoresGarbage(t *testing.T) {
	srv := newCatalogServer(t)
	kv := store.NewMemory()
	ctx := testContext(t)
	if err := kv.Set(ctx, sessionKey, `{"token":`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	s := newTestService(t, kv, srv.URL)
	defer closeService(t, s)

	if err := s.RestoreSession(ctx); err != nil {
		t.Fatalf("RestoreSession failed: %v", err)
	}
	if _, ok := s.CurrentUser(); ok {
		t.Error("Expected no session")
	}
}

func TestProcessEvent(t *testing.T) {
	srv := newCatalogServer(t)
	kv := store.NewMemory()
	s := newTestService(t, kv, srv.URL)
	defer closeService(t, s)
	ctx := testContext(t)

	if _, err := s.Login(ctx, session.DemoUsername, session.DemoPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := s.CartItems(ctx); err != nil {
		t.Fatalf("CartItems failed: %v", err)
	}

	// another device saved a cart for the same user
	if err := kv.Set(ctx, cart.Key("1"), `[{"id":"2","name":"Shirt","price":22.3,"quantity":4}]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	own, err := s.eventManager.NewEvent(enum.EventTypeCartUpdated, "1", nil)
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	if err = s.ProcessEvent(ctx, own); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	if items, _ := s.CartItems(ctx); len(items) != 0 {
		t.Fatalf("Own event must be ignored, got %+v", items)
	}

	remote := &models.Event{ID: "evt-1", Type: enum.EventTypeCartUpdated, Source: "other-device", UserID: "1"}
	if err = s.ProcessEvent(ctx, remote); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	items, err := s.CartItems(ctx)
	if err != nil {
		t.Fatalf("CartItems failed: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 4 {
		t.Fatalf("Expected reloaded cart, got %+v", items)
	}

	processed, err := s.event.Exists(ctx, "evt-1")
	if err != nil || !processed {
		t.Errorf("Expected event to be recorded, processed=%v err=%v", processed, err)
	}

	// a duplicate delivery is dropped before the handler runs
	s.IncreaseCartItem("2")
	if err = s.ProcessEvent(ctx, remote); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	if items, _ = s.CartItems(ctx); items[0].Quantity != 5 {
		t.Errorf("Expected local change to survive duplicate event, got %+v", items)
	}

	unknown := &models.Event{ID: "evt-2", Type: "order.created", Source: "other-device"}
	if err = s.ProcessEvent(ctx, unknown); err == nil {
		t.Error("Expected error for unknown event type")
	}
}

func TestProcessProfileUpdated(t *testing.T) {
	srv := newCatalogServer(t)
	s := newTestService(t, store.NewMemory(), srv.URL)
	defer closeService(t, s)
	ctx := testContext(t)

	if _, err := s.Login(ctx, session.DemoUsername, session.DemoPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	payload, _ := json.Marshal(models.User{ID: "1", Name: models.SplitName("Jane", "Doe"), Email: "jane@example.com"})
	event := &models.Event{ID: "evt-3", Type: enum.EventTypeProfileUpdated, Source: "other-device", UserID: "1", Payload: payload}
	if err := s.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}

	user, _ := s.CurrentUser()
	if user.Name.Display() != "Jane Doe" || user.Email != "jane@example.com" {
		t.Errorf("Expected remote profile, got %+v", user)
	}

	other := &models.Event{ID: "evt-4", Type: enum.EventTypeProfileUpdated, Source: "other-device", UserID: "2", Payload: payload}
	if err := s.ProcessEvent(ctx, other); err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
}

func TestWorkerPoolProcessesSubmittedEvents(t *testing.T) {
	rec := &recordingProcessor{seen: make(chan string, 3)}
	wp := NewWorkerPool(2, rec, zaptest.NewLogger(t))

	for _, id := range []string{"a", "b", "c"} {
		wp.Submit(context.Background(), &models.Event{ID: id})
	}
	wp.Shutdown()
	wp.Shutdown()

	if len(rec.seen) != 3 {
		t.Errorf("Expected 3 processed events, got %d", len(rec.seen))
	}
}

type recordingProcessor struct {
	seen chan string
}

func (r *recordingProcessor) ProcessEvent(ctx context.Context, event *models.Event) error {
	r.seen <- event.ID
	return nil
}

func TestWorkerPoolDropsEventsAfterShutdown(t *testing.T) {
	rec := &recordingProcessor{seen: make(chan string, 1)}
	wp := NewWorkerPool(1, rec, zaptest.NewLogger(t))
	wp.Shutdown()

	wp.Submit(context.Background(), &models.Event{ID: "late"})

	if len(rec.seen) != 0 {
		t.Errorf("Expected late event to be dropped, got %d processed", len(rec.seen))
	}
}

func TestIdentityStaysBoundAcrossOverlappingLogout(t *testing.T) {
	srv := newCatalogServer(t)
	kv := store.NewMemory()
	s := newTestService(t, kv, srv.URL)
	defer closeService(t, s)
	ctx := testContext(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s.session.Subscribe(func(userID string) {
		if userID == "1" {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := s.Login(ctx, session.DemoUsername, session.DemoPassword); err != nil {
			t.Errorf("Login failed: %v", err)
		}
	}()
	<-entered
	go func() {
		defer wg.Done()
		if err := s.Logout(ctx); err != nil {
			t.Errorf("Logout failed: %v", err)
		}
	}()
	close(release)
	wg.Wait()

	if got := s.cart.Identity(); got != s.session.Identity() {
		t.Fatalf("Cart identity %q differs from session identity %q", got, s.session.Identity())
	}

	s.AddItemToCart(models.CartItem{ID: "9", Name: "Drive", Price: 64, Quantity: 1})
	if err := s.cart.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if _, found, _ := kv.Get(ctx, cart.Key("1")); found {
		t.Error("Expected no cart saved for a logged-out user")
	}
}
