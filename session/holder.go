// Package session holds the logged-in demo user and notifies identity changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"goflare.io/storefront/catalog"
	"goflare.io/storefront/models"
)

const (
	DemoUsername = "test"
	DemoPassword = "password"

	demoUserCount = 9
)

var (
	ErrInvalidCredentials = errors.New("session: invalid username or password")
	ErrNotLoggedIn        = errors.New("session: not logged in")
	ErrIdentityMismatch   = errors.New("session: user id cannot change")
)

// Listener receives the new identity; "" means logged out.
type Listener func(userID string)

// State is the persisted form of a session.
type State struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type Option func(*Holder)

// WithPicker replaces the random demo user pick; pick(n) must return [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(h *Holder) { h.pick = pick }
}

type Holder struct {
	catalog catalog.Repository
	secret  []byte
	pick    func(n int) int
	logger  *zap.Logger

	// notifyMu orders state changes and their notifications together
	notifyMu  sync.Mutex
	mu        sync.RWMutex
	token     string
	user      *models.User
	listeners []Listener
}

func NewHolder(catalog catalog.Repository, secret []byte, logger *zap.Logger, opts ...Option) *Holder {
	h := &Holder{
		catalog: catalog,
		secret:  secret,
		pick:    rand.IntN,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers fn for every later identity change.
func (h *Holder) Subscribe(fn Listener) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// Login accepts only the demo credentials, then signs in as a random demo user
// fetched from the catalog.
func (h *Holder) Login(ctx context.Context, username, password string) (*models.User, error) {
	if username != DemoUsername || password != DemoPassword {
		return nil, ErrInvalidCredentials
	}

	token, err := issueToken(h.secret, strconv.Itoa(h.pick(demoUserCount)+1))
	if err != nil {
		return nil, err
	}
	userID, err := parseToken(h.secret, token)
	if err != nil {
		return nil, err
	}

	user, err := h.catalog.GetUser(ctx, userID)
	if err != nil {
		h.logger.Error("Error fetching user data", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("fetch user %s: %w", userID, err)
	}
	if user.ID == "" {
		user.ID = models.FlexibleID(userID)
	}

	h.set(token, user)
	h.logger.Info("Logged in", zap.String("user_id", user.ID.String()))
	return cloneUser(user), nil
}

func (h *Holder) Logout() {
	h.set("", nil)
}

// Restore reinstates a persisted session. The token must still verify.
func (h *Holder) Restore(state *State) error {
	if state == nil || state.User == nil || state.Token == "" {
		return ErrNotLoggedIn
	}
	userID, err := parseToken(h.secret, state.Token)
	if err != nil {
		return err
	}
	if userID != state.User.ID.String() {
		return ErrIdentityMismatch
	}
	h.set(state.Token, cloneUser(state.User))
	return nil
}

func (h *Holder) Snapshot() *State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.user == nil {
		return nil
	}
	return &State{Token: h.token, User: cloneUser(h.user)}
}

// UpdateUser replaces the profile of the logged-in user.
func (h *Holder) UpdateUser(user models.User) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.user == nil {
		return ErrNotLoggedIn
	}
	if user.ID != h.user.ID {
		return ErrIdentityMismatch
	}
	h.user = cloneUser(&user)
	return nil
}

// Edit applies edit to the current profile and stores the result.
func (h *Holder) Edit(edit models.UserEdit) (*models.User, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.user == nil {
		return nil, ErrNotLoggedIn
	}
	updated, err := h.user.ApplyEdit(edit)
	if err != nil {
		return nil, err
	}
	h.user = &updated
	return cloneUser(h.user), nil
}

func (h *Holder) Identity() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.user == nil {
		return ""
	}
	return h.user.ID.String()
}

func (h *Holder) User() (*models.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.user == nil {
		return nil, false
	}
	return cloneUser(h.user), true
}

func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *Holder) IsLogged() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user != nil
}

func (h *Holder) set(token string, user *models.User) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	before := ""
	if h.user != nil {
		before = h.user.ID.String()
	}
	h.token = token
	h.user = user
	after := ""
	if user != nil {
		after = user.ID.String()
	}
	listeners := append([]Listener(nil), h.listeners...)
	h.mu.Unlock()

	if before == after {
		return
	}
	for _, fn := range listeners {
		fn(after)
	}
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Address != nil {
		addr := *u.Address
		if u.Address.Geolocation != nil {
			geo := *u.Address.Geolocation
			addr.Geolocation = &geo
		}
		out.Address = &addr
	}
	return &out
}
