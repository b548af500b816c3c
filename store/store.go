// Package store 提供字串鍵值的持久化儲存
package store

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("store: closed")

// Store is an asynchronous string-keyed, string-valued key-value store.
// Get and Set may fail independently; there is no transaction across calls.
type Store interface {
	// Get returns the value for key. found is false when nothing is stored.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}
