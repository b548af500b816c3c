// Package catalog is a read-only client for the public catalog REST API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"goflare.io/storefront/models"
)

const (
	DefaultBaseURL = "https://fakestoreapi.com"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

var ErrCircuitOpen = errors.New("catalog: circuit open")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: %s %s: HTTP error! status: %d", e.Method, e.Path, e.StatusCode)
}

func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

var _ Repository = (*Client)(nil)

type Repository interface {
	ListProducts(ctx context.Context) ([]*models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListProductsByCategory(ctx context.Context, category string) ([]*models.Product, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		// a 404 is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || IsNotFound(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return c
}

func (c *Client) ListProducts(ctx context.Context) ([]*models.Product, error) {
	var products []*models.Product
	if err := c.get(ctx, "/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product *models.Product
	if err := c.get(ctx, "/products/"+url.PathEscape(id), &product); err != nil {
		return nil, err
	}
	// the public API answers an unknown id with 200 and an empty body
	if product == nil {
		return nil, &StatusError{Method: http.MethodGet, Path: "/products/" + id, StatusCode: http.StatusNotFound}
	}
	return product, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.get(ctx, "/products/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) ListProductsByCategory(ctx context.Context, category string) ([]*models.Product, error) {
	var products []*models.Product
	if err := c.get(ctx, "/products/category/"+url.PathEscape(category), &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	if err := c.get(ctx, "/users/"+url.PathEscape(id), &user); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &StatusError{Method: http.MethodGet, Path: "/users/" + id, StatusCode: http.StatusNotFound}
	}
	return user, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, path, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Error("Catalog unavailable", zap.String("path", path), zap.Error(err))
		return errors.Wrapf(ErrCircuitOpen, "GET %s", path)
	}
	return err
}

func (c *Client) do(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrapf(err, "build request for %s", path)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Catalog request failed", zap.String("path", path), zap.Error(err))
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		c.logger.Warn("Catalog returned error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &StatusError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err = json.Unmarshal(body, out); err != nil {
		c.logger.Error("Failed to decode catalog response", zap.String("path", path), zap.Error(err))
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}
