// Package mongodb opens and closes connections to the document store.
//
// In the default mode every Acquire dials a fresh client that the caller must
// hand back through Release. In pooled mode one client is shared and Release
// is a no-op; callers use the same Acquire/Release pair either way.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/MikeMC777/productos-api/internal/config"
)

var ErrConnect = errors.New("mongodb: connection failed")

type Manager struct {
	uri     string
	timeout time.Duration
	pooled  bool

	mu     sync.Mutex
	shared *mongo.Client
}

func NewManager(cfg config.MongoConfig) (*Manager, error) {
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return nil, fmt.Errorf("mongodb: unsupported uri scheme in %q", cfg.URI)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{uri: cfg.URI, timeout: timeout, pooled: cfg.Pooled}, nil
}

func (m *Manager) Pooled() bool { return m.pooled }

// Acquire returns a live client. Errors wrap ErrConnect.
func (m *Manager) Acquire(ctx context.Context) (*mongo.Client, error) {
	if !m.pooled {
		return m.dial(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shared != nil {
		return m.shared, nil
	}
	c, err := m.dial(ctx)
	if err != nil {
		return nil, err
	}
	m.shared = c
	return c, nil
}

// Release closes a client obtained from Acquire. Shared clients stay open.
func (m *Manager) Release(ctx context.Context, c *mongo.Client) error {
	if c == nil || m.pooled {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()
	return c.Disconnect(ctx)
}

// Ping acquires, pings the primary and releases.
func (m *Manager) Ping(ctx context.Context) (err error) {
	c, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := m.Release(ctx, c); err == nil && rerr != nil {
			err = rerr
		}
	}()

	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := c.Ping(pctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return nil
}

// Close disconnects the shared client, if any.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shared == nil {
		return nil
	}
	err := m.shared.Disconnect(ctx)
	m.shared = nil
	return err
}

// Collection returns a handle to db.coll on c.
func Collection(c *mongo.Client, db, coll string) *mongo.Collection {
	return c.Database(db).Collection(coll)
}

func (m *Manager) dial(ctx context.Context) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(m.uri).
		SetConnectTimeout(m.timeout).
		SetServerSelectionTimeout(m.timeout).
		// nested documents decode as maps so they render as JSON objects
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	// mongo.Connect does not dial; the ping surfaces an unreachable server here
	// instead of on the first query.
	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		_ = c.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return c, nil
}
