package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"backend/metrics"
	"backend/util/goroutine"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnState is the state of the database connection.
type ConnState int32

const (
	// StateIdle means no connection attempt has been made yet.
	StateIdle ConnState = iota
	// StateConnecting means the single connection attempt is in flight.
	StateConnecting
	// StateConnected means the attempt succeeded.
	StateConnected
	// StateFailed means the attempt failed. There is no retry.
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Client is the part of *mongo.Client the connector relies on.
type Client interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
}

// DialFunc opens and verifies a connection to the database at uri.
type DialFunc func(ctx context.Context, uri string, timeout time.Duration) (Client, error)

// DialMongo connects to MongoDB and pings the primary. The whole attempt,
// including server selection, is bounded by timeout.
func DialMongo(ctx context.Context, uri string, timeout time.Duration) (Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, nil
}

// Connector holds the process-wide database handle and its connection
// state. It makes at most one connection attempt, in the background, and
// never blocks or fails its caller.
type Connector struct {
	uri     string
	timeout time.Duration
	dial    DialFunc
	logger  *zap.SugaredLogger

	once sync.Once
	done chan struct{}

	mu     sync.RWMutex
	state  ConnState
	client Client
	err    error
}

// NewConnector creates an idle connector for uri.
func NewConnector(uri string, timeout time.Duration, logger *zap.SugaredLogger) *Connector {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	metrics.SetDBState(StateIdle.String())
	return &Connector{
		uri:     uri,
		timeout: timeout,
		dial:    DialMongo,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// SetDialer replaces the dial function. It has no effect once ConnectAsync
// has been called.
func (c *Connector) SetDialer(dial DialFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		c.dial = dial
	}
}

// ConnectAsync starts the connection attempt and returns immediately.
// Success and failure are only logged; later calls do nothing.
func (c *Connector) ConnectAsync(ctx context.Context) {
	c.once.Do(func() {
		c.mu.Lock()
		dial := c.dial
		c.setStateLocked(StateConnecting)
		c.mu.Unlock()

		goroutine.Go("mongodb-connect", c.logger, func() {
			defer close(c.done)
			c.connect(ctx, dial)
		})
	})
}

func (c *Connector) connect(ctx context.Context, dial DialFunc) {
	// A panicking dialer must still leave a terminal state behind.
	var client Client
	err := fmt.Errorf("MongoDB dialer did not return")
	defer func() {
		c.finish(client, err)
	}()

	client, err = dial(ctx, c.uri, c.timeout)
}

func (c *Connector) finish(client Client, err error) {
	c.mu.Lock()
	if err != nil {
		c.err = err
		c.setStateLocked(StateFailed)
	} else {
		c.client = client
		c.setStateLocked(StateConnected)
	}
	c.mu.Unlock()

	if err != nil {
		metrics.DBConnectAttempts.WithLabelValues("failure").Inc()
		c.logger.Errorw("MongoDB connection error",
			"error", err,
			"uri", RedactURI(c.uri),
			"hint", ClassifyConnectionError(err, c.uri))
		return
	}

	metrics.DBConnectAttempts.WithLabelValues("success").Inc()
	c.logger.Infow("MongoDB connected", "uri", RedactURI(c.uri))
}

func (c *Connector) setStateLocked(s ConnState) {
	c.state = s
	metrics.SetDBState(s.String())
}

// State returns the current connection state.
func (c *Connector) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Err returns the connection error once the attempt has failed.
func (c *Connector) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Client returns the connected client, or ErrNotConnected while the
// connection is idle, pending or failed.
func (c *Connector) Client() (Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateConnected || c.client == nil {
		return nil, fmt.Errorf("%w (state %s)", ErrNotConnected, c.state)
	}
	return c.client, nil
}

// Done is closed when the connection attempt has finished, whatever its
// outcome. It never closes if ConnectAsync was not called.
func (c *Connector) Done() <-chan struct{} {
	return c.done
}

// HealthCheck pings the database through the connected client.
func (c *Connector) HealthCheck(ctx context.Context) error {
	client, err := c.Client()
	if err != nil {
		return err
	}
	return client.Ping(ctx, readpref.Primary())
}

// Close waits for a pending attempt to finish, bounded by ctx, and
// disconnects the client if one was established.
func (c *Connector) Close(ctx context.Context) error {
	if c.State() == StateConnecting {
		select {
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
