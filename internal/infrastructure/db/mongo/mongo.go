package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Handle is a live connection: the client and the selected database.
type Handle struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Dialer returns a DialFunc that connects to MongoDB, verifies connectivity
// with a ping, and selects cfg.Database. A default timeout bounds each dial
// when none is provided.
func Dialer(cfg Config) DialFunc {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return func(ctx context.Context) (*Handle, error) {
		connectCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}

		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("mongo ping: %w", err)
		}

		return &Handle{Client: client, DB: client.Database(cfg.Database)}, nil
	}
}

// disconnect releases h. Handles without a client (tests) are ignored.
func disconnect(ctx context.Context, h *Handle) error {
	if h == nil || h.Client == nil {
		return nil
	}
	return h.Client.Disconnect(ctx)
}
