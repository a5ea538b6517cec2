package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/skillbridge/apiserver/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultPingTimeout     = 5 * time.Second
	defaultConnectTimeout  = 10 * time.Second
	defaultMaxConnIdleTime = 2 * time.Minute
	defaultMinPoolSize     = 5
	defaultMaxPoolSize     = 25
)

// Open connects to MongoDB and returns the client together with the
// configured database handle. Callers own the client and must disconnect it.
func Open(ctx context.Context, cfg config.Config) (*mongo.Client, *mongo.Database, error) {
	if strings.TrimSpace(cfg.Database.URI) == "" {
		return nil, nil, errors.New("mongo uri is required")
	}
	if strings.TrimSpace(cfg.Database.Name) == "" {
		return nil, nil, errors.New("mongo database name is required")
	}

	connectTimeout := cfg.Database.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.Database.URI).
		SetConnectTimeout(connectTimeout).
		SetMaxConnIdleTime(defaultMaxConnIdleTime).
		SetMinPoolSize(defaultMinPoolSize).
		SetMaxPoolSize(defaultMaxPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	if err := Ping(ctx, client); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	return client, client.Database(cfg.Database.Name), nil
}

// Ping checks that the primary is reachable within a short timeout.
func Ping(ctx context.Context, client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	return client.Ping(ctx, readpref.Primary())
}

// MigrationURL returns the golang-migrate connection URL for the
// configured database.
func MigrationURL(cfg config.Config) (string, error) {
	uri := strings.TrimSpace(cfg.Database.URI)
	if uri == "" {
		return "", errors.New("mongo uri is required")
	}

	query := ""
	if idx := strings.Index(uri, "?"); idx >= 0 {
		uri, query = uri[:idx], uri[idx:]
	}

	scheme := ""
	if idx := strings.Index(uri, "://"); idx >= 0 {
		scheme, uri = uri[:idx+3], uri[idx+3:]
	}
	// drop any database path already present in the uri
	if idx := strings.Index(uri, "/"); idx >= 0 {
		uri = uri[:idx]
	}

	return scheme + uri + "/" + cfg.Database.Name + query, nil
}
