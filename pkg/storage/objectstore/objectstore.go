package objectstore

import (
	"context"
	"fmt"
)

// Config contains the information required to talk to an object store.
type Config struct {
	Provider        string
	Endpoint        string
	Region          string
	AccessKey       string
	SecretKey       string
	UseSSL          bool
	CredentialsFile string
}

// Credentials scopes a client to one caller-supplied bearer token. An empty
// token falls back to the store's configured identity.
type Credentials struct {
	AccessToken string
}

// Client represents the capabilities the annotation pipeline expects.
type Client interface {
	// Fetch downloads bucket/key into localPath and returns the object size
	// the store reported before the download started.
	Fetch(ctx context.Context, bucket, key, localPath string) (int64, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Close() error
}

// Opener builds clients bound to per-invocation credentials.
type Opener interface {
	Open(ctx context.Context, creds Credentials) (Client, error)
}

// New creates an object store opener based on the given configuration.
func New(cfg Config) (Opener, error) {
	switch cfg.Provider {
	case "minio", "s3":
		return newMinioOpener(cfg)
	case "gcs":
		return &gcsOpener{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unsupported object store provider: %s", cfg.Provider)
	}
}
