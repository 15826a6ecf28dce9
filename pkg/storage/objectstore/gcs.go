package objectstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

type gcsOpener struct {
	cfg Config
}

// Open builds a GCS client. A bearer token takes precedence over the
// configured credentials file; with neither, application default
// credentials apply.
func (o *gcsOpener) Open(ctx context.Context, creds Credentials) (Client, error) {
	var opts []option.ClientOption
	switch {
	case creds.AccessToken != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken, TokenType: "Bearer"})
		opts = append(opts, option.WithTokenSource(ts))
	case o.cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(o.cfg.CredentialsFile))
	}
	if o.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(o.cfg.Endpoint))
	}

	cl, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	return &gcsClient{client: cl}, nil
}

type gcsClient struct {
	client *storage.Client
}

func (g *gcsClient) Fetch(ctx context.Context, bucket, key, localPath string) (int64, error) {
	obj := g.client.Bucket(bucket).Object(key)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return 0, fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}

	// Stored bytes, without decompressive transcoding, so the length is
	// comparable with attrs.Size.
	r, err := obj.ReadCompressed(true).NewReader(ctx)
	if err != nil {
		return 0, fmt.Errorf("open %s/%s: %w", bucket, key, err)
	}
	defer r.Close()

	if err := writeFile(localPath, r); err != nil {
		return 0, fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	return attrs.Size, nil
}

func (g *gcsClient) Put(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error {
	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (g *gcsClient) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := g.client.Bucket(bucket).Object(key).Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrObjectNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (g *gcsClient) Close() error {
	return g.client.Close()
}
