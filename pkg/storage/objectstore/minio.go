package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioOpener struct {
	cfg      Config
	endpoint string
	secure   bool
}

func newMinioOpener(cfg Config) (Opener, error) {
	endpoint, secure, err := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	return &minioOpener{cfg: cfg, endpoint: endpoint, secure: secure}, nil
}

// splitEndpoint accepts either host:port or a URL and returns the host:port
// form minio-go expects.
func splitEndpoint(raw string, useSSL bool) (string, bool, error) {
	if raw == "" {
		return "", false, errors.New("object store endpoint is required")
	}
	if !strings.Contains(raw, "://") {
		return raw, useSSL, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", raw)
	}
	return u.Host, u.Scheme == "https", nil
}

// Open builds a client whose requests are signed with the configured keys and
// the caller's token as the session token.
func (o *minioOpener) Open(_ context.Context, creds Credentials) (Client, error) {
	cl, err := minio.New(o.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.cfg.AccessKey, o.cfg.SecretKey, creds.AccessToken),
		Secure: o.secure,
		Region: o.cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &minioClient{client: cl}, nil
}

type minioClient struct {
	client *minio.Client
}

func (m *minioClient) Fetch(ctx context.Context, bucket, key, localPath string) (int64, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}

	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	if err := writeFile(localPath, obj); err != nil {
		return 0, fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	return info.Size, nil
}

func (m *minioClient) Put(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	}
	_, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	return err
}

func (m *minioClient) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, err
}

func (m *minioClient) Close() error {
	return nil
}

func writeFile(localPath string, r io.Reader) error {
	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
