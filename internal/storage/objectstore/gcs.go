package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ali_portfolio/internal/storage"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	PublicBaseURL   string
	PresignTTL      time.Duration
}

// GCSStore хранит объекты в Google Cloud Storage (бакет Firebase Storage)
type GCSStore struct {
	client        *gcs.Client
	bucket        *gcs.BucketHandle
	publicBaseURL string
	presignTTL    time.Duration
}

func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	const op = "objectstore.NewGCSStore"

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &GCSStore{
		client:        client,
		bucket:        client.Bucket(cfg.Bucket),
		publicBaseURL: cfg.PublicBaseURL,
		presignTTL:    ttl,
	}, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}

	w := s.bucket.Object(cleaned).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload object: %w", err)
	}

	return w.Close()
}

func (s *GCSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return nil, err
	}

	rc, err := s.bucket.Object(cleaned).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, err
	}

	return rc, nil
}

func (s *GCSStore) Stat(ctx context.Context, key string) (Object, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return Object{}, err
	}

	attrs, err := s.bucket.Object(cleaned).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return Object{}, storage.ErrObjectNotFound
		}
		return Object{}, err
	}

	return gcsObject(attrs), nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}

	err = s.bucket.Object(cleaned).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) (Listing, error) {
	var l Listing

	it := s.bucket.Objects(ctx, &gcs.Query{
		Prefix:    dirPrefix(prefix),
		Delimiter: "/",
	})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return Listing{}, err
		}
		if attrs.Prefix != "" {
			l.Prefixes = append(l.Prefixes, strings.TrimSuffix(attrs.Prefix, "/"))
			continue
		}
		l.Objects = append(l.Objects, gcsObject(attrs))
	}
	sortListing(&l)

	return l, nil
}

func (s *GCSStore) URL(_ context.Context, key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if s.publicBaseURL != "" {
		return publicURL(s.publicBaseURL, cleaned), nil
	}

	return s.bucket.SignedURL(cleaned, &gcs.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(s.presignTTL),
		Scheme:  gcs.SigningSchemeV4,
	})
}

func (s *GCSStore) Ping(ctx context.Context) error {
	_, err := s.bucket.Attrs(ctx)
	return err
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func gcsObject(attrs *gcs.ObjectAttrs) Object {
	return Object{
		Key:         attrs.Name,
		Name:        Base(attrs.Name),
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		UpdatedAt:   attrs.Updated,
	}
}
