// Package content stores story bodies as opaque named blobs.
//
// A Store wraps a Backend (local directory or S3 bucket) and applies the
// read policy the rest of the system relies on: reads never fail, they
// degrade to an empty body.
package content

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned by a Backend when the blob does not exist.
	ErrNotFound = errors.New("blob not found")

	// ErrWrite wraps every failure to persist a blob.
	ErrWrite = errors.New("blob write failed")

	// ErrInvalidName is returned for names that are empty or could escape
	// the backend's namespace.
	ErrInvalidName = errors.New("invalid blob name")
)

// Backend is the raw blob storage used by Store.
type Backend interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Open builds a Backend from a storage URL:
//
//	file:///var/lib/stories/content  (or a bare path)
//	s3://bucket?region=eu-west-1&endpoint=http://minio:9000&path_style=true&prefix=content/
//
// S3 credentials come from the default AWS chain unless access_key and
// secret_key are given as query parameters.
func Open(ctx context.Context, storageURL string) (Backend, error) {
	switch {
	case storageURL == "":
		return nil, errors.New("storage url is required")
	case strings.HasPrefix(storageURL, "file://"):
		return NewFS(strings.TrimPrefix(storageURL, "file://"))
	case strings.HasPrefix(storageURL, "s3://"):
		cfg, err := parseS3URL(storageURL)
		if err != nil {
			return nil, err
		}
		return NewS3(ctx, cfg)
	case strings.Contains(storageURL, "://"):
		return nil, fmt.Errorf("unsupported storage url %q (use file:// or s3://)", storageURL)
	default:
		return NewFS(storageURL)
	}
}

func parseS3URL(raw string) (S3Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return S3Config{}, fmt.Errorf("parse storage url: %w", err)
	}
	q := u.Query()
	cfg := S3Config{
		Bucket:          u.Host,
		Region:          q.Get("region"),
		Endpoint:        q.Get("endpoint"),
		Prefix:          q.Get("prefix"),
		AccessKeyID:     q.Get("access_key"),
		SecretAccessKey: q.Get("secret_key"),
	}
	if v := q.Get("path_style"); v != "" {
		cfg.UsePathStyle, err = strconv.ParseBool(v)
		if err != nil {
			return S3Config{}, fmt.Errorf("parse path_style: %w", err)
		}
	}
	if cfg.Bucket == "" {
		return S3Config{}, errors.New("bucket name is required")
	}
	return cfg, nil
}

// ValidName reports whether name is a single path element, safe to use as a
// blob or page file name. Empty names and names with separators or ".." are
// rejected.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}
