package objectstore

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"ali_portfolio/internal/storage"

	"github.com/gabriel-vasile/mimetype"
)

// Object описывает один blob
type Object struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Listing is a single-level listing: objects directly under the prefix and
// the child prefixes (without trailing slash), both in lexical order.
type Listing struct {
	Objects  []Object
	Prefixes []string
}

// Store is the object store client used by every workflow. Keys are
// slash separated paths; folders exist only while they contain objects.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (Object, error)
	// Delete is idempotent: a missing key is not an error.
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) (Listing, error)
	URL(ctx context.Context, key string) (string, error)
	Ping(ctx context.Context) error
}

// CleanKey normalises a key and rejects anything that escapes the root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", storage.ErrInvalidKey
	}

	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", storage.ErrInvalidKey
		}
	}

	cleaned := path.Clean("/" + key)
	if cleaned == "/" {
		return "", storage.ErrInvalidKey
	}

	return strings.TrimPrefix(cleaned, "/"), nil
}

func Base(key string) string {
	return path.Base(key)
}

func Join(elem ...string) string {
	return path.Join(elem...)
}

// HasExt reports whether the key ends with one of exts (case-insensitive, without dot).
func HasExt(key string, exts ...string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// DetectContentType sniffs the stream head and returns a reader that still
// yields the full content.
func DetectContentType(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	head = head[:n]

	mt := mimetype.Detect(head)

	return mt.String(), io.MultiReader(bytes.NewReader(head), r), nil
}

func sortListing(l *Listing) {
	sort.Slice(l.Objects, func(i, j int) bool { return l.Objects[i].Key < l.Objects[j].Key })
	sort.Strings(l.Prefixes)
}

func dirPrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + escapeKey(key)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
