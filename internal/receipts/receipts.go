// Package receipts uploads payment receipts to Cloud Storage and returns a
// link for the RECEIPT LINK column.
package receipts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// MaxSize is the largest receipt accepted.
const MaxSize = 5 << 20

var (
	ErrTooLarge        = errors.New("receipt must be 5 MiB or smaller")
	ErrUnsupportedType = errors.New("receipt must be an image or a PDF")
)

var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
	"application/pdf": true,
}

// File is an uploaded receipt.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Validate checks size and content type.
func (f File) Validate() error {
	if f.Size > MaxSize {
		return ErrTooLarge
	}
	ct, _, _ := strings.Cut(f.ContentType, ";")
	if !allowedTypes[strings.ToLower(strings.TrimSpace(ct))] {
		return ErrUnsupportedType
	}
	return nil
}

// Uploader stores a receipt and returns its public link.
type Uploader interface {
	Upload(ctx context.Context, owner string, f File) (string, error)
}

// GCSUploader writes receipts to a Cloud Storage bucket.
type GCSUploader struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewGCSUploader creates a client for bucket. opts carry credentials; with
// none, Application Default Credentials are used.
func NewGCSUploader(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSUploader, error) {
	if bucket == "" {
		return nil, errors.New("receipt bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSUploader{client: client, bucket: bucket, now: time.Now}, nil
}

// Upload validates f and writes it under receipts/<yyyy>/<mm>/.
func (u *GCSUploader) Upload(ctx context.Context, owner string, f File) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}

	name := ObjectName(u.now(), uuid.NewString(), f.Name)
	w := u.client.Bucket(u.bucket).Object(name).NewWriter(ctx)
	w.ContentType = f.ContentType
	w.Metadata = map[string]string{"owner": owner}

	if _, err := io.Copy(w, io.LimitReader(f.Body, MaxSize+1)); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write receipt: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize receipt: %w", err)
	}

	link := PublicURL(u.bucket, name)
	slog.Info("Receipt uploaded", "owner", owner, "object", name, "size", f.Size)
	return link, nil
}

// Close releases the storage client.
func (u *GCSUploader) Close() error {
	return u.client.Close()
}

// ObjectName builds receipts/<yyyy>/<mm>/<id>-<clean filename>.
func ObjectName(now time.Time, id, filename string) string {
	base := sanitize(path.Base(strings.ReplaceAll(filename, `\`, "/")))
	if base == "" || base == "." || base == "/" {
		base = "receipt"
	}
	return fmt.Sprintf("receipts/%04d/%02d/%s-%s", now.Year(), int(now.Month()), id, base)
}

// PublicURL is the storage.googleapis.com link for an object.
func PublicURL(bucket, object string) string {
	return "https://storage.googleapis.com/" + bucket + "/" + object
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
