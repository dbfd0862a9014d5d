package gcs

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// Fetcher downloads gs://bucket/object locators from Google Cloud Storage
type Fetcher struct {
	client *storage.Client
}

// New creates a Cloud Storage fetcher. Credentials are resolved by the
// client options, falling back to application default credentials.
func New(ctx context.Context, opts ...option.ClientOption) (*Fetcher, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}
	return &Fetcher{client: client}, nil
}

// Close releases the underlying client
func (f *Fetcher) Close() error {
	return f.client.Close()
}

// ParseLocator splits gs://bucket/path/to/object
func ParseLocator(locator string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(locator, "gs://")
	if !ok {
		return "", "", goerr.Wrap(model.ErrSourceUnavailable, "not a gs locator", goerr.V("locator", locator))
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", goerr.Wrap(model.ErrSourceUnavailable, "gs locator needs bucket and object",
			goerr.V("locator", locator))
	}
	return bucket, object, nil
}

// Fetch downloads the object
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	bucket, object, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}

	reader, err := f.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, goerr.Wrap(model.ErrSourceNotFound, "object does not exist",
				goerr.V("bucket", bucket), goerr.V("object", object))
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to open object",
			goerr.V("bucket", bucket), goerr.V("object", object), goerr.V("cause", err.Error()))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to read object",
			goerr.V("bucket", bucket), goerr.V("object", object), goerr.V("cause", err.Error()))
	}
	return data, nil
}
