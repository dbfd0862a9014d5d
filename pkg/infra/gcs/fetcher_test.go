package gcs_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
	"github.com/m-mizutani/fontprov/pkg/infra/gcs"
)

func TestParseLocator(t *testing.T) {
	bucket, object, err := gcs.ParseLocator("gs://font-mirror/google/Montserrat-Bold.ttf")
	gt.NoError(t, err)
	gt.Equal(t, bucket, "font-mirror")
	gt.Equal(t, object, "google/Montserrat-Bold.ttf")

	for _, invalid := range []string{"gs://font-mirror", "gs:///object", "https://example.com/a.ttf", "gs://bucket/"} {
		_, _, err := gcs.ParseLocator(invalid)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrSourceUnavailable))
	}
}

func TestFetcher_WithRealBucket(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	object := os.Getenv("TEST_GCS_OBJECT")
	if bucket == "" || object == "" {
		t.Skip("TEST_GCS_BUCKET and TEST_GCS_OBJECT are not set")
	}

	ctx := context.Background()
	fetcher, err := gcs.New(ctx)
	gt.NoError(t, err)
	defer fetcher.Close()

	data, err := fetcher.Fetch(ctx, "gs://"+bucket+"/"+object)
	gt.NoError(t, err)
	gt.True(t, len(data) > 0)

	_, err = fetcher.Fetch(ctx, "gs://"+bucket+"/fontprov-test-missing-object")
	gt.True(t, errors.Is(err, model.ErrSourceNotFound))
}
