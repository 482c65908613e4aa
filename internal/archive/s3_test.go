package archive

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/logger"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	return &s3.PutObjectOutput{}, f.err
}

func discard() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func TestS3Store_Put(t *testing.T) {
	t.Parallel()

	api := &fakeS3{}
	store := newS3Store(api, Config{Bucket: "labels-bucket", Prefix: "/foodscan/"}, "eu-north-1", discard())

	got, err := store.Put(t.Context(), "labels/a b.jpg", []byte("img"), "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, "https://labels-bucket.s3.eu-north-1.amazonaws.com/foodscan/labels/a%20b.jpg", got)
	assert.Equal(t, "labels-bucket", aws.ToString(api.input.Bucket))
	assert.Equal(t, "foodscan/labels/a b.jpg", aws.ToString(api.input.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(api.input.ContentType))
	assert.Equal(t, []byte("img"), api.body)
}

func TestS3Store_PublicURLVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit public url", Config{Bucket: "b", PublicURL: "https://cdn.test/"}, "https://cdn.test/k.png"},
		{"custom endpoint", Config{Bucket: "b", Endpoint: "http://minio:9000"}, "http://minio:9000/b/k.png"},
		{"no region", Config{Bucket: "b"}, "https://b.s3.amazonaws.com/k.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newS3Store(&fakeS3{}, tt.cfg, "", discard())
			got, err := store.Put(t.Context(), "k.png", nil, "image/png")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestS3Store_PutError(t *testing.T) {
	t.Parallel()

	store := newS3Store(&fakeS3{err: errors.NewStd("access denied")}, Config{Bucket: "b"}, "", discard())
	_, err := store.Put(t.Context(), "k", []byte("x"), "image/png")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryArchive))
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := NewS3Store(t.Context(), Config{}, discard())
	require.Error(t, err)
}

func TestLabelKey(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	key := LabelKey(now, "image/png")
	assert.True(t, strings.HasPrefix(key, "labels/2026/03/14/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.NotEqual(t, key, LabelKey(now, "image/png"))
	assert.True(t, strings.HasSuffix(LabelKey(now, "application/octet-stream"), ".bin"))
}
