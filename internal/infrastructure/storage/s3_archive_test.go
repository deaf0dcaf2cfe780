package storage

import (
	"context"
	"testing"
	"time"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validArchiveConfig() *config.ArchiveConfig {
	return &config.ArchiveConfig{
		Enabled:      true,
		Endpoint:     "localhost:9000",
		Region:       "ap-south-1",
		Bucket:       "payloads",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		UsePathStyle: true,
		Prefix:       "/gateway-payloads/",
	}
}

func TestNewS3PayloadArchive_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3PayloadArchive(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	tests := []struct {
		name    string
		mutate  func(c *config.ArchiveConfig)
		wantErr string
	}{
		{"missing bucket", func(c *config.ArchiveConfig) { c.Bucket = "" }, "bucket is required"},
		{"missing access key", func(c *config.ArchiveConfig) { c.AccessKey = "" }, "access key is required"},
		{"missing secret key", func(c *config.ArchiveConfig) { c.SecretKey = "" }, "secret key is required"},
		{"bad endpoint", func(c *config.ArchiveConfig) { c.Endpoint = "http://[::1:9000" }, "invalid archive endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validArchiveConfig()
			tt.mutate(cfg)
			_, err := NewS3PayloadArchive(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("valid config", func(t *testing.T) {
		archive, err := NewS3PayloadArchive(validArchiveConfig(), WithLogger(zap.NewNop()))
		require.NoError(t, err)
		assert.Equal(t, "payloads", archive.Bucket())
		assert.Equal(t, 5*time.Second, archive.timeout)
	})
}

func TestS3PayloadArchive_ObjectKey(t *testing.T) {
	archive, err := NewS3PayloadArchive(validArchiveConfig())
	require.NoError(t, err)
	assert.Equal(t, "gateway-payloads/2026/03/01/ORD-1/callback.json", archive.ObjectKey("/2026/03/01/ORD-1/callback.json"))

	cfg := validArchiveConfig()
	cfg.Prefix = ""
	bare, err := NewS3PayloadArchive(cfg)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1/callback.json", bare.ObjectKey("ORD-1/callback.json"))
}

func TestS3PayloadArchive_RejectsEmptyKey(t *testing.T) {
	archive, err := NewS3PayloadArchive(validArchiveConfig())
	require.NoError(t, err)
	assert.Error(t, archive.Archive(context.Background(), "", []byte(`{}`)))
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"", true, ""},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.ap-south-1.amazonaws.com", true, "https://s3.ap-south-1.amazonaws.com"},
		{"http://localhost:9000", true, "http://localhost:9000"},
	}
	for _, tt := range tests {
		got, err := normalizeEndpoint(tt.in, tt.useSSL)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType([]byte(` {"response":"e30="}`)))
	assert.Equal(t, "application/octet-stream", contentType([]byte("code=PAYMENT_SUCCESS&transactionId=ORD-1")))
	assert.Equal(t, "application/octet-stream", contentType(nil))
}

func TestMemoryPayloadArchive(t *testing.T) {
	archive := NewMemoryPayloadArchive()
	ctx := context.Background()

	body := []byte(`{"code":"PAYMENT_SUCCESS"}`)
	require.NoError(t, archive.Archive(ctx, "ORD-1/callback.json", body))
	body[0] = 'x'

	got, ok := archive.Get("ORD-1/callback.json")
	require.True(t, ok)
	assert.Equal(t, `{"code":"PAYMENT_SUCCESS"}`, string(got))
	assert.Equal(t, []string{"ORD-1/callback.json"}, archive.Keys())

	assert.Error(t, archive.Archive(ctx, "", body))
	_, ok = archive.Get("missing")
	assert.False(t, ok)
}
