//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin123"
)

// newMinioArchive starts MinIO and returns an archive pointed at it
func newMinioArchive(t *testing.T) *S3PayloadArchive {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start MinIO container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	archive, err := NewS3PayloadArchive(&config.ArchiveConfig{
		Enabled:      true,
		Endpoint:     fmt.Sprintf("http://%s:%s", host, port.Port()),
		Bucket:       "payloads-it",
		AccessKey:    minioUser,
		SecretKey:    minioPassword,
		UsePathStyle: true,
		Prefix:       "gateway-payloads",
	}, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.NoError(t, archive.EnsureBucket(ctx))
	return archive
}

func TestIntegration_ArchiveRoundTrip(t *testing.T) {
	archive := newMinioArchive(t)
	ctx := context.Background()
	key := "2026/03/01/ORD-1/callback-1.json"

	exists, err := archive.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, archive.Archive(ctx, key, []byte(`{"response":"e30="}`)))

	exists, err = archive.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	// A second EnsureBucket is a no-op
	require.NoError(t, archive.EnsureBucket(ctx))
}
