package objectstore_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/config"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupMinio starts a MinIO server and returns config pointing at it.
func setupMinio(t *testing.T) config.ObjectStoreConfig {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	return config.ObjectStoreConfig{
		Provider:       "minio",
		Bucket:         "models",
		Endpoint:       host + ":" + port.Port(),
		AccessKey:      "minioadmin",
		SecretKey:      "minioadmin",
		Region:         "us-east-1",
		ForcePathStyle: true,
	}
}

// Both backends speak to the same MinIO server; the S3 one in path style.
func backends(t *testing.T) map[string]objectstore.Store {
	t.Helper()
	cfg := setupMinio(t)

	minioStore, err := objectstore.New(context.Background(), cfg)
	require.NoError(t, err)

	cfg.Provider = "s3"
	s3Store, err := objectstore.New(context.Background(), cfg)
	require.NoError(t, err)

	return map[string]objectstore.Store{"minio": minioStore, "s3": s3Store}
}

func TestStore_PutGetRoundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			bucket := "jobs-" + name
			require.NoError(t, s.EnsureBucket(ctx, bucket))
			require.NoError(t, s.EnsureBucket(ctx, bucket), "second call is a no-op")
			require.NoError(t, s.Ping(ctx, bucket))

			payload := []byte("Label,Confidence,X1,Y1,X2,Y2\n")
			require.NoError(t, s.Put(ctx, bucket, "owner/job/results.csv",
				bytes.NewReader(payload), int64(len(payload)), "text/csv"))

			obj, err := s.Get(ctx, bucket, "owner/job/results.csv")
			require.NoError(t, err)
			defer obj.Body.Close()

			got, err := io.ReadAll(obj.Body)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
			assert.Equal(t, "text/csv", obj.ContentType)
			assert.Equal(t, int64(len(payload)), obj.Size)
		})
	}
}

func TestStore_GetMissingKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			bucket := "missing-" + name
			require.NoError(t, s.EnsureBucket(ctx, bucket))

			_, err := s.Get(ctx, bucket, "no/such/key.png")
			assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
		})
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := objectstore.New(context.Background(), config.ObjectStoreConfig{Provider: "ftp"})
	assert.Error(t, err)
}
