package chartarchive

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryArchiveStoresCopy(t *testing.T) {
	archive := NewMemoryArchive()
	data := []byte{0x89, 'P', 'N', 'G'}

	location, err := archive.Put(context.Background(), "charts/a.png", data)
	require.NoError(t, err)
	require.Equal(t, "memory://charts/a.png", location)

	data[0] = 0
	got, err := archive.Get("charts/a.png")
	require.NoError(t, err)
	require.Equal(t, byte(0x89), got[0])

	_, err = archive.Get("missing")
	require.Error(t, err)
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "minio:9000", sanitizeEndpoint("http://minio:9000/"))
	require.Equal(t, "acc.r2.cloudflarestorage.com", sanitizeEndpoint(" https://acc.r2.cloudflarestorage.com/bucket "))
	require.Equal(t, "", sanitizeEndpoint(""))
}

func TestNewS3ArchiveRequiresBucket(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewS3Archive("http://localhost:9000", "key", "secret", "", "", logger)
	require.Error(t, err)

	archive, err := NewS3Archive("http://localhost:9000", "key", "secret", "charts", "us-east-1", logger)
	require.NoError(t, err)
	require.Equal(t, "charts", archive.bucket)
}
