package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func newRepo(t *testing.T) (*FileRepository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := New(domain.RepositoryConfig{DataDir: dir})
	require.NoError(t, err, "failed to create repository")
	t.Cleanup(func() { repo.Close() })
	return repo, dir
}

func TestFileRepository(t *testing.T) {
	repo, dir := newRepo(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})

	t.Run("MissingCollection", func(t *testing.T) {
		_, err := repo.LoadClaims(ctx)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SaveAndLoadClaims", func(t *testing.T) {
		in := []domain.Claim{
			{ID: "CLM-1", ProviderID: "P1", BilledAmount: 150, Status: domain.ClaimPending},
			{ID: "CLM-2", ProviderID: "P1", BilledAmount: 275.5, Status: domain.ClaimApproved},
		}
		require.NoError(t, repo.SaveClaims(ctx, in))

		out, err := repo.LoadClaims(ctx)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "CLM-2", out[1].ID)
		assert.Equal(t, 275.5, out[1].BilledAmount)
		assert.Equal(t, domain.ClaimApproved, out[1].Status)
	})

	t.Run("NoTempFilesLeft", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
		}
	})

	t.Run("SaveReplacesWholeCollection", func(t *testing.T) {
		pairs := []domain.ReadmissionPair{{ID: "RA-1"}, {ID: "RA-2"}}
		require.NoError(t, repo.SaveReadmissionPairs(ctx, pairs))
		require.NoError(t, repo.SaveReadmissionPairs(ctx, pairs[:1]))

		out, err := repo.LoadReadmissionPairs(ctx)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "RA-1", out[0].ID)
	})

	t.Run("EmptyArray", func(t *testing.T) {
		require.NoError(t, repo.SaveDRGClaims(ctx, nil))
		data, _ := os.ReadFile(filepath.Join(dir, "drg-claims.json"))
		assert.Equal(t, "[]", strings.TrimSpace(string(data)))

		out, err := repo.LoadDRGClaims(ctx)
		require.NoError(t, err)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	})

	t.Run("MalformedFile", func(t *testing.T) {
		path := filepath.Join(dir, "medical-necessity-claims.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		_, err := repo.LoadMedNecessityClaims(ctx)
		assert.Error(t, err, "expected decode error")
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, repo.SaveClaims(cctx, nil), context.Canceled)
	})
}

func TestCustomFileNames(t *testing.T) {
	dir := t.TempDir()
	repo, err := New(domain.RepositoryConfig{DataDir: dir, ClaimsFile: "outliers.json"})
	require.NoError(t, err)
	require.NoError(t, repo.SaveClaims(context.Background(), []domain.Claim{{ID: "C"}}))

	_, err = os.Stat(filepath.Join(dir, "outliers.json"))
	assert.NoError(t, err, "expected outliers.json")
}

func TestInvalidDataDir(t *testing.T) {
	_, err := New(domain.RepositoryConfig{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	file := filepath.Join(t.TempDir(), "file")
	_ = os.WriteFile(file, nil, 0o644)
	_, err = New(domain.RepositoryConfig{DataDir: file})
	assert.ErrorIs(t, err, ErrInvalidInput, "a file is not a data dir")
}
