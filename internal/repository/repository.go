// Package repository persists the review collections as JSON array files.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("collection not found")
	ErrInvalidInput = errors.New("invalid input")
)

var _ domain.Repository = (*FileRepository)(nil)

// FileRepository implements domain.Repository with one JSON file per
// collection. Loads read the whole array; saves atomically replace it.
type FileRepository struct {
	mu    sync.Mutex
	dir   string
	files map[collection]string
}

type collection int

const (
	claims collection = iota
	drgClaims
	necessityClaims
	readmissionPairs
)

// New creates a file repository rooted at cfg.DataDir.
func New(cfg domain.RepositoryConfig) (*FileRepository, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("%w: dataDir is required", ErrInvalidInput)
	}
	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidInput, cfg.DataDir)
	}

	def := domain.DefaultConfig().Repository
	name := func(v, fallback string) string {
		if v == "" {
			return fallback
		}
		return v
	}
	return &FileRepository{
		dir: cfg.DataDir,
		files: map[collection]string{
			claims:           name(cfg.ClaimsFile, def.ClaimsFile),
			drgClaims:        name(cfg.DRGFile, def.DRGFile),
			necessityClaims:  name(cfg.NecessityFile, def.NecessityFile),
			readmissionPairs: name(cfg.ReadmissionsFile, def.ReadmissionsFile),
		},
	}, nil
}

func (r *FileRepository) path(c collection) string {
	return filepath.Join(r.dir, r.files[c])
}

// LoadClaims loads the outlier claims.
func (r *FileRepository) LoadClaims(ctx context.Context) ([]domain.Claim, error) {
	return load[domain.Claim](ctx, r, claims)
}

// SaveClaims replaces the outlier claims.
func (r *FileRepository) SaveClaims(ctx context.Context, c []domain.Claim) error {
	return save(ctx, r, claims, c)
}

// LoadDRGClaims loads the DRG validation claims.
func (r *FileRepository) LoadDRGClaims(ctx context.Context) ([]domain.DRGClaim, error) {
	return load[domain.DRGClaim](ctx, r, drgClaims)
}

// SaveDRGClaims replaces the DRG validation claims.
func (r *FileRepository) SaveDRGClaims(ctx context.Context, c []domain.DRGClaim) error {
	return save(ctx, r, drgClaims, c)
}

// LoadMedNecessityClaims loads the medical-necessity claims.
func (r *FileRepository) LoadMedNecessityClaims(ctx context.Context) ([]domain.MedNecessityClaim, error) {
	return load[domain.MedNecessityClaim](ctx, r, necessityClaims)
}

// SaveMedNecessityClaims replaces the medical-necessity claims.
func (r *FileRepository) SaveMedNecessityClaims(ctx context.Context, c []domain.MedNecessityClaim) error {
	return save(ctx, r, necessityClaims, c)
}

// LoadReadmissionPairs loads the readmission pairs.
func (r *FileRepository) LoadReadmissionPairs(ctx context.Context) ([]domain.ReadmissionPair, error) {
	return load[domain.ReadmissionPair](ctx, r, readmissionPairs)
}

// SaveReadmissionPairs replaces the readmission pairs.
func (r *FileRepository) SaveReadmissionPairs(ctx context.Context, p []domain.ReadmissionPair) error {
	return save(ctx, r, readmissionPairs, p)
}

// Ping checks the data directory is still reachable.
func (r *FileRepository) Ping(context.Context) error {
	_, err := os.Stat(r.dir)
	return err
}

// Close is a no-op.
func (r *FileRepository) Close() error {
	return nil
}

func load[T any](ctx context.Context, r *FileRepository, c collection) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := r.path(c)

	r.mu.Lock()
	data, err := os.ReadFile(path)
	r.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func save[T any](ctx context.Context, r *FileRepository, c collection, items []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}
	data = append(data, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	return writeAtomic(r.path(c), data)
}

// writeAtomic writes data to a temp file in the same directory and renames
// it over path, so readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmp.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
