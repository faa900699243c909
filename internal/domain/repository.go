// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"context"
)

// Repository persists the four review collections.
// Every Save rewrites the whole collection.
type Repository interface {
	// Outlier claims
	LoadClaims(ctx context.Context) ([]Claim, error)
	SaveClaims(ctx context.Context, claims []Claim) error

	// DRG validation claims
	LoadDRGClaims(ctx context.Context) ([]DRGClaim, error)
	SaveDRGClaims(ctx context.Context, claims []DRGClaim) error

	// Medical-necessity claims
	LoadMedNecessityClaims(ctx context.Context) ([]MedNecessityClaim, error)
	SaveMedNecessityClaims(ctx context.Context, claims []MedNecessityClaim) error

	// Readmission pairs
	LoadReadmissionPairs(ctx context.Context) ([]ReadmissionPair, error)
	SaveReadmissionPairs(ctx context.Context, pairs []ReadmissionPair) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for the flat-file repository.
type RepositoryConfig struct {
	// DataDir holds one JSON array file per collection.
	DataDir string `json:"dataDir" mapstructure:"dataDir"`

	ClaimsFile       string `json:"claimsFile" mapstructure:"claimsFile"`
	DRGFile          string `json:"drgFile" mapstructure:"drgFile"`
	NecessityFile    string `json:"necessityFile" mapstructure:"necessityFile"`
	ReadmissionsFile string `json:"readmissionsFile" mapstructure:"readmissionsFile"`
}
