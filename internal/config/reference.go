package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/kestrel/internal/celrules"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/drg"
)

// Reference is the data loaded from the reference file, merged over the
// built-in tables.
type Reference struct {
	DRG    *drg.Reference
	Points domain.SeverityPoints
	Custom []celrules.Definition
}

// referenceFile is the on-disk YAML structure.
type referenceFile struct {
	BaseRate       float64                     `yaml:"baseRate"`
	DRGWeights     map[string]drg.WeightEntry  `yaml:"drgWeights"`
	ExpectedDRGs   map[string]string           `yaml:"expectedDRGs"`
	SeverityPoints map[domain.Severity]float64 `yaml:"severityPoints"`
	CustomRules    []celrules.Definition       `yaml:"customRules"`
}

// LoadReference reads the YAML reference file at path. An empty path or a
// missing file yields the built-in defaults.
func LoadReference(path string) (*Reference, error) {
	ref := &Reference{DRG: drg.DefaultReference(), Points: domain.DefaultSeverityPoints()}
	if path == "" {
		return ref, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ref, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reference file: %w", err)
	}

	var rf referenceFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse reference file: %w", err)
	}

	switch {
	case rf.BaseRate < 0:
		return nil, fmt.Errorf("%w: baseRate must not be negative", ErrInvalidConfig)
	case rf.BaseRate > 0:
		ref.DRG.BaseRate = rf.BaseRate
	}
	for code, w := range rf.DRGWeights {
		if w.Weight <= 0 {
			return nil, fmt.Errorf("%w: drgWeights[%s].weight must be positive", ErrInvalidConfig, code)
		}
	}
	maps.Copy(ref.DRG.Weights, rf.DRGWeights)
	maps.Copy(ref.DRG.Expected, rf.ExpectedDRGs)

	for sev, pts := range rf.SeverityPoints {
		if !sev.Valid() {
			return nil, fmt.Errorf("%w: unknown severity %q in severityPoints", ErrInvalidConfig, sev)
		}
		if pts < 0 {
			return nil, fmt.Errorf("%w: severityPoints[%s] must not be negative", ErrInvalidConfig, sev)
		}
		ref.Points[sev] = pts
	}

	ref.Custom = rf.CustomRules
	return ref, nil
}
