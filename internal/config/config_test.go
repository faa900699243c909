package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644), "write %s", name)
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	def := domain.DefaultConfig()
	assert.Equal(t, def.Server.Port, cfg.Server.Port)
	assert.Equal(t, def.Repository.DataDir, cfg.Repository.DataDir)
	assert.Equal(t, time.Hour, cfg.Cache.ResultTTL)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, "kestrel.yaml", `
server:
  port: 7000
  allowedOrigins: [https://review.example]
review:
  strict: true
  workers: 4
repository:
  dataDir: /srv/kestrel
cache:
  type: none
`)
	t.Setenv("KESTREL_SERVER_PORT", "9090")
	t.Setenv("KESTREL_REVIEW_BATCHDELAY", "250ms")
	t.Setenv("KESTREL_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "env overrides the file port")
	assert.Equal(t, []string{"https://review.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Review.Strict)
	assert.Equal(t, 4, cfg.Review.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Review.BatchDelay)
	assert.Equal(t, "/srv/kestrel", cfg.Repository.DataDir)
	assert.Equal(t, "claims.json", cfg.Repository.ClaimsFile, "unset keys keep defaults")
	assert.Equal(t, "none", cfg.Cache.Type)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("InvalidValues", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "cache:\n  type: memcached\nserver:\n  port: 0\n")
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestLoadReference(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
			ref, err := LoadReference(path)
			require.NoError(t, err, "LoadReference(%q)", path)
			assert.Equal(t, 6200.0, ref.DRG.BaseRate)
			assert.Equal(t, 25.0, ref.Points[domain.SeverityCritical])
			assert.Empty(t, ref.Custom)
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		path := writeFile(t, "reference.yaml", `
baseRate: 7000
drgWeights:
  "999":
    weight: 2.5
    description: Test DRG
    surgical: true
expectedDRGs:
  CLM-77: "999"
severityPoints:
  Critical: 30
customRules:
  - id: CUSTOM-1
    name: Long stay
    vertical: drg
    category: UPCODING
    severity: Medium
    expression: claim.lengthOfStay > 10
`)
		ref, err := LoadReference(path)
		require.NoError(t, err)

		assert.Equal(t, 7000.0, ref.DRG.BaseRate)

		w, ok := ref.DRG.Lookup("999")
		require.True(t, ok, "expected DRG 999 entry")
		assert.Equal(t, 2.5, w.Weight)
		assert.True(t, w.Surgical)

		_, ok = ref.DRG.Lookup("066")
		assert.True(t, ok, "built-in weights are kept")

		assert.Equal(t, "999", ref.DRG.Expected["CLM-77"])
		assert.Equal(t, "871", ref.DRG.Expected["DRG-001"])
		assert.Equal(t, 30.0, ref.Points[domain.SeverityCritical])
		assert.Equal(t, 15.0, ref.Points[domain.SeverityHigh])

		require.Len(t, ref.Custom, 1)
		assert.Equal(t, domain.SeverityMedium, ref.Custom[0].Severity)
	})

	t.Run("Invalid", func(t *testing.T) {
		for name, body := range map[string]string{
			"severity": "severityPoints:\n  Severe: 10\n",
			"weight":   "drgWeights:\n  \"1\":\n    weight: 0\n",
			"baseRate": "baseRate: -1\n",
		} {
			t.Run(name, func(t *testing.T) {
				_, err := LoadReference(writeFile(t, "ref.yaml", body))
				assert.ErrorIs(t, err, ErrInvalidConfig)
			})
		}
	})
}
