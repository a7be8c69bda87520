package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

func writeScoringFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func newScoringFixture(t *testing.T, defaults, user string) (*ScoringConfigService, ScoringConfigOptions) {
	t.Helper()
	dir := t.TempDir()
	opts := ScoringConfigOptions{
		DefaultsPath: filepath.Join(dir, "defaults.json"),
		UserPath:     filepath.Join(dir, "user.json"),
	}
	if defaults != "" {
		writeScoringFile(t, opts.DefaultsPath, defaults)
	}
	if user != "" {
		writeScoringFile(t, opts.UserPath, user)
	}
	svc, err := NewScoringConfigService(opts, nil, nil)
	require.NoError(t, err)
	return svc, opts
}

func TestScoringConfigBuiltinDefaults(t *testing.T) {
	svc, _ := newScoringFixture(t, "", "")
	cfg := svc.Current()
	assert.Equal(t, int64(1), cfg.Version)
	assert.Equal(t, 3, cfg.Weights.CapacityAdequate)
	assert.Equal(t, 12, cfg.Weights.HistoricalFrequencyMaxCap)
	assert.True(t, cfg.Rules.RequireHardRulesForSoftPreferences)
	assert.Equal(t, []string{"builtin"}, cfg.Sources)
}

func TestScoringConfigUserOverridesKeyByKey(t *testing.T) {
	svc, opts := newScoringFixture(t,
		`{"_metadata":{"note":"x"},"weights":{"CAPACITY_ADEQUATE":10,"PREFERRED_ROOM":6}}`,
		`{"_metadata":"ignored","weights":{"PREFERRED_ROOM":9},"rules":{"HISTORICAL_EXCLUDE_CURRENT_SEMESTER":false}}`,
	)
	cfg := svc.Current()
	assert.Equal(t, 10, cfg.Weights.CapacityAdequate)
	assert.Equal(t, 9, cfg.Weights.PreferredRoom)
	assert.Equal(t, 4, cfg.Weights.PreferredCharacteristic)
	assert.False(t, cfg.Rules.HistoricalExcludeCurrentSemester)
	assert.Equal(t, []string{"builtin", opts.DefaultsPath, opts.UserPath}, cfg.Sources)
}

func TestScoringConfigRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"negative weight":    `{"weights":{"CAPACITY_ADEQUATE":-1}}`,
		"fractional weight":  `{"weights":{"CAPACITY_ADEQUATE":1.5}}`,
		"string weight":      `{"weights":{"CAPACITY_ADEQUATE":"3"}}`,
		"boolean weight":     `{"weights":{"CAPACITY_ADEQUATE":true}}`,
		"non-boolean rule":   `{"rules":{"HISTORICAL_EXCLUDE_CURRENT_SEMESTER":"yes"}}`,
		"unknown weight":     `{"weights":{"CAPACITY_BONUS":2}}`,
		"unknown section":    `{"penalties":{"LATE":1}}`,
		"malformed document": `{"weights":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			opts := ScoringConfigOptions{UserPath: filepath.Join(dir, "user.json")}
			writeScoringFile(t, opts.UserPath, body)

			_, err := LoadScoringConfig("", opts.UserPath, nil, nil)
			require.Error(t, err)
			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr))

			_, err = NewScoringConfigService(opts, nil, nil)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrConfigInvalid.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestScoringConfigReloadKeepsLastGood(t *testing.T) {
	svc, opts := newScoringFixture(t, "", `{"weights":{"CAPACITY_ADEQUATE":7}}`)
	before := svc.Current()

	writeScoringFile(t, opts.UserPath, `{"weights":{"CAPACITY_ADEQUATE":-7}}`)
	_, err := svc.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, before, svc.Current())

	writeScoringFile(t, opts.UserPath, `{"weights":{"CAPACITY_ADEQUATE":8}}`)
	cfg, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Weights.CapacityAdequate)
	assert.Equal(t, before.Version+1, cfg.Version)
	assert.Equal(t, 7, before.Weights.CapacityAdequate, "published snapshots are immutable")
}

func TestScoringConfigUpdateOverridesPersists(t *testing.T) {
	svc, opts := newScoringFixture(t, "", `{"_metadata":{"owner":"ops"},"weights":{"PREFERRED_ROOM":6}}`)

	cfg, err := svc.UpdateOverrides(context.Background(), map[string]interface{}{
		"weights": map[string]interface{}{"CAPACITY_ADEQUATE": 11},
	})
	require.NoError(t, err)
	assert.Equal(t, 11, cfg.Weights.CapacityAdequate)
	assert.Equal(t, 6, cfg.Weights.PreferredRoom)
	assert.Equal(t, int64(2), cfg.Version)

	raw, err := os.ReadFile(opts.UserPath)
	require.NoError(t, err)
	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &stored))
	weights := stored["weights"].(map[string]interface{})
	assert.Equal(t, 11.0, weights["CAPACITY_ADEQUATE"])
	assert.Equal(t, 6.0, weights["PREFERRED_ROOM"])
	assert.Contains(t, stored, "_metadata")

	again, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, again.Weights.CapacityAdequate)
}

func TestScoringConfigUpdateOverridesRejectsInvalid(t *testing.T) {
	svc, opts := newScoringFixture(t, "", `{"weights":{"PREFERRED_ROOM":6}}`)
	before := svc.Current()

	_, err := svc.UpdateOverrides(context.Background(), map[string]interface{}{
		"weights": map[string]interface{}{"PREFERRED_ROOM": -1},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfigInvalid.Code, appErrors.FromError(err).Code)
	assert.Equal(t, before, svc.Current())

	raw, err := os.ReadFile(opts.UserPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"weights":{"PREFERRED_ROOM":6}}`, string(raw))

	_, err = svc.UpdateOverrides(context.Background(), nil)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
