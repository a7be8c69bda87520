package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/room-allocation-api/internal/models"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

const (
	scoringWeightsKey  = "weights"
	scoringRulesKey    = "rules"
	scoringMetadataKey = "_metadata"
)

type scoringValueType string

const (
	scoringInt  scoringValueType = "integer"
	scoringBool scoringValueType = "boolean"
)

// allowedScoringKeys lists every recognised leaf and its type.
var allowedScoringKeys = map[string]map[string]scoringValueType{
	scoringWeightsKey: {
		"PRIORITY_SPECIFIC_ROOM_REQUIRED":     scoringInt,
		"PRIORITY_MOBILITY_CONSTRAINTS":       scoringInt,
		"PRIORITY_ROOM_PREFERENCES":           scoringInt,
		"PRIORITY_CHARACTERISTIC_PREFERENCES": scoringInt,
		"HARD_RULE_COMPLIANCE":                scoringInt,
		"CAPACITY_ADEQUATE":                   scoringInt,
		"PREFERRED_ROOM":                      scoringInt,
		"PREFERRED_CHARACTERISTIC":            scoringInt,
		"HISTORICAL_FREQUENCY_PER_ALLOCATION": scoringInt,
		"HISTORICAL_FREQUENCY_MAX_CAP":        scoringInt,
	},
	scoringRulesKey: {
		"REQUIRE_HARD_RULES_FOR_SOFT_PREFERENCES": scoringBool,
		"HISTORICAL_EXCLUDE_CURRENT_SEMESTER":     scoringBool,
	},
}

// DefaultScoringDocument is the built-in bottom layer under defaults.json.
func DefaultScoringDocument() map[string]interface{} {
	return map[string]interface{}{
		scoringWeightsKey: map[string]interface{}{
			"PRIORITY_SPECIFIC_ROOM_REQUIRED":     4,
			"PRIORITY_MOBILITY_CONSTRAINTS":       3,
			"PRIORITY_ROOM_PREFERENCES":           2,
			"PRIORITY_CHARACTERISTIC_PREFERENCES": 1,
			"HARD_RULE_COMPLIANCE":                20,
			"CAPACITY_ADEQUATE":                   3,
			"PREFERRED_ROOM":                      5,
			"PREFERRED_CHARACTERISTIC":            4,
			"HISTORICAL_FREQUENCY_PER_ALLOCATION": 2,
			"HISTORICAL_FREQUENCY_MAX_CAP":        12,
		},
		scoringRulesKey: map[string]interface{}{
			"REQUIRE_HARD_RULES_FOR_SOFT_PREFERENCES": true,
			"HISTORICAL_EXCLUDE_CURRENT_SEMESTER":     true,
		},
	}
}

// ConfigError lists every problem found in a scoring document.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid scoring configuration: " + strings.Join(e.Problems, "; ")
}

// ScoringConfigOptions locates the scoring documents.
type ScoringConfigOptions struct {
	DefaultsPath string
	UserPath     string
	// Metrics, when set, tracks the active version and rejected reloads.
	Metrics *MetricsService
}

// ScoringConfigService owns the active scoring snapshot. Runs read it once via
// Current; reloads swap the pointer and never mutate a published snapshot.
type ScoringConfigService struct {
	opts      ScoringConfigOptions
	validator *validator.Validate
	logger    *zap.Logger

	current atomic.Pointer[models.ScoringConfig]
	version atomic.Int64

	mu       sync.Mutex
	watchers []*file.File
}

// NewScoringConfigService loads and activates the initial snapshot.
func NewScoringConfigService(opts ScoringConfigOptions, validate *validator.Validate, logger *zap.Logger) (*ScoringConfigService, error) {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ScoringConfigService{opts: opts, validator: validate, logger: logger}
	if _, err := s.Reload(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active snapshot.
func (s *ScoringConfigService) Current() models.ScoringConfig {
	return *s.current.Load()
}

// Reload re-reads both documents. On failure the previous snapshot stays active.
func (s *ScoringConfigService) Reload(ctx context.Context) (models.ScoringConfig, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := LoadScoringConfig(s.opts.DefaultsPath, s.opts.UserPath, nil, s.validator)
	if err != nil {
		s.logger.Warn("scoring configuration rejected", zap.Error(err))
		s.opts.Metrics.RecordConfigReloadFailure()
		return models.ScoringConfig{}, toConfigAppError(err)
	}
	return s.activate(cfg), nil
}

// UpdateOverrides merges the overrides over the current user document,
// validates the result, persists user.json atomically and activates it.
func (s *ScoringConfigService) UpdateOverrides(ctx context.Context, overrides map[string]interface{}) (models.ScoringConfig, error) {
	_ = ctx
	if len(overrides) == 0 {
		return models.ScoringConfig{}, appErrors.Clone(appErrors.ErrValidation, "overrides must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user := koanf.New(".")
	if err := loadOptionalFile(user, s.opts.UserPath); err != nil {
		return models.ScoringConfig{}, toConfigAppError(err)
	}
	if err := user.Load(confmap.Provider(overrides, ""), nil); err != nil {
		return models.ScoringConfig{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid overrides payload")
	}
	merged := user.Raw()

	cfg, err := LoadScoringConfig(s.opts.DefaultsPath, "", merged, s.validator)
	if err != nil {
		return models.ScoringConfig{}, toConfigAppError(err)
	}
	if err := writeJSONAtomic(s.opts.UserPath, merged); err != nil {
		return models.ScoringConfig{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist scoring overrides")
	}
	cfg.Sources = sourcesFor(s.opts.DefaultsPath, s.opts.UserPath)
	return s.activate(cfg), nil
}

// Watch reloads when either document changes until ctx is done. Rejected
// reloads are logged and keep the previous snapshot.
func (s *ScoringConfigService) Watch(ctx context.Context) error {
	s.mu.Lock()
	for _, path := range []string{s.opts.DefaultsPath, s.opts.UserPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			s.logger.Info("scoring document not watched", zap.String("path", path), zap.Error(err))
			continue
		}
		provider := file.Provider(path)
		watchedPath := path
		if err := provider.Watch(func(_ interface{}, err error) {
			if err != nil {
				s.logger.Warn("scoring watch error", zap.String("path", watchedPath), zap.Error(err))
				return
			}
			if _, reloadErr := s.Reload(ctx); reloadErr == nil {
				s.logger.Info("scoring configuration reloaded", zap.String("path", watchedPath), zap.Int64("version", s.Current().Version))
			}
		}); err != nil {
			s.mu.Unlock()
			s.stopWatchers()
			return fmt.Errorf("watch %s: %w", path, err)
		}
		s.watchers = append(s.watchers, provider)
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.stopWatchers()
	}()
	return nil
}

func (s *ScoringConfigService) stopWatchers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers {
		_ = w.Unwatch()
	}
	s.watchers = nil
}

func (s *ScoringConfigService) activate(cfg models.ScoringConfig) models.ScoringConfig {
	cfg.Version = s.version.Add(1)
	cfg.LoadedAt = time.Now().UTC()
	if cfg.Weights.HistoricalFrequencyMaxCap < cfg.Weights.HistoricalFrequencyPerAllocation {
		s.logger.Warn("historical cap below per-allocation increment",
			zap.Int("cap", cfg.Weights.HistoricalFrequencyMaxCap),
			zap.Int("per_allocation", cfg.Weights.HistoricalFrequencyPerAllocation),
		)
	}
	snapshot := cfg
	s.current.Store(&snapshot)
	s.opts.Metrics.ObserveConfigVersion(snapshot.Version)
	return snapshot
}

// LoadScoringConfig merges built-in defaults, the defaults document, the user
// document and an optional in-memory layer, key by key, later layers winning.
// Missing files are skipped. The result is not versioned.
func LoadScoringConfig(defaultsPath, userPath string, extra map[string]interface{}, validate *validator.Validate) (models.ScoringConfig, error) {
	if validate == nil {
		validate = validator.New()
	}
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(DefaultScoringDocument(), ""), nil); err != nil {
		return models.ScoringConfig{}, err
	}
	if err := loadOptionalFile(k, defaultsPath); err != nil {
		return models.ScoringConfig{}, err
	}
	if err := loadOptionalFile(k, userPath); err != nil {
		return models.ScoringConfig{}, err
	}
	if extra != nil {
		if err := k.Load(confmap.Provider(extra, ""), nil); err != nil {
			return models.ScoringConfig{}, err
		}
	}
	k.Delete(scoringMetadataKey)

	if problems := checkScoringDocument(k.Raw()); len(problems) > 0 {
		return models.ScoringConfig{}, &ConfigError{Problems: problems}
	}

	var doc struct {
		Weights models.ScoringWeights `koanf:"weights"`
		Rules   models.ScoringRules   `koanf:"rules"`
	}
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return models.ScoringConfig{}, &ConfigError{Problems: []string{err.Error()}}
	}
	if err := validate.Struct(doc.Weights); err != nil {
		return models.ScoringConfig{}, &ConfigError{Problems: []string{err.Error()}}
	}
	return models.ScoringConfig{
		Weights: doc.Weights,
		Rules:   doc.Rules,
		Sources: sourcesFor(defaultsPath, userPath),
	}, nil
}

func loadOptionalFile(k *koanf.Koanf, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
		return &ConfigError{Problems: []string{fmt.Sprintf("%s: %v", path, err)}}
	}
	return nil
}

func checkScoringDocument(raw map[string]interface{}) []string {
	var problems []string
	sections := make([]string, 0, len(raw))
	for section := range raw {
		sections = append(sections, section)
	}
	sort.Strings(sections)

	for _, section := range sections {
		allowed, ok := allowedScoringKeys[section]
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown section %q", section))
			continue
		}
		values, ok := raw[section].(map[string]interface{})
		if !ok {
			problems = append(problems, fmt.Sprintf("%s must be an object", section))
			continue
		}
		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			want, known := allowed[key]
			if !known {
				problems = append(problems, fmt.Sprintf("unknown %s key %q", section, key))
				continue
			}
			if problem := checkScoringValue(want, values[key]); problem != "" {
				problems = append(problems, fmt.Sprintf("%s.%s %s", section, key, problem))
			}
		}
	}
	return problems
}

func checkScoringValue(want scoringValueType, value interface{}) string {
	switch want {
	case scoringBool:
		if _, ok := value.(bool); !ok {
			return "must be a boolean"
		}
	case scoringInt:
		var f float64
		switch v := value.(type) {
		case int:
			f = float64(v)
		case int64:
			f = float64(v)
		case float64:
			f = v
		default:
			return "must be an integer"
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return "must be an integer"
		}
		if f < 0 {
			return "must be >= 0"
		}
		if f > math.MaxInt32 {
			return "is too large"
		}
	}
	return ""
}

func writeJSONAtomic(path string, doc map[string]interface{}) error {
	if path == "" {
		return fmt.Errorf("scoring user document path not configured")
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".scoring-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(payload, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func sourcesFor(paths ...string) []string {
	sources := []string{"builtin"}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			sources = append(sources, path)
		}
	}
	return sources
}

func toConfigAppError(err error) error {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return appErrors.Wrap(cfgErr, appErrors.ErrConfigInvalid.Code, appErrors.ErrConfigInvalid.Status, cfgErr.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scoring configuration")
}
