// Package config loads the engine's tunable constants. The scoring weights
// and thresholds are product-tunable, so they live in configuration rather
// than in code: defaults here, overridable from a YAML file or INTAKE_*
// environment variables via viper.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/docufill/intake/pkg/errors"
)

// Tunables collects every product-tunable constant of the three engines.
type Tunables struct {
	Reconcile ReconcileTunables `mapstructure:"reconcile"`
	Cluster   ClusterTunables   `mapstructure:"cluster"`
	Mapper    MapperTunables    `mapstructure:"mapper"`
}

// ReconcileTunables configures composite scoring and review thresholds.
type ReconcileTunables struct {
	// Composite score weights for disagreeing values.
	ConfidenceWeight    float64 `mapstructure:"confidence_weight"`
	RecencyWeight       float64 `mapstructure:"recency_weight"`
	CorroborationWeight float64 `mapstructure:"corroboration_weight"`

	// SeparationMargin is the minimum gap between the top composite score
	// and the runner-up below which a disagreement becomes a conflict.
	SeparationMargin float64 `mapstructure:"separation_margin"`

	// Mode thresholds on the winning confidence, below which a field is
	// flagged for review.
	AssistedThreshold float64 `mapstructure:"assisted_threshold"`
	ExpressThreshold  float64 `mapstructure:"express_threshold"`
}

// ClusterTunables configures person-cluster similarity.
type ClusterTunables struct {
	// NameMatchFloor is the fuzzy full-name similarity above which a pair
	// of documents earns a merge suggestion (exact matches auto-merge).
	NameMatchFloor float64 `mapstructure:"name_match_floor"`

	// SuggestFloor is the minimum overall similarity for emitting a
	// suggested merge at all.
	SuggestFloor float64 `mapstructure:"suggest_floor"`
}

// MapperTunables configures form-field matching.
type MapperTunables struct {
	// SimilarityFloor is the minimum label similarity for a fuzzy mapping
	// to be accepted; below it the form field is left unmapped.
	SimilarityFloor float64 `mapstructure:"similarity_floor"`
}

// Defaults returns the default tunables, validated against the acceptance
// scenarios.
func Defaults() Tunables {
	return Tunables{
		Reconcile: ReconcileTunables{
			ConfidenceWeight:    0.5,
			RecencyWeight:       0.2,
			CorroborationWeight: 0.3,
			SeparationMargin:    0.15,
			AssistedThreshold:   0.85,
			ExpressThreshold:    0.60,
		},
		Cluster: ClusterTunables{
			NameMatchFloor: 0.82,
			SuggestFloor:   0.50,
		},
		Mapper: MapperTunables{
			SimilarityFloor: 0.70,
		},
	}
}

// Load reads tunables from viper (env + any config file already read into
// the global viper instance), falling back to defaults for unset keys.
func Load() (Tunables, error) {
	v := viper.GetViper()
	return load(v)
}

// LoadFrom reads tunables from a specific viper instance. Used by tests.
func LoadFrom(v *viper.Viper) (Tunables, error) {
	return load(v)
}

func load(v *viper.Viper) (Tunables, error) {
	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	t := Defaults()
	setDefaults(v, t)

	if err := v.UnmarshalKey("engine", &t); err != nil {
		return Tunables{}, errors.NewConfigError("engine", "unmarshaling tunables", err)
	}

	if err := t.Validate(); err != nil {
		return Tunables{}, err
	}
	return t, nil
}

func setDefaults(v *viper.Viper, t Tunables) {
	v.SetDefault("engine.reconcile.confidence_weight", t.Reconcile.ConfidenceWeight)
	v.SetDefault("engine.reconcile.recency_weight", t.Reconcile.RecencyWeight)
	v.SetDefault("engine.reconcile.corroboration_weight", t.Reconcile.CorroborationWeight)
	v.SetDefault("engine.reconcile.separation_margin", t.Reconcile.SeparationMargin)
	v.SetDefault("engine.reconcile.assisted_threshold", t.Reconcile.AssistedThreshold)
	v.SetDefault("engine.reconcile.express_threshold", t.Reconcile.ExpressThreshold)
	v.SetDefault("engine.cluster.name_match_floor", t.Cluster.NameMatchFloor)
	v.SetDefault("engine.cluster.suggest_floor", t.Cluster.SuggestFloor)
	v.SetDefault("engine.mapper.similarity_floor", t.Mapper.SimilarityFloor)
}

// Validate checks the tunables for internal consistency.
func (t Tunables) Validate() error {
	sum := t.Reconcile.ConfidenceWeight + t.Reconcile.RecencyWeight + t.Reconcile.CorroborationWeight
	if sum <= 0 {
		return errors.NewConfigError("reconcile", "score weights must sum to a positive value", nil)
	}

	for name, val := range map[string]float64{
		"reconcile.separation_margin":  t.Reconcile.SeparationMargin,
		"reconcile.assisted_threshold": t.Reconcile.AssistedThreshold,
		"reconcile.express_threshold":  t.Reconcile.ExpressThreshold,
		"cluster.name_match_floor":     t.Cluster.NameMatchFloor,
		"cluster.suggest_floor":        t.Cluster.SuggestFloor,
		"mapper.similarity_floor":      t.Mapper.SimilarityFloor,
	} {
		if val < 0 || val > 1 {
			return errors.NewConfigError(name, "must be between 0 and 1", nil)
		}
	}
	return nil
}
