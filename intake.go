// Package intake is the document-intake engine: it merges field
// observations extracted from multiple documents into canonical per-person
// profiles, detects conflicts that need human resolution, clusters
// documents into per-person groups, and maps canonical fields onto the
// fields of arbitrary target forms.
//
// A Session owns the state of one intake: the observation store, the person
// grouping, the per-cluster reconciliation results, and the per-form
// mapping sets. The engines underneath (cluster, reconcile, mapper) are
// pure and synchronous; the Session adds the application contract around
// them: a mutex, the review surface, and the collaborator hooks for
// persistence and form schemas.
package intake

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/docufill/intake/internal/config"
	"github.com/docufill/intake/pkg/cluster"
	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
	"github.com/docufill/intake/pkg/logging"
	"github.com/docufill/intake/pkg/mapper"
	"github.com/docufill/intake/pkg/observation"
	"github.com/docufill/intake/pkg/reconcile"
)

// ProfileStore persists reconciled profiles. Implemented by the
// application's storage layer.
type ProfileStore interface {
	SaveReconciledProfile(ctx context.Context, clusterID string, profileFields map[fields.ID]reconcile.Field) error
}

// FormSchemaSource resolves target-form schemas by form ID. Implemented by
// the application's form catalog.
type FormSchemaSource interface {
	GetTargetFormSchema(ctx context.Context, formID string) (mapper.TargetForm, error)
}

// Session is one intake in progress. Safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	log      zerolog.Logger
	mode     reconcile.Mode
	tunables config.Tunables

	reconciler *reconcile.Engine
	clusterer  *cluster.Engine
	formMapper *mapper.Engine

	store       *observation.Store
	grouping    *cluster.Grouping
	suggestions []cluster.SuggestedMerge
	results     map[string]*reconcile.Result
	mappings    map[string]*mapper.MappingSet

	profiles ProfileStore
	forms    FormSchemaSource
}

// Option configures a Session.
type Option func(*Session) error

// WithMode sets the review mode for reconciliation.
func WithMode(mode reconcile.Mode) Option {
	return func(s *Session) error {
		if mode != reconcile.ModeAssisted && mode != reconcile.ModeExpress {
			return errors.NewValidationError("mode", string(mode), "must be assisted or express")
		}
		s.mode = mode
		return nil
	}
}

// WithTunables overrides the engine tunables.
func WithTunables(t config.Tunables) Option {
	return func(s *Session) error {
		if err := t.Validate(); err != nil {
			return err
		}
		s.tunables = t
		return nil
	}
}

// WithLogger sets the session logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) error {
		s.log = log
		return nil
	}
}

// WithProfileStore sets the persistence collaborator used by SaveProfile.
func WithProfileStore(store ProfileStore) Option {
	return func(s *Session) error {
		s.profiles = store
		return nil
	}
}

// WithFormSchemaSource sets the schema collaborator used by AutoMap.
func WithFormSchemaSource(src FormSchemaSource) Option {
	return func(s *Session) error {
		s.forms = src
		return nil
	}
}

// NewSession creates an empty intake session.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		log:      *logging.Default(),
		mode:     reconcile.ModeAssisted,
		tunables: config.Defaults(),
		store:    observation.NewStore(),
		results:  make(map[string]*reconcile.Result),
		mappings: make(map[string]*mapper.MappingSet),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	var err error
	if s.reconciler, err = reconcile.New(
		reconcile.WithMode(s.mode),
		reconcile.WithTunables(s.tunables.Reconcile),
	); err != nil {
		return nil, err
	}
	if s.clusterer, err = cluster.New(cluster.WithTunables(s.tunables.Cluster)); err != nil {
		return nil, err
	}
	if s.formMapper, err = mapper.New(mapper.WithTunables(s.tunables.Mapper)); err != nil {
		return nil, err
	}
	return s, nil
}

// Mode returns the session's review mode.
func (s *Session) Mode() reconcile.Mode {
	return s.mode
}

// SaveProfile hands a cluster's reconciled profile to the persistence
// collaborator.
func (s *Session) SaveProfile(ctx context.Context, clusterID string) error {
	if s.profiles == nil {
		return errors.NewConfigError("session", "no profile store configured", nil)
	}

	s.mu.RLock()
	result, ok := s.results[clusterID]
	if !ok {
		s.mu.RUnlock()
		return errors.NewNotFoundError("cluster", clusterID)
	}
	snapshot := make(map[fields.ID]reconcile.Field, len(result.Profile.Fields))
	for id, f := range result.Profile.Fields {
		snapshot[id] = f
	}
	s.mu.RUnlock()

	return s.profiles.SaveReconciledProfile(ctx, clusterID, snapshot)
}

// AutoMap loads a target form's schema from the schema collaborator and
// computes its auto-mapping, replacing any previous mapping set for the
// form.
func (s *Session) AutoMap(ctx context.Context, formID string) ([]mapper.Mapping, error) {
	if s.forms == nil {
		return nil, errors.NewConfigError("session", "no form schema source configured", nil)
	}

	form, err := s.forms.GetTargetFormSchema(ctx, formID)
	if err != nil {
		return nil, err
	}
	set, err := s.formMapper.Map(form)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// Manual assignments on the previous set survive recomputation. Carry
	// them over before the new set replaces the old, then recompute the
	// rest around them.
	if old, ok := s.mappings[formID]; ok {
		carried := false
		for _, m := range old.Mappings() {
			if !m.ManualOverride {
				continue
			}
			// A NotFound here means the form field left the schema.
			if err := set.Set(m.FormFieldID, m.Canonical); err == nil {
				carried = true
			}
		}
		if carried {
			set.Remap()
		}
	}
	s.mappings[formID] = set
	s.mu.Unlock()

	s.log.Debug().Str("form", formID).Int("fields", len(form.Fields)).Msg("auto-mapped form")
	return set.Mappings(), nil
}
