// Package synonym maps semantic roles (start-of-span, end-of-span,
// location) to ordered lists of property codes. Order encodes priority:
// resolvers take the first code present on an entity. The registry is
// read-mostly; reloads build a full snapshot off to the side and publish
// it atomically so readers never observe a partially-updated table.
package synonym

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/timepivot/internal/models"
)

// ErrUnknownRole indicates a role that was never registered. This is a
// caller/configuration defect and surfaces immediately.
var ErrUnknownRole = errors.New("unknown synonym role")

// Role is a semantic category satisfied by one of several property codes.
type Role string

const (
	RoleStart    Role = "start"
	RoleEnd      Role = "end"
	RoleLocation Role = "location"
)

// Binding ties a property code to the value kind claims under that code
// must carry.
type Binding struct {
	Code string           `yaml:"code" json:"code"`
	Kind models.ValueKind `yaml:"kind" json:"kind"`
}

// Config is the on-disk shape of the synonym table.
type Config struct {
	Roles map[Role][]Binding `yaml:"roles"`
}

// Snapshot is one immutable version of the synonym table.
type Snapshot struct {
	Version string
	roles   map[Role][]Binding
	byCode  map[string]models.ValueKind
}

// Resolve returns the ordered bindings for a role.
func (s *Snapshot) Resolve(role Role) ([]Binding, error) {
	bindings, ok := s.roles[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return bindings, nil
}

// DeclaredKind returns the value kind a property code is registered with,
// or false if the code appears in no role.
func (s *Snapshot) DeclaredKind(code string) (models.ValueKind, bool) {
	k, ok := s.byCode[code]
	return k, ok
}

// Registry holds the current snapshot and notifies subscribers on swap.
type Registry struct {
	current atomic.Pointer[Snapshot]

	mu   sync.Mutex
	subs []chan string
}

// New creates a registry initialized with cfg.
func New(cfg Config) (*Registry, error) {
	r := &Registry{}
	if err := r.Load(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Snapshot returns the current table version. The returned snapshot is
// immutable and stays consistent for the caller even across reloads.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Load validates cfg and swaps it in as the new snapshot. On any
// validation error the previous snapshot stays active untouched.
func (r *Registry) Load(cfg Config) error {
	snap, err := buildSnapshot(cfg)
	if err != nil {
		return err
	}
	r.current.Store(snap)
	r.notify(snap.Version)
	return nil
}

// LoadYAML parses and loads a YAML synonym table.
func (r *Registry) LoadYAML(data []byte) error {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse synonym config: %w", err)
	}
	return r.Load(cfg)
}

// Subscribe returns a channel receiving the version string of every newly
// published snapshot. Delivery is advisory: slow consumers miss versions
// rather than block a reload.
func (r *Registry) Subscribe() <-chan string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan string, 4)
	r.subs = append(r.subs, ch)
	return ch
}

func (r *Registry) notify(version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- version:
		default:
		}
	}
}

func buildSnapshot(cfg Config) (*Snapshot, error) {
	if len(cfg.Roles) == 0 {
		return nil, fmt.Errorf("synonym config has no roles")
	}
	snap := &Snapshot{
		Version: uuid.NewString(),
		roles:   make(map[Role][]Binding, len(cfg.Roles)),
		byCode:  make(map[string]models.ValueKind),
	}
	for role, bindings := range cfg.Roles {
		if len(bindings) == 0 {
			return nil, fmt.Errorf("role %q has no property codes", role)
		}
		seen := make(map[string]bool, len(bindings))
		out := make([]Binding, 0, len(bindings))
		for _, b := range bindings {
			if b.Code == "" {
				return nil, fmt.Errorf("role %q has a binding with empty code", role)
			}
			if seen[b.Code] {
				return nil, fmt.Errorf("role %q lists %s twice", role, b.Code)
			}
			seen[b.Code] = true
			if b.Kind == "" {
				return nil, fmt.Errorf("role %q binding %s has no value kind", role, b.Code)
			}
			if declared, ok := snap.byCode[b.Code]; ok && declared != b.Kind {
				return nil, fmt.Errorf("property %s declared as both %s and %s", b.Code, declared, b.Kind)
			}
			snap.byCode[b.Code] = b.Kind
			out = append(out, b)
		}
		snap.roles[role] = out
	}
	return snap, nil
}

// Default returns the built-in synonym table: the property codes that can
// stand in for a start date, an end date, or a location on upstream
// entities. See https://www.wikidata.org/wiki/Property:{code}.
func Default() Config {
	return Config{Roles: map[Role][]Binding{
		RoleStart: {
			{Code: "P580", Kind: models.KindIntervalEndpoint}, // start time
			{Code: "P569", Kind: models.KindInstant},          // date of birth
			{Code: "P571", Kind: models.KindInstant},          // inception
			{Code: "P585", Kind: models.KindInstant},          // point in time
			{Code: "P1619", Kind: models.KindInstant},         // date of official opening
			{Code: "P2031", Kind: models.KindInstant},         // work period start
			{Code: "P1249", Kind: models.KindInstant},         // earliest written record
			{Code: "P1319", Kind: models.KindInstant},         // earliest date
		},
		RoleEnd: {
			{Code: "P582", Kind: models.KindIntervalEndpoint}, // end time
			{Code: "P570", Kind: models.KindInstant},          // date of death
			{Code: "P576", Kind: models.KindInstant},          // dissolved or abolished
			{Code: "P2032", Kind: models.KindInstant},         // work period end
			{Code: "P2669", Kind: models.KindInstant},         // discontinued
			{Code: "P1326", Kind: models.KindInstant},         // latest date
		},
		RoleLocation: {
			{Code: "P625", Kind: models.KindCoordinate}, // coordinate location
			{Code: "P276", Kind: models.KindEntityRef},  // location
			{Code: "P19", Kind: models.KindEntityRef},   // place of birth
			{Code: "P131", Kind: models.KindEntityRef},  // administrative territory
			{Code: "P17", Kind: models.KindEntityRef},   // country
		},
	}}
}
