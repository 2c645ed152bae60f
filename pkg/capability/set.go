// Package capability models the UI capability set (menus, feature flags,
// data scope) as typed values validated once at the data-layer boundary,
// instead of duck-typed lookups at every call site.
package capability

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Feature is a feature-flag key.
type Feature string

// Menu is a navigation menu key.
type Menu string

// DataScope bounds which tenants' data the session may see.
type DataScope string

const (
	ScopeTenant DataScope = "tenant"
	ScopeGlobal DataScope = "global"
)

// ErrInvalidCapabilities indicates the capability payload failed boundary
// validation.
var ErrInvalidCapabilities = errors.New("invalid capabilities payload")

// Set is an immutable capability set for one session.
type Set struct {
	features map[Feature]struct{}
	menus    map[Menu]struct{}
	scope    DataScope
}

// wireSet is the transport shape of the capability resource.
type wireSet struct {
	Features  []string `json:"features"`
	Menus     []string `json:"menus"`
	DataScope string   `json:"data_scope"`
}

// Decode parses and validates a capability payload. Validation happens here,
// once; lookups afterwards cannot fail.
func Decode(data []byte) (*Set, error) {
	var wire wireSet
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCapabilities, err)
	}

	scope := DataScope(wire.DataScope)
	if scope != ScopeTenant && scope != ScopeGlobal {
		return nil, fmt.Errorf("%w: unknown data scope %q", ErrInvalidCapabilities, wire.DataScope)
	}

	set := &Set{
		features: make(map[Feature]struct{}, len(wire.Features)),
		menus:    make(map[Menu]struct{}, len(wire.Menus)),
		scope:    scope,
	}

	for _, feature := range wire.Features {
		if feature == "" {
			return nil, fmt.Errorf("%w: empty feature key", ErrInvalidCapabilities)
		}

		set.features[Feature(feature)] = struct{}{}
	}

	for _, menu := range wire.Menus {
		if menu == "" {
			return nil, fmt.Errorf("%w: empty menu key", ErrInvalidCapabilities)
		}

		set.menus[Menu(menu)] = struct{}{}
	}

	return set, nil
}

// HasFeature reports whether the feature flag is granted.
func (s *Set) HasFeature(feature Feature) bool {
	_, ok := s.features[feature]

	return ok
}

// HasMenu reports whether the menu entry is granted.
func (s *Set) HasMenu(menu Menu) bool {
	_, ok := s.menus[menu]

	return ok
}

// Scope returns the data scope of the session.
func (s *Set) Scope() DataScope {
	return s.scope
}
