// Package version reads the running app's version/build identifiers and persists the last
// known pair across runs.
package version

import (
	"context"
	"fmt"
	"log"
	"strings"

	"appstatus/internal/kvstore"
)

// Keys under which the last known descriptor is persisted.
const (
	VersionKey     = "VersionDescriptor"
	BuildNumberKey = "BuildNumberDescriptor"
)

// unknown is reported for any identifier the host cannot provide.
const unknown = "0"

// debugPrefix marks non-release builds in aggregated telemetry.
const debugPrefix = "B-"

// Descriptor identifies a build of the app. Fields are opaque strings compared lexicographically.
type Descriptor struct {
	Version     string
	BuildNumber string
}

// String returns the human-readable "version (build)" form without the debug marker.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s)", strings.TrimSpace(d.Version), d.BuildNumber)
}

// Newer reports whether d is newer than prior: version or build compares greater as strings.
func (d Descriptor) Newer(prior Descriptor) bool {
	return d.Version > prior.Version || d.BuildNumber > prior.BuildNumber
}

// HostInfo provides read-only build metadata of the host app. Lookups are synchronous and cheap.
type HostInfo interface {
	// ShortVersion returns the short version string; ok false when unavailable.
	ShortVersion() (string, bool)
	// BuildNumber returns the build identifier; ok false when unavailable.
	BuildNumber() (string, bool)
	// IsRelease reports whether this is a release build.
	IsRelease() bool
}

// StaticHostInfo is a HostInfo backed by fixed values (config or link-time variables).
// Empty strings are treated as unavailable.
type StaticHostInfo struct {
	Version string
	Build   string
	Release bool
}

// ShortVersion implements HostInfo.
func (h StaticHostInfo) ShortVersion() (string, bool) { return h.Version, h.Version != "" }

// BuildNumber implements HostInfo.
func (h StaticHostInfo) BuildNumber() (string, bool) { return h.Build, h.Build != "" }

// IsRelease implements HostInfo.
func (h StaticHostInfo) IsRelease() bool { return h.Release }

// Store reads the current descriptor from the host and loads/saves the stored one.
type Store struct {
	host HostInfo
	kv   kvstore.Store
}

// NewStore returns a Store. host may be nil, in which case every identifier is "0".
func NewStore(host HostInfo, kv kvstore.Store) *Store {
	return &Store{host: host, kv: kv}
}

// Current returns the running app's descriptor. Missing identifiers default to "0"; never fails.
func (s *Store) Current() Descriptor {
	d := Descriptor{Version: unknown, BuildNumber: unknown}
	if s.host == nil {
		return d
	}
	if v, ok := s.host.ShortVersion(); ok && v != "" {
		d.Version = v
	}
	if b, ok := s.host.BuildNumber(); ok && b != "" {
		d.BuildNumber = b
	}
	return d
}

// Load returns the stored descriptor. ok is false unless both keys are present; read errors are
// logged and treated as nothing stored.
func (s *Store) Load(ctx context.Context) (Descriptor, bool) {
	if s.kv == nil {
		return Descriptor{}, false
	}
	v, ok, err := s.kv.Get(ctx, VersionKey)
	if err != nil {
		log.Printf("version: load %s: %v", VersionKey, err)
		return Descriptor{}, false
	}
	if !ok {
		return Descriptor{}, false
	}
	b, ok, err := s.kv.Get(ctx, BuildNumberKey)
	if err != nil {
		log.Printf("version: load %s: %v", BuildNumberKey, err)
		return Descriptor{}, false
	}
	if !ok {
		return Descriptor{}, false
	}
	return Descriptor{Version: v, BuildNumber: b}, true
}

// Save writes both fields unconditionally. The two writes are independent, not a transaction;
// a failure between them leaves a partial pair, which Load treats as nothing stored.
func (s *Store) Save(ctx context.Context, d Descriptor) error {
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Set(ctx, VersionKey, d.Version); err != nil {
		return fmt.Errorf("save version: %w", err)
	}
	if err := s.kv.Set(ctx, BuildNumberKey, d.BuildNumber); err != nil {
		return fmt.Errorf("save build number: %w", err)
	}
	return nil
}

// IsRelease reports the host release flag; false when no host is configured.
func (s *Store) IsRelease() bool {
	return s.host != nil && s.host.IsRelease()
}

// Format renders d for telemetry, prefixing "B-" unless release is true.
func Format(d Descriptor, release bool) string {
	if release {
		return d.String()
	}
	return debugPrefix + d.String()
}
