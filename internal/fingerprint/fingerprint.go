package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// Store persists a fingerprint in device-local storage so repeated
// submissions from the same device carry the same identity.
type Store interface {
	Load() (string, bool)
	Save(id string) error
}

// Source yields stable device attributes used to derive a fingerprint.
// A source may fail (blocked runtime, missing API); the provider then
// moves on to the next one in its chain.
type Source interface {
	Attributes() (map[string]string, error)
}

// Provider derives and caches a device fingerprint. Strategies run in
// order: cached value, then each source until one succeeds. GetOrCreate
// never fails; the last source in the chain must be total.
type Provider struct {
	store   Store
	sources []Source
}

// NewProvider builds a provider over the given store and entropy sources.
// When no sources are supplied, the host source with a reduced fallback is used.
func NewProvider(store Store, sources ...Source) *Provider {
	if len(sources) == 0 {
		sources = []Source{HostSource{}, ReducedSource{}}
	}
	return &Provider{store: store, sources: sources}
}

// GetOrCreate returns the device fingerprint, deriving and persisting it on
// first use. Identical calls within the same storage scope return the
// identical string.
func (p *Provider) GetOrCreate() string {
	if p.store != nil {
		if id, ok := p.store.Load(); ok && id != "" {
			return id
		}
	}

	id := ""
	for _, src := range p.sources {
		attrs, err := src.Attributes()
		if err != nil || len(attrs) == 0 {
			continue
		}
		id = digest(attrs)
		break
	}
	if id == "" {
		// Every source failed; derive from the reduced set directly so
		// repeated failures still map to one identity.
		attrs, _ := ReducedSource{}.Attributes()
		id = digest(attrs)
	}

	if p.store != nil {
		_ = p.store.Save(id)
	}
	return id
}

// digest serializes attributes order-independently and hashes them into a
// short stable identifier.
func digest(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(attrs[k])
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

// HostSource gathers the richer attribute set from the running host.
type HostSource struct {
	// VisitorID, when set, contributes a fingerprinting-library visitor id.
	// Failure to obtain one is not fatal to the source.
	VisitorID func() (string, error)
}

// Attributes collects platform, locale, timezone, concurrency and hostname.
func (s HostSource) Attributes() (map[string]string, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, err
	}
	attrs := map[string]string{
		"platform":    runtime.GOOS + "/" + runtime.GOARCH,
		"hostname":    host,
		"concurrency": strconv.Itoa(runtime.NumCPU()),
		"language":    os.Getenv("LANG"),
		"timezone":    os.Getenv("TZ"),
	}
	if s.VisitorID != nil {
		if vid, err := s.VisitorID(); err == nil && vid != "" {
			attrs["visitor_id"] = vid
		}
	}
	return attrs, nil
}

// ReducedSource is the degraded fallback: a minimal attribute set that is
// always obtainable, so fingerprinting stays deterministic even when the
// richer source is blocked.
type ReducedSource struct{}

// Attributes never fails.
func (ReducedSource) Attributes() (map[string]string, error) {
	return map[string]string{
		"platform":    runtime.GOOS + "/" + runtime.GOARCH,
		"concurrency": strconv.Itoa(runtime.NumCPU()),
	}, nil
}
