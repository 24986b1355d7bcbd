// Package router derives storage routing identity from a locked config. It
// holds no state and performs no I/O; it only names where chunks go and how
// an ingest run is tagged.
package router

import (
	"chunklock/internal/adapter/store"
	"chunklock/internal/domain"
)

type ShadowRouter struct {
	cfg domain.LockedConfig
}

func New(cfg domain.LockedConfig) *ShadowRouter {
	return &ShadowRouter{cfg: cfg}
}

// RetrievalTable returns the shadow table only when the caller asks for it
// and the config has been promoted to production; otherwise the primary.
func (r *ShadowRouter) RetrievalTable(useShadow bool) string {
	if useShadow && r.cfg.IsProduction && r.cfg.ShadowTable != "" {
		return r.cfg.ShadowTable
	}
	return store.PrimaryTable
}

// IngestRunID returns "{chunk_version}-{config_hash[:8]}". Both halves and
// the separating hyphen are load-bearing: the determinism manager and the
// guardrails match chunks against this exact string.
func (r *ShadowRouter) IngestRunID() string {
	return r.cfg.IngestRunID()
}
