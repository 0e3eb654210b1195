package provider

import (
	"context"
	"slices"

	"github.com/rickgao/altrates/internal/connection"
	"github.com/rickgao/altrates/internal/model"
	"github.com/rickgao/altrates/internal/rates"
)

// Hook is a per-altcoin rate source.
type Hook interface {
	Altcoin() model.Code
	Setup(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Engine is the part of the rate engine hooks need.
type Engine interface {
	Currencies() model.Currencies
	Submit(source string, candidate rates.Table) error
	Report(err error, attrs ...any) bool
}

// SessionOwner is implemented by hooks that hold feed sessions.
type SessionOwner interface {
	Sessions() []*connection.Session
}

// Registry maps altcoins to their hooks.
type Registry struct {
	hooks map[model.Code]Hook
	order []model.Code
}

// NewRegistry keeps the hooks for altcoins in cs, ordered like cs.Altcoins().
// A later hook for the same altcoin replaces an earlier one.
func NewRegistry(cs model.Currencies, hooks ...Hook) *Registry {
	r := &Registry{hooks: make(map[model.Code]Hook)}
	for _, h := range hooks {
		if cs.IsAlt(h.Altcoin()) {
			r.hooks[h.Altcoin()] = h
		}
	}
	for _, alt := range cs.Altcoins() {
		if _, ok := r.hooks[alt]; ok {
			r.order = append(r.order, alt)
		}
	}
	return r
}

// Get returns the hook for alt.
func (r *Registry) Get(alt model.Code) (Hook, bool) {
	h, ok := r.hooks[alt]
	return h, ok
}

// Hooks returns the hooks in altcoin order.
func (r *Registry) Hooks() []Hook {
	out := make([]Hook, 0, len(r.order))
	for _, alt := range r.order {
		out = append(out, r.hooks[alt])
	}
	return out
}

// Altcoins returns the altcoins that have a hook.
func (r *Registry) Altcoins() []model.Code {
	return slices.Clone(r.order)
}

// Sessions returns the feed sessions of every hook.
func (r *Registry) Sessions() []*connection.Session {
	var out []*connection.Session
	for _, h := range r.Hooks() {
		if owner, ok := h.(SessionOwner); ok {
			out = append(out, owner.Sessions()...)
		}
	}
	return out
}
