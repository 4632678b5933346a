package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may open a websocket.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	log      *slog.Logger
}

// NewOriginPolicy builds a policy from configured origins. "*" allows any
// origin; entries that are not scheme://host are ignored.
func NewOriginPolicy(origins []string, log *slog.Logger) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}), log: log}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			p.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn("origin.invalid_config", "origin", origin)
			continue
		}
		p.allowed[normalized] = struct{}{}
	}
	return p
}

// Check is a websocket.Upgrader CheckOrigin func. Requests without an Origin
// header come from non-browser clients and are let through.
func (p *OriginPolicy) Check(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" || p.allowAll {
		return true
	}

	normalized, ok := normalizeOrigin(header)
	if ok {
		if _, exists := p.allowed[normalized]; exists {
			return true
		}
	}
	p.log.Warn("origin.blocked", "origin", header)
	return false
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
