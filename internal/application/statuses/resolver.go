package statuses

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"wicked-backend/internal/application/settings"
	"wicked-backend/internal/constants"

	"github.com/rs/zerolog/log"
)

// Actor is the authenticated user a capability check runs against. A zero ID
// means no authenticated user.
type Actor struct {
	ID    uint
	Roles []string
}

// Source provides the settings the resolver consumes. Version must increase
// whenever settings change so the label cache can invalidate.
type Source interface {
	Core(ctx context.Context) settings.CoreSettings
	Version() int64
}

// Option customizes a Resolver for installs with non-standard status sets.
type Option func(*Resolver)

// WithBucketOverride replaces or extends the default bucket map.
func WithBucketOverride(fn func(map[string][]string, []string) map[string][]string) Option {
	return func(r *Resolver) { r.bucketOverride = fn }
}

// WithOverdueOverride adjusts the overdue-eligible status set.
func WithOverdueOverride(fn func(def, slugs []string) []string) Option {
	return func(r *Resolver) { r.overdueOverride = fn }
}

// WithDepositOverride adjusts the deposit-required/deposit-paid status sets.
func WithDepositOverride(fn func(required, paid, slugs []string) ([]string, []string)) Option {
	return func(r *Resolver) { r.depositOverride = fn }
}

// Resolver computes capability grants and logical-to-concrete status
// mappings. It is a leaf service: it never errors, and missing
// configuration degrades to identity/empty defaults.
type Resolver struct {
	src Source

	bucketOverride  func(map[string][]string, []string) map[string][]string
	overdueOverride func(def, slugs []string) []string
	depositOverride func(required, paid, slugs []string) ([]string, []string)

	mu           sync.Mutex
	labelVersion int64
	labels       map[string]string
}

// New constructs a Resolver over the given settings source.
func New(src Source, opts ...Option) *Resolver {
	r := &Resolver{src: src, labelVersion: -1}
	for _, o := range opts {
		o(r)
	}
	return r
}

// UserHasCap reports whether the actor holds the named capability.
//
// The super-admin ID from settings is a full bypass, not an extra check: it
// short-circuits before any role lookup. Otherwise each of the actor's roles
// is checked against the role/capability matrix in order; the first grant
// wins (roles are OR-ed, never merged).
func (r *Resolver) UserHasCap(ctx context.Context, actor Actor, cap string) bool {
	if actor.ID == 0 {
		return false
	}

	cs := r.src.Core(ctx)

	if cs.SuperAdmin != 0 && actor.ID == cs.SuperAdmin {
		if cs.DebugEnabled {
			log.Info().Uint("user_id", actor.ID).Str("cap", cap).Msg("capability: super admin override")
		}
		return true
	}

	roleCaps := cs.RoleCaps
	if len(roleCaps) == 0 {
		roleCaps = constants.DefaultRoleCaps
	}

	for _, role := range actor.Roles {
		for _, granted := range roleCaps[role] {
			if granted == cap {
				if cs.DebugEnabled {
					log.Info().Uint("user_id", actor.ID).Str("cap", cap).Str("role", role).Msg("capability: granted via role")
				}
				return true
			}
		}
	}

	if cs.DebugEnabled {
		log.Info().Uint("user_id", actor.ID).Str("cap", cap).Strs("roles", actor.Roles).Msg("capability: denied")
	}
	return false
}

// StatusSlugs returns all known logical status slugs in canonical order.
func (r *Resolver) StatusSlugs() []string {
	out := make([]string, len(constants.StatusOrder))
	copy(out, constants.StatusOrder)
	return out
}

// StatusMap returns slug → display label, with settings overrides applied.
// The computed map is cached until the settings version changes.
func (r *Resolver) StatusMap(ctx context.Context) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := r.src.Version()
	if r.labels != nil && r.labelVersion == v {
		return r.labels
	}

	m := make(map[string]string, len(constants.StatusLabels))
	for slug, label := range constants.StatusLabels {
		m[slug] = label
	}
	for slug, custom := range r.src.Core(ctx).StatusLabels {
		k := NormalizeSlug(slug)
		custom = strings.TrimSpace(stripTags(custom))
		if custom != "" {
			if _, known := m[k]; known {
				m[k] = custom
			}
		}
	}

	r.labels = m
	r.labelVersion = v
	return m
}

// StatusLabel maps a status slug to its display label; unknown slugs map to
// themselves.
func (r *Resolver) StatusLabel(ctx context.Context, slug string) string {
	slug = NormalizeSlug(slug)
	if label, ok := r.StatusMap(ctx)[slug]; ok {
		return label
	}
	return slug
}

// BucketMap returns logical status → concrete storage statuses used for
// queries. "temp" also surfaces drafts; every known slug has an identity
// entry.
func (r *Resolver) BucketMap() map[string][]string {
	slugs := r.StatusSlugs()
	m := map[string][]string{
		constants.StatusTemp: {constants.StatusTemp, "draft", "auto-draft"},
	}
	for _, s := range slugs {
		if _, ok := m[s]; !ok {
			m[s] = []string{s}
		}
	}
	if r.bucketOverride != nil {
		m = r.bucketOverride(m, slugs)
	}
	return m
}

// ExpandStatus expands one logical status to concrete statuses, falling
// back to identity for unmapped slugs.
func (r *Resolver) ExpandStatus(status string) []string {
	if set, ok := r.BucketMap()[status]; ok {
		return set
	}
	return []string{status}
}

// ExpandStatuses unions the expansions of several logical statuses and
// de-duplicates. Order carries no meaning.
func (r *Resolver) ExpandStatuses(statuses []string) []string {
	bm := r.BucketMap()
	seen := make(map[string]bool)
	var out []string
	for _, s := range statuses {
		set, ok := bm[s]
		if !ok {
			set = []string{s}
		}
		for _, x := range set {
			if !seen[x] {
				seen[x] = true
				out = append(out, x)
			}
		}
	}
	return out
}

// OverdueStatuses returns the statuses eligible for overdue reporting:
// every known status except paid.
func (r *Resolver) OverdueStatuses() []string {
	slugs := r.StatusSlugs()
	var def []string
	for _, s := range slugs {
		if s != constants.StatusPaid {
			def = append(def, s)
		}
	}
	if r.overdueOverride != nil {
		def = r.overdueOverride(def, slugs)
	}
	return def
}

// DepositStatusSets identifies deposit-related statuses by their
// conventional slugs. This is a heuristic: sites with renamed deposit
// statuses get empty sets unless they install WithDepositOverride.
func (r *Resolver) DepositStatusSets() (required, paid []string) {
	slugs := r.StatusSlugs()
	for _, s := range slugs {
		switch s {
		case constants.StatusDepositRequired:
			required = append(required, s)
		case constants.StatusDepositPaid:
			paid = append(paid, s)
		}
	}
	if r.depositOverride != nil {
		required, paid = r.depositOverride(required, paid, slugs)
	}
	return required, paid
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)
var tagRe = regexp.MustCompile(`<[^>]*>`)

// NormalizeSlug canonicalizes a status slug: lowercase, hyphens for
// underscores, and only slug-safe characters.
func NormalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	return slugInvalid.ReplaceAllString(s, "")
}

// AliasStatusKeys adds underscore aliases for hyphenated status keys, so
// "deposit-paid" is also reachable as "deposit_paid" in API payloads.
func AliasStatusKeys[V any](byStatus map[string]V) map[string]V {
	out := make(map[string]V, len(byStatus))
	for k, v := range byStatus {
		out[k] = v
		if strings.Contains(k, "-") {
			out[strings.ReplaceAll(k, "-", "_")] = v
		}
	}
	return out
}

func stripTags(s string) string {
	return tagRe.ReplaceAllString(s, "")
}
