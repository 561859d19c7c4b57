package notifications

import (
	"context"
	"regexp"
	"strings"

	"wicked-backend/internal/application/settings"
	"wicked-backend/internal/application/statuses"
	"wicked-backend/internal/constants"
	"wicked-backend/internal/events"

	"github.com/google/uuid"
)

// MatchType tags the rule's status predicate. One variant today; keeping it
// typed leaves room for more without stringly dispatch at the call sites.
type MatchType string

const MatchStatusEqualsAny MatchType = "status_equals_any"

// Advanced date fields and comparison operators.
const (
	DateFieldStart = "start_date"
	DateFieldDue   = "due_date"
	DateFieldPost  = "post_date"

	OpAfter  = ">"
	OpBefore = "<"
)

// Rule caps by license tier.
const (
	maxRulesFree     = 2
	maxRulesLicensed = 100
)

type Match struct {
	Type   MatchType `json:"type"`
	Values []string  `json:"values"`
}

// Advanced is the optional secondary filter, AND-ed with the status match.
type Advanced struct {
	Enabled        bool   `json:"enabled"`
	DateField      string `json:"date_field"`
	Op             string `json:"op"`
	Days           int    `json:"days"`
	RequireDeposit bool   `json:"require_deposit"`
}

type Template struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type Rule struct {
	ID       string   `json:"id"`
	Enabled  bool     `json:"enabled"`
	Match    Match    `json:"match"`
	Advanced Advanced `json:"advanced"`
	Template Template `json:"template"`
}

// StoredSettings is the persisted notifications blob. Rules is a pointer so
// an absent key (legacy installs) is distinguishable from an empty list.
type StoredSettings struct {
	Rules        *[]Rule             `json:"rules,omitempty"`
	NotifyOnSent bool                `json:"notify_on_sent,omitempty"`
	NotifyOnPaid bool                `json:"notify_on_paid,omitempty"`
	SentStatus   string              `json:"sent_status,omitempty"`
	PaidStatus   string              `json:"paid_status,omitempty"`
	Templates    map[string]Template `json:"templates,omitempty"`
	Advanced     map[string]Advanced `json:"advanced,omitempty"`
}

// LicenseChecker gates the rule cap. The free tier allows two rules.
type LicenseChecker interface {
	Valid() bool
}

// KeyLicense treats any non-empty license key as a valid entitlement.
type KeyLicense struct {
	Key string
}

func (l KeyLicense) Valid() bool {
	return strings.TrimSpace(l.Key) != ""
}

// Rules loads, sanitizes, and persists notification rules. Effective rule
// resolution is one ordered pipeline: configured rules, then
// legacy-settings synthesis, then built-in defaults, then the license cap.
type Rules struct {
	Settings *settings.Service
	License  LicenseChecker
	Bus      *events.Manager
}

// MaxRules returns the license-tier rule cap.
func (r *Rules) MaxRules() int {
	if r.License != nil && r.License.Valid() {
		return maxRulesLicensed
	}
	return maxRulesFree
}

func (r *Rules) load(ctx context.Context) StoredSettings {
	var s StoredSettings
	// A corrupt blob degrades to legacy/default resolution rather than failing.
	_ = r.Settings.Get(ctx, settings.KeyNotifications, &s)
	return s
}

// Effective returns the rules the engine should evaluate: sanitized, in
// configured order, capped to the license tier.
func (r *Rules) Effective(ctx context.Context) []Rule {
	s := r.load(ctx)

	var rules []Rule
	if s.Rules != nil {
		rules = sanitizeAll(*s.Rules)
	} else {
		rules = legacyRules(s)
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	if max := r.MaxRules(); len(rules) > max {
		rules = rules[:max]
	}
	return rules
}

// Stored returns the raw persisted rules without the license cap. Resend
// uses this so markers clear even for rules above the cap.
func (r *Rules) Stored(ctx context.Context) []Rule {
	s := r.load(ctx)
	if s.Rules != nil {
		return *s.Rules
	}
	return legacyRules(s)
}

// Save sanitizes and persists a rule list, enforcing the license cap in
// submitted order. Legacy flat fields in the payload are migrated when no
// rules are posted. Returns the persisted rules and the cap.
func (r *Rules) Save(ctx context.Context, payload StoredSettings) ([]Rule, int, error) {
	var raw []Rule
	if payload.Rules != nil {
		raw = *payload.Rules
	}
	if len(raw) == 0 && (payload.NotifyOnSent || payload.NotifyOnPaid) {
		raw = legacyRules(payload)
	}

	rules := sanitizeAll(raw)
	if rules == nil {
		// Keep the persisted key as [] so an explicitly emptied list stays
		// distinguishable from the legacy absent-key blob after reload.
		rules = []Rule{}
	}
	max := r.MaxRules()
	if len(rules) > max {
		rules = rules[:max]
	}

	// Persist only the rules model; other blob fields survive untouched.
	stored := r.load(ctx)
	stored.Rules = &rules
	if err := r.Settings.Put(ctx, settings.KeyNotifications, stored); err != nil {
		return nil, max, err
	}
	if r.Bus != nil {
		r.Bus.Emit(events.TypeSettingsSaved, events.SettingsSaved{})
	}
	return rules, max, nil
}

// SanitizeRule normalizes a rule, reporting false for rules that must be
// dropped (unknown match type, no status values). Sanitizing an already
// sanitized rule is an identity.
func SanitizeRule(r Rule) (Rule, bool) {
	id := sanitizeID(r.ID)
	if id == "" {
		id = "rule_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}

	if r.Match.Type != MatchStatusEqualsAny {
		return Rule{}, false
	}
	seen := make(map[string]bool)
	var values []string
	for _, v := range r.Match.Values {
		s := statuses.NormalizeSlug(v)
		if s != "" && !seen[s] {
			seen[s] = true
			values = append(values, s)
		}
	}
	if len(values) == 0 {
		return Rule{}, false
	}

	adv := r.Advanced
	switch adv.DateField {
	case DateFieldStart, DateFieldDue, DateFieldPost:
	default:
		adv.DateField = DateFieldStart
	}
	switch adv.Op {
	case OpAfter, OpBefore:
	default:
		adv.Op = OpAfter
	}
	if adv.Days < 0 {
		adv.Days = 0
	}

	subject := strings.TrimSpace(stripTags(r.Template.Subject))
	if subject == "" {
		subject = "Invoice Update"
	}
	html := scrubHTML(r.Template.HTML)
	if html == "" {
		html = "<p>{{invoice_title}} status is {{status}}.</p>"
	}

	return Rule{
		ID:       id,
		Enabled:  r.Enabled,
		Match:    Match{Type: MatchStatusEqualsAny, Values: values},
		Advanced: adv,
		Template: Template{Subject: subject, HTML: html},
	}, true
}

func sanitizeAll(in []Rule) []Rule {
	var out []Rule
	for _, r := range in {
		if s, ok := SanitizeRule(r); ok {
			out = append(out, s)
		}
	}
	return out
}

// DefaultRules returns the two built-in rules used when nothing is
// configured: "sent" on pending and "paid" on paid.
func DefaultRules() []Rule {
	sent, _ := SanitizeRule(Rule{
		ID:      "free_sent",
		Enabled: true,
		Match:   Match{Type: MatchStatusEqualsAny, Values: []string{constants.StatusPending}},
		Advanced: Advanced{
			DateField: DateFieldStart,
			Op:        OpAfter,
			Days:      5,
		},
		Template: Template{
			Subject: "Invoice {{invoice_id}} sent",
			HTML:    `<p>Invoice {{invoice_id}} has been sent. <a href="{{view_url}}">View</a></p>`,
		},
	})
	paid, _ := SanitizeRule(Rule{
		ID:      "free_paid",
		Enabled: true,
		Match:   Match{Type: MatchStatusEqualsAny, Values: []string{constants.StatusPaid}},
		Advanced: Advanced{
			DateField: DateFieldStart,
			Op:        OpAfter,
			Days:      5,
		},
		Template: Template{
			Subject: "Invoice {{invoice_id}} marked paid",
			HTML:    `<p>Invoice {{invoice_id}} is paid. Balance: ${{balance}}. <a href="{{view_url}}">View</a></p>`,
		},
	})
	return []Rule{sent, paid}
}

// legacyRules synthesizes the two pre-rules-model rules from flat settings
// so old installs keep notifying without migration.
func legacyRules(s StoredSettings) []Rule {
	defaults := DefaultRules()

	sentStatus := s.SentStatus
	if sentStatus == "" {
		sentStatus = constants.StatusPending
	}
	paidStatus := s.PaidStatus
	if paidStatus == "" {
		paidStatus = constants.StatusPaid
	}

	sent := Rule{
		ID:       "free_sent",
		Enabled:  s.NotifyOnSent,
		Match:    Match{Type: MatchStatusEqualsAny, Values: []string{sentStatus}},
		Advanced: s.Advanced["sent"],
		Template: templateOr(s.Templates["sent"], defaults[0].Template),
	}
	paid := Rule{
		ID:       "free_paid",
		Enabled:  s.NotifyOnPaid,
		Match:    Match{Type: MatchStatusEqualsAny, Values: []string{paidStatus}},
		Advanced: s.Advanced["paid"],
		Template: templateOr(s.Templates["paid"], defaults[1].Template),
	}

	return sanitizeAll([]Rule{sent, paid})
}

func templateOr(t, def Template) Template {
	if t.Subject == "" {
		t.Subject = def.Subject
	}
	if t.HTML == "" {
		t.HTML = def.HTML
	}
	return t
}

var idInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)
var tagRe = regexp.MustCompile(`<[^>]*>`)
var scriptRe = regexp.MustCompile(`(?is)<script.*?</script>`)

// sanitizeID keeps rule identifiers to slug-safe characters, underscores
// included (unlike status slugs).
func sanitizeID(s string) string {
	return idInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

func stripTags(s string) string {
	return tagRe.ReplaceAllString(s, "")
}

// scrubHTML drops script blocks from rule body templates. Everything else
// is preserved as authored.
func scrubHTML(s string) string {
	return strings.TrimSpace(scriptRe.ReplaceAllString(s, ""))
}
