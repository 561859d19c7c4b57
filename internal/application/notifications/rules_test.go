package notifications

import (
	"context"
	"strings"
	"testing"

	"wicked-backend/internal/application/settings"
	"wicked-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRules(t *testing.T, license LicenseChecker) *Rules {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Setting{}))
	return &Rules{Settings: &settings.Service{DB: db}, License: license}
}

func TestSanitizeRule_DropsUnknownMatchType(t *testing.T) {
	_, ok := SanitizeRule(Rule{Match: Match{Type: "status_regex", Values: []string{"paid"}}})
	assert.False(t, ok)
}

func TestSanitizeRule_DropsEmptyValues(t *testing.T) {
	_, ok := SanitizeRule(Rule{Match: Match{Type: MatchStatusEqualsAny, Values: []string{"", "   "}}})
	assert.False(t, ok)
}

func TestSanitizeRule_NormalizesAndDefaults(t *testing.T) {
	r, ok := SanitizeRule(Rule{
		Enabled: true,
		Match:   Match{Type: MatchStatusEqualsAny, Values: []string{"Deposit_Paid", "deposit-paid", "PAID"}},
		Advanced: Advanced{
			Enabled:   true,
			DateField: "created_on", // unknown, replaced
			Op:        ">=",         // unknown, replaced
			Days:      -3,           // clamped
		},
		Template: Template{Subject: "<b>Hi</b>", HTML: ""},
	})
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(r.ID, "rule_"))
	assert.Len(t, r.ID, len("rule_")+8)
	assert.Equal(t, []string{"deposit-paid", "paid"}, r.Match.Values)
	assert.Equal(t, DateFieldStart, r.Advanced.DateField)
	assert.Equal(t, OpAfter, r.Advanced.Op)
	assert.Equal(t, 0, r.Advanced.Days)
	assert.Equal(t, "Hi", r.Template.Subject)
	assert.Equal(t, "<p>{{invoice_title}} status is {{status}}.</p>", r.Template.HTML)
}

func TestSanitizeRule_Idempotent(t *testing.T) {
	first, ok := SanitizeRule(Rule{
		ID:      "My Rule!",
		Enabled: true,
		Match:   Match{Type: MatchStatusEqualsAny, Values: []string{"pending"}},
		Template: Template{
			Subject: "Invoice {{invoice_id}}",
			HTML:    "<p>hello</p>",
		},
	})
	require.True(t, ok)
	second, ok := SanitizeRule(first)
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestSanitizeRule_ScrubsScriptBlocks(t *testing.T) {
	r, ok := SanitizeRule(Rule{
		Match:    Match{Type: MatchStatusEqualsAny, Values: []string{"paid"}},
		Template: Template{HTML: `<p>ok</p><script>alert("x")</script>`},
	})
	require.True(t, ok)
	assert.Equal(t, "<p>ok</p>", r.Template.HTML)
}

func TestEffective_DefaultsWhenUnconfigured(t *testing.T) {
	r := setupRules(t, nil)
	rules := r.Effective(context.Background())
	require.Len(t, rules, 2)
	assert.Equal(t, "free_sent", rules[0].ID)
	assert.Equal(t, []string{"pending"}, rules[0].Match.Values)
	assert.Equal(t, "free_paid", rules[1].ID)
	assert.Equal(t, []string{"paid"}, rules[1].Match.Values)
}

func TestEffective_LegacyFlatSettings(t *testing.T) {
	r := setupRules(t, nil)
	err := r.Settings.Put(context.Background(), settings.KeyNotifications, map[string]interface{}{
		"notify_on_sent": true,
		"sent_status":    "deposit-required",
		"templates": map[string]interface{}{
			"sent": map[string]string{"subject": "Deposit due", "html": "<p>{{balance}}</p>"},
		},
	})
	require.NoError(t, err)

	rules := r.Effective(context.Background())
	require.Len(t, rules, 2)
	assert.Equal(t, "free_sent", rules[0].ID)
	assert.True(t, rules[0].Enabled)
	assert.Equal(t, []string{"deposit-required"}, rules[0].Match.Values)
	assert.Equal(t, "Deposit due", rules[0].Template.Subject)
	// The paid half is synthesized too, just disabled.
	assert.Equal(t, "free_paid", rules[1].ID)
	assert.False(t, rules[1].Enabled)
}

func TestSaveAndEffective_RoundTrip(t *testing.T) {
	r := setupRules(t, nil)
	in := []Rule{{
		ID:       "overdue_chase",
		Enabled:  true,
		Match:    Match{Type: MatchStatusEqualsAny, Values: []string{"pending"}},
		Advanced: Advanced{Enabled: true, DateField: DateFieldDue, Op: OpAfter, Days: 7},
		Template: Template{Subject: "Overdue: {{invoice_title}}", HTML: "<p>{{balance}} outstanding</p>"},
	}}
	saved, max, err := r.Save(context.Background(), StoredSettings{Rules: &in})
	require.NoError(t, err)
	assert.Equal(t, 2, max)
	require.Len(t, saved, 1)

	rules := r.Effective(context.Background())
	require.Len(t, rules, 1)
	assert.Equal(t, "overdue_chase", rules[0].ID)
	assert.Equal(t, DateFieldDue, rules[0].Advanced.DateField)
	assert.Equal(t, 7, rules[0].Advanced.Days)
}

func TestSave_FreeTierCapsAtTwo(t *testing.T) {
	r := setupRules(t, nil)
	in := make([]Rule, 5)
	for i := range in {
		in[i] = Rule{
			ID:      "r" + string(rune('a'+i)),
			Enabled: true,
			Match:   Match{Type: MatchStatusEqualsAny, Values: []string{"pending"}},
		}
	}
	saved, max, err := r.Save(context.Background(), StoredSettings{Rules: &in})
	require.NoError(t, err)
	assert.Equal(t, 2, max)
	assert.Len(t, saved, 2)
	assert.Equal(t, "ra", saved[0].ID)
	assert.Equal(t, "rb", saved[1].ID)
}

func TestSave_LicensedCap(t *testing.T) {
	r := setupRules(t, KeyLicense{Key: "abc-123"})
	assert.Equal(t, 100, r.MaxRules())

	in := make([]Rule, 10)
	for i := range in {
		in[i] = Rule{
			Enabled: true,
			Match:   Match{Type: MatchStatusEqualsAny, Values: []string{"paid"}},
		}
	}
	saved, _, err := r.Save(context.Background(), StoredSettings{Rules: &in})
	require.NoError(t, err)
	assert.Len(t, saved, 10)
}

func TestSave_EmptyListPersistsEmpty(t *testing.T) {
	r := setupRules(t, nil)
	empty := []Rule{}
	_, _, err := r.Save(context.Background(), StoredSettings{Rules: &empty})
	require.NoError(t, err)

	// Stored key now exists with an empty list, so defaults kick back in
	// through Effective but Stored reports the truth.
	assert.Empty(t, r.Stored(context.Background()))
	eff := r.Effective(context.Background())
	require.Len(t, eff, 2)
	// Built-in defaults, not the disabled legacy pair.
	assert.True(t, eff[0].Enabled)
	assert.True(t, eff[1].Enabled)
}

func TestSave_AllRulesInvalidPersistsEmpty(t *testing.T) {
	r := setupRules(t, nil)
	in := []Rule{
		{Enabled: true, Match: Match{Type: "bogus", Values: []string{"paid"}}},
		{Enabled: true, Match: Match{Type: MatchStatusEqualsAny}},
	}
	saved, _, err := r.Save(context.Background(), StoredSettings{Rules: &in})
	require.NoError(t, err)
	assert.Empty(t, saved)

	assert.Empty(t, r.Stored(context.Background()))
	eff := r.Effective(context.Background())
	require.Len(t, eff, 2)
	assert.True(t, eff[0].Enabled)
	assert.True(t, eff[1].Enabled)
}

func TestStored_UncappedForResend(t *testing.T) {
	r := setupRules(t, KeyLicense{Key: "k"})
	in := make([]Rule, 4)
	for i := range in {
		in[i] = Rule{Enabled: true, Match: Match{Type: MatchStatusEqualsAny, Values: []string{"paid"}}}
	}
	_, _, err := r.Save(context.Background(), StoredSettings{Rules: &in})
	require.NoError(t, err)

	// Drop back to the free tier; Effective caps, Stored does not.
	r.License = nil
	assert.Len(t, r.Effective(context.Background()), 2)
	assert.Len(t, r.Stored(context.Background()), 4)
}

func TestKeyLicense(t *testing.T) {
	assert.False(t, KeyLicense{}.Valid())
	assert.False(t, KeyLicense{Key: "   "}.Valid())
	assert.True(t, KeyLicense{Key: "x"}.Valid())
}
