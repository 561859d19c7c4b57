package statuses

import (
	"context"
	"testing"

	"wicked-backend/internal/application/settings"
	"wicked-backend/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	core    settings.CoreSettings
	version int64
}

func (s *stubSource) Core(ctx context.Context) settings.CoreSettings { return s.core }
func (s *stubSource) Version() int64                                 { return s.version }

func TestUserHasCap_AnonymousDenied(t *testing.T) {
	r := New(&stubSource{})
	assert.False(t, r.UserHasCap(context.Background(), Actor{}, constants.ManageWickedInvoicing))
	assert.False(t, r.UserHasCap(context.Background(), Actor{Roles: []string{"administrator"}}, constants.ManageWickedInvoicing))
}

func TestUserHasCap_SuperAdminBypassesRoles(t *testing.T) {
	r := New(&stubSource{core: settings.CoreSettings{SuperAdmin: 42}})
	// No roles at all, still granted everything.
	for _, cap := range []string{
		constants.ManageWickedInvoicing,
		constants.EditWickedSettings,
		constants.EditWickedInvoices,
		constants.ViewWickedReports,
		"some_unknown_cap",
	} {
		assert.True(t, r.UserHasCap(context.Background(), Actor{ID: 42}, cap), cap)
	}
	// Other users do not inherit the bypass.
	assert.False(t, r.UserHasCap(context.Background(), Actor{ID: 43}, constants.ManageWickedInvoicing))
}

func TestUserHasCap_DefaultRoleMatrix(t *testing.T) {
	r := New(&stubSource{})
	ctx := context.Background()

	admin := Actor{ID: 1, Roles: []string{"administrator"}}
	assert.True(t, r.UserHasCap(ctx, admin, constants.ManageWickedInvoicing))
	assert.True(t, r.UserHasCap(ctx, admin, constants.ViewWickedReports))

	editor := Actor{ID: 2, Roles: []string{"editor"}}
	assert.True(t, r.UserHasCap(ctx, editor, constants.EditWickedInvoices))
	assert.True(t, r.UserHasCap(ctx, editor, constants.ViewWickedReports))
	assert.False(t, r.UserHasCap(ctx, editor, constants.ManageWickedInvoicing))
	assert.False(t, r.UserHasCap(ctx, editor, constants.EditWickedSettings))

	subscriber := Actor{ID: 3, Roles: []string{"subscriber"}}
	assert.False(t, r.UserHasCap(ctx, subscriber, constants.ViewWickedReports))
}

func TestUserHasCap_RolesAreORed(t *testing.T) {
	r := New(&stubSource{})
	// A role with no grants does not subtract from another role's grants.
	actor := Actor{ID: 4, Roles: []string{"subscriber", "editor"}}
	assert.True(t, r.UserHasCap(context.Background(), actor, constants.EditWickedInvoices))
}

func TestUserHasCap_CustomMatrixReplacesDefaults(t *testing.T) {
	r := New(&stubSource{core: settings.CoreSettings{
		RoleCaps: map[string][]string{"auditor": {constants.ViewWickedReports}},
	}})
	ctx := context.Background()
	assert.True(t, r.UserHasCap(ctx, Actor{ID: 5, Roles: []string{"auditor"}}, constants.ViewWickedReports))
	// With a custom matrix present, the defaults no longer apply.
	assert.False(t, r.UserHasCap(ctx, Actor{ID: 6, Roles: []string{"administrator"}}, constants.ManageWickedInvoicing))
}

func TestExpandStatus_TempSurfacesDrafts(t *testing.T) {
	r := New(&stubSource{})
	assert.ElementsMatch(t, []string{"temp", "draft", "auto-draft"}, r.ExpandStatus(constants.StatusTemp))
	assert.Equal(t, []string{"paid"}, r.ExpandStatus(constants.StatusPaid))
	// Unknown slugs fall back to identity.
	assert.Equal(t, []string{"mystery"}, r.ExpandStatus("mystery"))
}

func TestExpandStatuses_UnionDeduplicates(t *testing.T) {
	r := New(&stubSource{})
	out := r.ExpandStatuses([]string{"temp", "temp", "pending", "draft"})
	assert.ElementsMatch(t, []string{"temp", "draft", "auto-draft", "pending"}, out)
}

func TestExpandStatuses_Idempotent(t *testing.T) {
	r := New(&stubSource{})
	once := r.ExpandStatuses([]string{"temp", "paid"})
	twice := r.ExpandStatuses(once)
	assert.ElementsMatch(t, once, twice)
}

func TestOverdueStatuses_ExcludesPaid(t *testing.T) {
	r := New(&stubSource{})
	out := r.OverdueStatuses()
	assert.NotContains(t, out, constants.StatusPaid)
	assert.Contains(t, out, constants.StatusPending)
	assert.Contains(t, out, constants.StatusDepositRequired)
	assert.Len(t, out, len(constants.StatusOrder)-1)
}

func TestDepositStatusSets(t *testing.T) {
	r := New(&stubSource{})
	required, paid := r.DepositStatusSets()
	assert.Equal(t, []string{constants.StatusDepositRequired}, required)
	assert.Equal(t, []string{constants.StatusDepositPaid}, paid)
}

func TestDepositStatusSets_Override(t *testing.T) {
	r := New(&stubSource{}, WithDepositOverride(func(required, paid, slugs []string) ([]string, []string) {
		return append(required, "retainer-due"), paid
	}))
	required, _ := r.DepositStatusSets()
	assert.Contains(t, required, "retainer-due")
}

func TestStatusMap_LabelOverrideAndCache(t *testing.T) {
	src := &stubSource{core: settings.CoreSettings{
		StatusLabels: map[string]string{"pending": "<b>Awaiting Payment</b>"},
	}}
	r := New(src)
	ctx := context.Background()

	m := r.StatusMap(ctx)
	assert.Equal(t, "Awaiting Payment", m["pending"])
	assert.Equal(t, constants.StatusLabels["paid"], m["paid"])

	// Unknown keys in the override never add statuses.
	src.core.StatusLabels["bogus"] = "Bogus"
	src.version++
	m = r.StatusMap(ctx)
	_, ok := m["bogus"]
	assert.False(t, ok)

	// Same version returns the cached map even if the source mutates.
	src.core.StatusLabels["pending"] = "Changed Again"
	m2 := r.StatusMap(ctx)
	assert.Equal(t, "Awaiting Payment", m2["pending"])
}

func TestStatusLabel_UnknownSlugEchoes(t *testing.T) {
	r := New(&stubSource{})
	assert.Equal(t, "whatever", r.StatusLabel(context.Background(), "whatever"))
	assert.Equal(t, constants.StatusLabels["deposit-paid"], r.StatusLabel(context.Background(), "deposit_paid"))
}

func TestNormalizeSlug(t *testing.T) {
	assert.Equal(t, "deposit-required", NormalizeSlug(" Deposit_Required "))
	assert.Equal(t, "paid", NormalizeSlug("PAID"))
	assert.Equal(t, "ab", NormalizeSlug("a b"))
	assert.Equal(t, "x-1", NormalizeSlug("X_1!"))
}

func TestAliasStatusKeys(t *testing.T) {
	in := map[string]int{"deposit-paid": 1, "paid": 2}
	out := AliasStatusKeys(in)
	require.Equal(t, 1, out["deposit_paid"])
	require.Equal(t, 1, out["deposit-paid"])
	require.Equal(t, 2, out["paid"])
}
