package constants

// Capability names checked against the role/capability matrix.
const (
	ManageWickedInvoicing = "manage_wicked_invoicing"
	EditWickedSettings    = "edit_wicked_settings"
	EditWickedInvoices    = "edit_wicked_invoices"
	ViewWickedReports     = "view_wicked_reports"
)

// DefaultRoleCaps is the capability matrix used when none is configured.
var DefaultRoleCaps = map[string][]string{
	"administrator": {
		ManageWickedInvoicing,
		EditWickedSettings,
		EditWickedInvoices,
		ViewWickedReports,
	},
	"editor": {
		EditWickedInvoices,
		ViewWickedReports,
	},
}
