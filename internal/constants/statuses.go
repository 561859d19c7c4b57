package constants

// Logical invoice status slugs. Invoices are created as StatusTemp and move
// forward through business states; StatusPaid is terminal in practice.
const (
	StatusTemp            = "temp"
	StatusPending         = "pending"
	StatusDepositRequired = "deposit-required"
	StatusDepositPaid     = "deposit-paid"
	StatusPaid            = "paid"
)

// StatusOrder is the canonical display order of logical statuses.
var StatusOrder = []string{
	StatusTemp,
	StatusPending,
	StatusDepositRequired,
	StatusDepositPaid,
	StatusPaid,
}

// StatusLabels maps each logical status to its default display label.
// Label overrides from settings are layered on top by the resolver.
var StatusLabels = map[string]string{
	StatusTemp:            "Temp",
	StatusPending:         "Pending",
	StatusDepositRequired: "Deposit Required",
	StatusDepositPaid:     "Deposit Paid",
	StatusPaid:            "Paid",
}
