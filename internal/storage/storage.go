package storage

// Storage is the per-account ledger of this client's own confirmed
// transactions. It is advisory: eligibility decisions always come from chain
// reads, the ledger only decorates history views with explorer links. A
// missing entry degrades to "transaction details unavailable", never to a
// blocked action.
type Storage interface {
	// RecordEntry appends a donation or upserts a withdrawal/refund.
	// Idempotent on (account, campaign, kind, tx hash).
	RecordEntry(entry *LedgerEntry) error

	// GetEntries returns every entry for the account grouped by campaign.
	GetEntries(account string) (map[uint64][]*LedgerEntry, error)

	// GetEntriesByKind returns the account's entries of one kind, oldest first.
	GetEntriesByKind(account string, kind EntryKind) ([]*LedgerEntry, error)

	// GetEntry returns the latest entry for (account, campaign, kind), or nil.
	GetEntry(account string, campaignID uint64, kind EntryKind) (*LedgerEntry, error)

	// ClearAccount wipes every entry for the account. Diagnostic use only.
	ClearAccount(account string) error
}

type EntryKind = string

const (
	DonationKind   EntryKind = "DONATION"
	WithdrawalKind EntryKind = "WITHDRAWAL"
	RefundKind     EntryKind = "REFUND"
)
