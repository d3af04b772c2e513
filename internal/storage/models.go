package storage

// LedgerEntry is one confirmed transaction observed by this client. Accounts
// are stored lowercased; amounts are decimal ETH strings, never floats.
// Entries are written once, after a successful receipt, and never mutated.
type LedgerEntry struct {
	ID            int64     `gorm:"primaryKey"`
	Account       string    `gorm:"uniqueIndex:idx_entry_identity;index:idx_entry_account;not null"`
	CampaignID    uint64    `gorm:"uniqueIndex:idx_entry_identity;not null"`
	Kind          EntryKind `gorm:"uniqueIndex:idx_entry_identity;not null"`
	TxHash        string    `gorm:"uniqueIndex:idx_entry_identity;not null"`
	Amount        string    `gorm:"not null"`
	CampaignTitle string
	BlockNumber   *uint64
	Timestamp     int64 `gorm:"not null"`
}

// ExplorerURL builds the block-explorer link for the entry's transaction.
func (e *LedgerEntry) ExplorerURL(base string) string {
	if e.TxHash == "" {
		return ""
	}
	return base + "/tx/" + e.TxHash
}
