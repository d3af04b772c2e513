package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccount = "0xAbCd000000000000000000000000000000000001"

func setupLedger(t *testing.T) *SqliteStorage {
	t.Helper()

	ledger, err := NewSqliteStorage(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	return ledger
}

func donation(txHash, amount string, campaignID uint64) *LedgerEntry {
	return &LedgerEntry{
		Account:       testAccount,
		CampaignID:    campaignID,
		Kind:          DonationKind,
		TxHash:        txHash,
		Amount:        amount,
		CampaignTitle: "Clean Water",
		Timestamp:     1_700_000_000_000,
	}
}

func withdrawal(txHash string) *LedgerEntry {
	return &LedgerEntry{
		Account:       testAccount,
		CampaignID:    7,
		Kind:          WithdrawalKind,
		TxHash:        txHash,
		Amount:        "1.5",
		CampaignTitle: "Clean Water",
		Timestamp:     1_700_000_000_000,
	}
}

func TestDonationsAppend(t *testing.T) {
	ledger := setupLedger(t)

	require.NoError(t, ledger.RecordEntry(donation("0xaaa", "0.01", 3)))
	require.NoError(t, ledger.RecordEntry(donation("0xbbb", "0.02", 3)))

	entries, err := ledger.GetEntriesByKind(testAccount, DonationKind)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDonationReplayIsNoop(t *testing.T) {
	ledger := setupLedger(t)

	require.NoError(t, ledger.RecordEntry(donation("0xaaa", "0.01", 3)))
	require.NoError(t, ledger.RecordEntry(donation("0xaaa", "0.01", 3)))

	entries, err := ledger.GetEntriesByKind(testAccount, DonationKind)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWithdrawalIdempotentOnTxHash(t *testing.T) {
	ledger := setupLedger(t)

	require.NoError(t, ledger.RecordEntry(withdrawal("0xccc")))
	require.NoError(t, ledger.RecordEntry(withdrawal("0xccc")))

	entries, err := ledger.GetEntriesByKind(testAccount, WithdrawalKind)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "0xccc", entries[0].TxHash)
}

func TestWithdrawalKeepsSingleLatestEntry(t *testing.T) {
	ledger := setupLedger(t)

	require.NoError(t, ledger.RecordEntry(withdrawal("0xccc")))
	require.NoError(t, ledger.RecordEntry(withdrawal("0xddd")))

	entries, err := ledger.GetEntriesByKind(testAccount, WithdrawalKind)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "0xddd", entries[0].TxHash)
}

func TestAccountsCaseInsensitive(t *testing.T) {
	ledger := setupLedger(t)

	require.NoError(t, ledger.RecordEntry(donation("0xaaa", "0.01", 3)))

	upper, err := ledger.GetEntries("0XABCD000000000000000000000000000000000001")
	require.NoError(t, err)
	require.Len(t, upper[3], 1)
	assert.Equal(t, "0xabcd000000000000000000000000000000000001", upper[3][0].Account)
}

func TestGetEntriesGroupsByCampaign(t *testing.T) {
	ledger := setupLedger(t)

	require.NoError(t, ledger.RecordEntry(donation("0xaaa", "0.01", 3)))
	require.NoError(t, ledger.RecordEntry(donation("0xbbb", "0.02", 5)))
	require.NoError(t, ledger.RecordEntry(withdrawal("0xccc")))

	grouped, err := ledger.GetEntries(testAccount)
	require.NoError(t, err)
	assert.Len(t, grouped, 3)
	assert.Len(t, grouped[3], 1)
	assert.Len(t, grouped[7], 1)
}

func TestGetEntryNilWhenMissing(t *testing.T) {
	ledger := setupLedger(t)

	entry, err := ledger.GetEntry(testAccount, 3, RefundKind)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestClearAccountWipesOnlyThatAccount(t *testing.T) {
	ledger := setupLedger(t)

	other := donation("0xeee", "0.5", 9)
	other.Account = "0x9999999999999999999999999999999999999999"

	require.NoError(t, ledger.RecordEntry(donation("0xaaa", "0.01", 3)))
	require.NoError(t, ledger.RecordEntry(other))

	require.NoError(t, ledger.ClearAccount(testAccount))

	mine, err := ledger.GetEntries(testAccount)
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := ledger.GetEntries(other.Account)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestExplorerURL(t *testing.T) {
	entry := donation("0xaaa", "0.01", 3)
	assert.Equal(t, "https://sepolia.basescan.org/tx/0xaaa", entry.ExplorerURL("https://sepolia.basescan.org"))

	empty := &LedgerEntry{}
	assert.Empty(t, empty.ExplorerURL("https://sepolia.basescan.org"))
}
