package campaign

import (
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"crowdfund/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Eligibility must come from chain-sourced data alone: wiping the local
// ledger cannot flip a can-withdraw or can-refund answer.
func TestEligibilityIndependentOfLedger(t *testing.T) {
	ledger, err := storage.NewSqliteStorage(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	now := time.Now()
	account := ownerAddr.Hex()

	funded := testCampaign(eth(1), eth(1), now.Add(-time.Hour))
	expired := testCampaign(big.NewInt(0), eth(1), now.Add(-time.Hour))
	contribution := eth(1)

	require.NoError(t, ledger.RecordEntry(&storage.LedgerEntry{
		Account:    account,
		CampaignID: funded.ID(),
		Kind:       storage.WithdrawalKind,
		TxHash:     "0xabc",
		Amount:     "1",
		Timestamp:  now.UnixMilli(),
	}))

	withdrawBefore := CanWithdraw(funded, ownerAddr, now)
	refundBefore := CanRefund(expired, donorAddr, contribution, now)

	require.NoError(t, ledger.ClearAccount(account))

	assert.Equal(t, withdrawBefore, CanWithdraw(funded, ownerAddr, now))
	assert.Equal(t, refundBefore, CanRefund(expired, donorAddr, contribution, now))
	assert.True(t, withdrawBefore)
	assert.True(t, refundBefore)
}
