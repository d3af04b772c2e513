// Package tracker reconstructs transaction history from on-chain event logs
// when the local ledger has no record. This is a degraded, best-effort path:
// public RPC endpoints cap log ranges, so an empty result is legitimate and
// must never block an eligibility decision.
package tracker

import (
	"context"
	"strings"
	"time"

	"crowdfund/internal/chain"
	"crowdfund/internal/currency"
	"crowdfund/internal/logger"
	"crowdfund/internal/storage"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ChainLog is the slice of the chain reader the tracker scans through.
type ChainLog interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockTime(ctx context.Context, number uint64) (time.Time, error)
	FilterWithdrawals(ctx context.Context, from, to uint64, owner common.Address) ([]chain.WithdrawalEvent, error)
	FilterCampaignCreated(ctx context.Context, from, to uint64, campaignID uint64) ([]chain.CreationEvent, error)
}

type Tracker struct {
	chainLog ChainLog
	ledger   storage.Storage
	now      func() time.Time
}

func NewTracker(chainLog ChainLog, ledger storage.Storage) *Tracker {
	return &Tracker{chainLog: chainLog, ledger: ledger, now: time.Now}
}

// BlockRange is one scan window, newest-first. The chain produces roughly
// two blocks per second, so the windows step from days back to genesis.
type BlockRange struct {
	From uint64
	To   uint64
}

func BlockRanges(currentBlock uint64) []BlockRange {
	spans := []uint64{500_000, 1_000_000, 2_000_000, 5_000_000}

	ranges := make([]BlockRange, 0, len(spans)+1)
	for _, span := range spans {
		from := uint64(0)
		if currentBlock > span {
			from = currentBlock - span
		}
		ranges = append(ranges, BlockRange{From: from, To: currentBlock})
	}

	// Genesis scan last; public endpoints often refuse it.
	return append(ranges, BlockRange{From: 0, To: currentBlock})
}

// WithdrawalHistory returns the account's withdrawal records. The ledger is
// the primary source; the chain scan only backfills what this browser never
// saw confirmed.
func (t *Tracker) WithdrawalHistory(ctx context.Context, account common.Address) ([]*storage.LedgerEntry, error) {
	recorded, err := t.ledger.GetEntriesByKind(strings.ToLower(account.Hex()), storage.WithdrawalKind)
	if err != nil {
		return nil, err
	}
	if len(recorded) > 0 {
		return recorded, nil
	}

	events := t.scanWithdrawals(ctx, account)
	if len(events) == 0 {
		return nil, nil
	}

	entries := make([]*storage.LedgerEntry, 0, len(events))
	for _, event := range events {
		block := event.Block
		// Lowercased like every entry the ledger hands back.
		entry := &storage.LedgerEntry{
			Account:     strings.ToLower(account.Hex()),
			CampaignID:  event.CampaignId.Uint64(),
			Kind:        storage.WithdrawalKind,
			TxHash:      event.TxHash.Hex(),
			Amount:      currency.WeiToEth(event.Amount),
			BlockNumber: &block,
			Timestamp:   t.now().UnixMilli(),
		}

		if err := t.ledger.RecordEntry(entry); err != nil {
			logger.Warn("backfill of scanned withdrawal failed", zap.String("tx", entry.TxHash), zap.Error(err))
		}

		entries = append(entries, entry)
	}

	logger.Info("withdrawal history recovered from event logs",
		zap.String("account", account.Hex()),
		zap.Int("count", len(entries)),
	)
	return entries, nil
}

// CreationTime resolves when a campaign was created from its CampaignCreated
// log, widening the scan window like the withdrawal scan does. Zero time when
// no reachable window holds the event; callers fall back to showing no date.
func (t *Tracker) CreationTime(ctx context.Context, campaignID uint64) time.Time {
	currentBlock, err := t.chainLog.BlockNumber(ctx)
	if err != nil {
		logger.Debug("cannot resolve current block, skipping scan", zap.Error(err))
		return time.Time{}
	}

	for _, window := range BlockRanges(currentBlock) {
		events, err := t.chainLog.FilterCampaignCreated(ctx, window.From, window.To, campaignID)
		if err != nil {
			logger.Debug("scan window failed, widening",
				zap.Uint64("from", window.From),
				zap.Uint64("to", window.To),
				zap.Error(err),
			)
			continue
		}
		if len(events) == 0 {
			continue
		}

		created, err := t.chainLog.BlockTime(ctx, events[0].Block)
		if err != nil {
			logger.Debug("cannot resolve creation block timestamp", zap.Error(err))
			return time.Time{}
		}
		return created
	}

	return time.Time{}
}

func (t *Tracker) scanWithdrawals(ctx context.Context, account common.Address) []chain.WithdrawalEvent {
	currentBlock, err := t.chainLog.BlockNumber(ctx)
	if err != nil {
		logger.Debug("cannot resolve current block, skipping scan", zap.Error(err))
		return nil
	}

	for _, window := range BlockRanges(currentBlock) {
		events, err := t.chainLog.FilterWithdrawals(ctx, window.From, window.To, account)
		if err != nil {
			logger.Debug("scan window failed, widening",
				zap.Uint64("from", window.From),
				zap.Uint64("to", window.To),
				zap.Error(err),
			)
			continue
		}

		if len(events) > 0 {
			return events
		}
	}

	return nil
}
