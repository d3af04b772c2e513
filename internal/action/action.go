// Package action drives one user-initiated contract call through
// submit -> pending -> confirmed/failed, with the ledger append and cache
// invalidation gated strictly behind a successful receipt. Each Action is
// independent; concurrent actions share only the cache and the ledger.
package action

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"crowdfund/internal/chain"
	"crowdfund/internal/logger"
	"crowdfund/internal/storage"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type State string

const (
	StateIdle           State = "IDLE"
	StateAwaitingWallet State = "AWAITING_WALLET_CONFIRMATION"
	StateSubmitted      State = "SUBMITTED"
	StateConfirmed      State = "CONFIRMED"
	StateFailed         State = "FAILED"

	// StateStillPending is reported when the receipt wait was cut short,
	// whether by its own bound or by the caller's context. The transaction
	// is not assumed failed; a background wait keeps listening and a late
	// confirmation still runs the confirmed side effects.
	StateStillPending State = "STILL_PENDING"
)

type Kind string

const (
	KindCreate   Kind = "create"
	KindDonate   Kind = "donate"
	KindWithdraw Kind = "withdraw"
	KindRefund   Kind = "refund"
)

// ErrStillPending is returned when the receipt wait timed out without a
// verdict.
var ErrStillPending = errors.New("transaction still pending")

const (
	defaultWaitTimeout = 2 * time.Minute
	lateWaitWindow     = 30 * time.Minute
)

// Broadcaster submits contract calls and waits for receipts. chain.Writer
// implements it; tests substitute a stub.
type Broadcaster interface {
	From() common.Address
	CreateCampaign(ctx context.Context, params chain.CreateParams) (*types.Transaction, error)
	Donate(ctx context.Context, campaignID uint64, amountWei *big.Int) (*types.Transaction, error)
	Withdraw(ctx context.Context, campaignID uint64) (*types.Transaction, error)
	ClaimRefund(ctx context.Context, campaignID uint64) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Notifier surfaces terminal outcomes to the user.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// Invalidator is the slice of the campaign cache an action needs.
type Invalidator interface {
	Invalidate()
}

type Deps struct {
	Broadcaster    Broadcaster
	Ledger         storage.Storage
	Cache          Invalidator
	Notifier       Notifier
	MinDonationEth decimal.Decimal

	// Clock and WaitTimeout default to time.Now and two minutes.
	Clock       func() time.Time
	WaitTimeout time.Duration
}

func (d Deps) clock() func() time.Time {
	if d.Clock == nil {
		return time.Now
	}
	return d.Clock
}

func (d Deps) waitTimeout() time.Duration {
	if d.WaitTimeout <= 0 {
		return defaultWaitTimeout
	}
	return d.WaitTimeout
}

// Action is one in-flight user action. Construct with one of the New*
// constructors, then call Run once; terminal states are not retried, the
// caller builds a fresh Action to try again.
type Action struct {
	id   uuid.UUID
	kind Kind
	deps Deps

	validate   func() error
	submit     func(ctx context.Context) (*types.Transaction, error)
	entry      func(receipt *types.Receipt) *storage.LedgerEntry
	successMsg string

	mu          sync.Mutex
	state       State
	txHash      common.Hash
	confirmOnce sync.Once
}

func newAction(kind Kind, deps Deps) *Action {
	return &Action{
		id:    uuid.New(),
		kind:  kind,
		deps:  deps,
		state: StateIdle,
	}
}

func (a *Action) ID() uuid.UUID { return a.id }
func (a *Action) Kind() Kind    { return a.kind }

func (a *Action) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Action) TxHash() common.Hash {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.txHash
}

// Run executes the action. Validation failures leave the state IDLE and
// never reach the wallet.
func (a *Action) Run(ctx context.Context) error {
	if err := a.validate(); err != nil {
		return err
	}

	a.setState(StateAwaitingWallet)

	tx, err := a.submit(ctx)
	if err != nil {
		return a.fail(chain.Classify(err))
	}

	a.mu.Lock()
	a.txHash = tx.Hash()
	a.mu.Unlock()
	a.setState(StateSubmitted)

	waitCtx, cancel := context.WithTimeout(ctx, a.deps.waitTimeout())
	defer cancel()

	receipt, err := a.deps.Broadcaster.WaitMined(waitCtx, tx)
	if err != nil {
		// Once broadcast, the transaction is out of our hands. A wait
		// timeout or the caller walking away says nothing about its fate,
		// so keep listening in the background instead of reporting failure.
		if waitCtx.Err() != nil {
			a.setState(StateStillPending)
			logger.Info("receipt wait cut short, watching in background",
				zap.String("action", a.id.String()),
				zap.String("tx", tx.Hash().Hex()),
			)
			go a.awaitLate(tx)
			return ErrStillPending
		}

		return a.fail(chain.Classify(err))
	}

	return a.finish(receipt)
}

func (a *Action) finish(receipt *types.Receipt) error {
	if receipt.Status != types.ReceiptStatusSuccessful {
		return a.fail(&chain.RevertError{})
	}

	a.confirmOnce.Do(func() {
		if a.entry != nil {
			entry := a.entry(receipt)
			if err := a.deps.Ledger.RecordEntry(entry); err != nil {
				// Advisory store: history degrades, the action still succeeded.
				logger.Warn("ledger append failed", zap.String("tx", entry.TxHash), zap.Error(err))
			}
		}

		a.deps.Cache.Invalidate()
		a.deps.Notifier.Success(a.successMsg)
	})

	a.setState(StateConfirmed)
	return nil
}

func (a *Action) fail(err error) error {
	a.setState(StateFailed)

	if errors.Is(err, chain.ErrUserRejected) {
		logger.Debug("wallet prompt declined", zap.String("action", a.id.String()))
	} else {
		logger.Error("action failed", zap.String("action", a.id.String()), zap.String("kind", string(a.kind)), zap.Error(err))
	}

	a.deps.Notifier.Failure(string(a.kind) + " failed: " + err.Error())
	return err
}

func (a *Action) awaitLate(tx *types.Transaction) {
	ctx, cancel := context.WithTimeout(context.Background(), lateWaitWindow)
	defer cancel()

	receipt, err := a.deps.Broadcaster.WaitMined(ctx, tx)
	if err != nil {
		logger.Warn("gave up waiting for pending transaction",
			zap.String("action", a.id.String()),
			zap.String("tx", tx.Hash().Hex()),
			zap.Error(err),
		)
		return
	}

	_ = a.finish(receipt)
}

func (a *Action) setState(state State) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
}

func (a *Action) ledgerEntry(kind storage.EntryKind, campaign chain.Campaign, amountEth string, receipt *types.Receipt) *storage.LedgerEntry {
	entry := &storage.LedgerEntry{
		Account:       a.deps.Broadcaster.From().Hex(),
		CampaignID:    campaign.ID(),
		Kind:          kind,
		TxHash:        a.TxHash().Hex(),
		Amount:        amountEth,
		CampaignTitle: campaign.Title,
		Timestamp:     a.deps.clock()().UnixMilli(),
	}
	if receipt != nil && receipt.BlockNumber != nil {
		block := receipt.BlockNumber.Uint64()
		entry.BlockNumber = &block
	}
	return entry
}

// ZapNotifier logs outcomes; callers embedding this library in a UI supply
// their own Notifier instead.
type ZapNotifier struct{}

func (ZapNotifier) Success(message string) { logger.Info(message) }
func (ZapNotifier) Failure(message string) { logger.Warn(message) }
