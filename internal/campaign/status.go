package campaign

import (
	"math/big"
	"time"

	"crowdfund/internal/chain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusFunded  Status = "FUNDED"
	StatusExpired Status = "EXPIRED"
)

// Derived is the display state computed from one campaign snapshot and one
// instant. It is never stored; callers recompute it on every tick.
type Derived struct {
	Status      Status
	ProgressPct float64

	// TimeRemaining is zero unless the campaign is ACTIVE.
	TimeRemaining time.Duration
}

// Derive maps a campaign and the current instant onto a lifecycle status.
// The funded check runs before the deadline check: a campaign that reached
// its goal stays FUNDED however far past the deadline the clock is. That
// ordering is a business rule, not an accident.
func Derive(c chain.Campaign, now time.Time) Derived {
	derived := Derived{ProgressPct: progressPct(c.RaisedAmount, c.GoalAmount)}

	switch {
	case reachedGoal(c.RaisedAmount, c.GoalAmount):
		derived.Status = StatusFunded
	case !now.Before(c.DeadlineTime()):
		derived.Status = StatusExpired
	default:
		derived.Status = StatusActive
		derived.TimeRemaining = c.DeadlineTime().Sub(now)
	}

	return derived
}

// CanDonate reports whether the viewer may donate right now. Depends only on
// chain-sourced data, never on the local ledger.
func CanDonate(c chain.Campaign, viewer common.Address, now time.Time) bool {
	return Derive(c, now).Status == StatusActive && viewer != c.Owner
}

// CanWithdraw reports whether the viewer may withdraw the raised funds.
func CanWithdraw(c chain.Campaign, viewer common.Address, now time.Time) bool {
	return viewer == c.Owner && !c.Withdrawn && Derive(c, now).Status == StatusFunded
}

// CanRefund reports whether the viewer may claim a refund, given their
// on-chain contribution in wei.
func CanRefund(c chain.Campaign, viewer common.Address, contributionWei *big.Int, now time.Time) bool {
	if viewer == c.Owner || contributionWei == nil || contributionWei.Sign() <= 0 {
		return false
	}
	return Derive(c, now).Status == StatusExpired
}

func reachedGoal(raised, goal *big.Int) bool {
	if raised == nil || goal == nil {
		return false
	}
	return raised.Cmp(goal) >= 0
}

func progressPct(raised, goal *big.Int) float64 {
	if raised == nil || raised.Sign() <= 0 {
		return 0
	}
	if goal == nil || goal.Sign() == 0 {
		// A zero goal cannot divide; anything raised against it counts as done.
		return 100
	}

	pct, _ := decimal.NewFromBigInt(raised, 0).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromBigInt(goal, 0), 4).
		Float64()
	if pct > 100 {
		return 100
	}
	return pct
}
