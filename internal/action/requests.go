package action

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"crowdfund/internal/chain"
	"crowdfund/internal/currency"
	"crowdfund/internal/storage"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// ValidationError rejects input before any wallet interaction. Handled at
// the point of action, never escalated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewDonation builds a donate action for amountEth, a decimal ETH string.
func NewDonation(deps Deps, campaign chain.Campaign, amountEth string) *Action {
	a := newAction(KindDonate, deps)

	var amountWei *big.Int
	a.validate = func() error {
		if campaign.ID() < 1 {
			return &ValidationError{Field: "campaign", Reason: "unknown campaign"}
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(amountEth))
		if err != nil || amount.Sign() <= 0 {
			return &ValidationError{Field: "amount", Reason: "enter an amount greater than zero"}
		}
		// Minimum re-checked at submit time so a rate-driven config change
		// takes effect without restarting anything.
		if amount.Cmp(deps.MinDonationEth) < 0 {
			return &ValidationError{
				Field:  "amount",
				Reason: fmt.Sprintf("minimum donation is %s ETH", deps.MinDonationEth.String()),
			}
		}

		amountWei, err = currency.EthToWei(amount.String())
		if err != nil {
			return &ValidationError{Field: "amount", Reason: err.Error()}
		}
		return nil
	}

	a.submit = func(ctx context.Context) (*types.Transaction, error) {
		return deps.Broadcaster.Donate(ctx, campaign.ID(), amountWei)
	}
	a.entry = func(receipt *types.Receipt) *storage.LedgerEntry {
		return a.ledgerEntry(storage.DonationKind, campaign, amountEth, receipt)
	}
	a.successMsg = fmt.Sprintf("donated %s ETH to %q", amountEth, campaign.Title)

	return a
}

// NewWithdrawal builds a withdraw action for the campaign's raised total.
func NewWithdrawal(deps Deps, campaign chain.Campaign) *Action {
	a := newAction(KindWithdraw, deps)
	raisedEth := currency.WeiToEth(campaign.RaisedAmount)

	a.validate = func() error {
		if campaign.ID() < 1 {
			return &ValidationError{Field: "campaign", Reason: "unknown campaign"}
		}
		return nil
	}
	a.submit = func(ctx context.Context) (*types.Transaction, error) {
		return deps.Broadcaster.Withdraw(ctx, campaign.ID())
	}
	a.entry = func(receipt *types.Receipt) *storage.LedgerEntry {
		return a.ledgerEntry(storage.WithdrawalKind, campaign, raisedEth, receipt)
	}
	a.successMsg = fmt.Sprintf("withdrew %s ETH from %q", raisedEth, campaign.Title)

	return a
}

// NewRefund builds a claimRefund action. contributionWei is the caller's
// on-chain contribution, used only to label the ledger entry.
func NewRefund(deps Deps, campaign chain.Campaign, contributionWei *big.Int) *Action {
	a := newAction(KindRefund, deps)
	contributionEth := currency.WeiToEth(contributionWei)

	a.validate = func() error {
		if campaign.ID() < 1 {
			return &ValidationError{Field: "campaign", Reason: "unknown campaign"}
		}
		return nil
	}
	a.submit = func(ctx context.Context) (*types.Transaction, error) {
		return deps.Broadcaster.ClaimRefund(ctx, campaign.ID())
	}
	a.entry = func(receipt *types.Receipt) *storage.LedgerEntry {
		return a.ledgerEntry(storage.RefundKind, campaign, contributionEth, receipt)
	}
	a.successMsg = fmt.Sprintf("refund of %s ETH claimed for %q", contributionEth, campaign.Title)

	return a
}

// CreateRequest carries the campaign form. GoalEth is a decimal ETH string.
type CreateRequest struct {
	Title       string
	Description string
	GoalEth     string
	Duration    time.Duration
	ImageURI    string
	Category    string
	CreatorInfo string
}

// NewCampaignCreation builds a createCampaign action. No ledger entry is
// written; creations show up through the refreshed campaign list.
func NewCampaignCreation(deps Deps, request CreateRequest) *Action {
	a := newAction(KindCreate, deps)

	var goalWei *big.Int
	a.validate = func() error {
		if strings.TrimSpace(request.Title) == "" {
			return &ValidationError{Field: "title", Reason: "title cannot be empty"}
		}

		goal, err := decimal.NewFromString(strings.TrimSpace(request.GoalEth))
		if err != nil || goal.Sign() <= 0 {
			return &ValidationError{Field: "goal", Reason: "goal must be greater than zero"}
		}
		if request.Duration <= 0 {
			return &ValidationError{Field: "duration", Reason: "duration must be greater than zero"}
		}

		goalWei, err = currency.EthToWei(goal.String())
		if err != nil {
			return &ValidationError{Field: "goal", Reason: err.Error()}
		}
		return nil
	}

	a.submit = func(ctx context.Context) (*types.Transaction, error) {
		return deps.Broadcaster.CreateCampaign(ctx, chain.CreateParams{
			Title:       request.Title,
			Description: request.Description,
			GoalWei:     goalWei,
			Duration:    request.Duration,
			ImageURI:    request.ImageURI,
			Category:    request.Category,
			CreatorInfo: request.CreatorInfo,
		})
	}
	a.successMsg = fmt.Sprintf("campaign %q created", request.Title)

	return a
}
