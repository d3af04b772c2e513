package chain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Campaign mirrors the contract's campaign tuple. Field names and types
// match the ABI so decoded call results convert directly. Everything except
// RaisedAmount, DonorsCount and Withdrawn is immutable after creation; those
// three change only through confirmed transactions.
type Campaign struct {
	Id           *big.Int
	Owner        common.Address
	Title        string
	Description  string
	GoalAmount   *big.Int
	RaisedAmount *big.Int
	Deadline     *big.Int
	ImageURI     string
	Category     string
	DonorsCount  *big.Int
	Withdrawn    bool
}

func (c Campaign) ID() uint64 {
	if c.Id == nil {
		return 0
	}
	return c.Id.Uint64()
}

func (c Campaign) DeadlineTime() time.Time {
	if c.Deadline == nil {
		return time.Time{}
	}
	return time.Unix(c.Deadline.Int64(), 0)
}

// CreationEvent is a decoded CampaignCreated log.
type CreationEvent struct {
	CampaignId *big.Int
	TxHash     common.Hash
	Block      uint64
}

// WithdrawalEvent is a decoded FundsWithdrawn log.
type WithdrawalEvent struct {
	CampaignId *big.Int
	Owner      common.Address
	Amount     *big.Int
	TxHash     common.Hash
	Block      uint64
}

// CreateParams carries the createCampaign call arguments.
type CreateParams struct {
	Title       string
	Description string
	GoalWei     *big.Int
	Duration    time.Duration
	ImageURI    string
	Category    string
	CreatorInfo string
}
