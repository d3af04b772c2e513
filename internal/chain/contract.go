package chain

import (
	"context"
	"math/big"
	"time"

	"crowdfund/internal/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const campaignComponents = `[
	{"name":"id","type":"uint256"},
	{"name":"owner","type":"address"},
	{"name":"title","type":"string"},
	{"name":"description","type":"string"},
	{"name":"goalAmount","type":"uint256"},
	{"name":"raisedAmount","type":"uint256"},
	{"name":"deadline","type":"uint256"},
	{"name":"imageURI","type":"string"},
	{"name":"category","type":"string"},
	{"name":"donorsCount","type":"uint256"},
	{"name":"withdrawn","type":"bool"}
]`

// contractABI is the fixed external ABI of the deployed crowdfunding
// contract. Kept in sync with the deploy pipeline by hand.
const contractABI = `[
	{"type":"function","name":"createCampaign","stateMutability":"nonpayable","inputs":[
		{"name":"title","type":"string"},
		{"name":"description","type":"string"},
		{"name":"goalAmount","type":"uint256"},
		{"name":"duration","type":"uint256"},
		{"name":"imageURI","type":"string"},
		{"name":"category","type":"string"},
		{"name":"creatorInfo","type":"string"}],"outputs":[]},
	{"type":"function","name":"donate","stateMutability":"payable","inputs":[
		{"name":"campaignId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[
		{"name":"campaignId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"claimRefund","stateMutability":"nonpayable","inputs":[
		{"name":"campaignId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getCampaign","stateMutability":"view","inputs":[
		{"name":"campaignId","type":"uint256"}],"outputs":[
		{"name":"","type":"tuple","components":` + campaignComponents + `}]},
	{"type":"function","name":"getAllCampaigns","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"tuple[]","components":` + campaignComponents + `}]},
	{"type":"function","name":"getContribution","stateMutability":"view","inputs":[
		{"name":"campaignId","type":"uint256"},
		{"name":"donor","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"campaignCount","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"uint256"}]},
	{"type":"event","name":"CampaignCreated","anonymous":false,"inputs":[
		{"name":"campaignId","type":"uint256","indexed":true}]},
	{"type":"event","name":"FundsWithdrawn","anonymous":false,"inputs":[
		{"name":"campaignId","type":"uint256","indexed":true},
		{"name":"owner","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]}
]`

// Reader is a read-only contract handle.
type Reader struct {
	client      *ethclient.Client
	address     common.Address
	contractABI abi.ABI
	contract    *bind.BoundContract
}

func (r *Reader) Close() {
	r.client.Close()
}

func (r *Reader) GetAllCampaigns(ctx context.Context) ([]Campaign, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getAllCampaigns"); err != nil {
		return nil, &ReadError{Op: "getAllCampaigns", Err: err}
	}

	campaigns := *abi.ConvertType(out[0], new([]Campaign)).(*[]Campaign)
	logger.Debug("fetched campaigns from chain", zap.Int("count", len(campaigns)))
	return campaigns, nil
}

func (r *Reader) GetCampaign(ctx context.Context, campaignID uint64) (Campaign, error) {
	var out []interface{}
	err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCampaign", new(big.Int).SetUint64(campaignID))
	if err != nil {
		return Campaign{}, &ReadError{Op: "getCampaign", Err: err}
	}

	return *abi.ConvertType(out[0], new(Campaign)).(*Campaign), nil
}

func (r *Reader) GetContribution(ctx context.Context, campaignID uint64, donor common.Address) (*big.Int, error) {
	var out []interface{}
	err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getContribution", new(big.Int).SetUint64(campaignID), donor)
	if err != nil {
		return nil, &ReadError{Op: "getContribution", Err: err}
	}

	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (r *Reader) CampaignCount(ctx context.Context) (uint64, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "campaignCount"); err != nil {
		return 0, &ReadError{Op: "campaignCount", Err: err}
	}

	count := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return count.Uint64(), nil
}

func (r *Reader) BlockNumber(ctx context.Context) (uint64, error) {
	number, err := r.client.BlockNumber(ctx)
	if err != nil {
		return 0, &ReadError{Op: "blockNumber", Err: err}
	}
	return number, nil
}

// BlockTime resolves a block's timestamp from its header.
func (r *Reader) BlockTime(ctx context.Context, number uint64) (time.Time, error) {
	header, err := r.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return time.Time{}, &ReadError{Op: "blockTime", Err: err}
	}
	return time.Unix(int64(header.Time), 0), nil
}

// FilterCampaignCreated queries the CampaignCreated log of one campaign in
// [from, to]. The campaign id is an indexed topic, so the node filters for us.
func (r *Reader) FilterCampaignCreated(ctx context.Context, from, to uint64, campaignID uint64) ([]CreationEvent, error) {
	event := r.contractABI.Events["CampaignCreated"]

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{r.address},
		Topics: [][]common.Hash{
			{event.ID},
			{common.BigToHash(new(big.Int).SetUint64(campaignID))},
		},
	}

	logs, err := r.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, &ReadError{Op: "filterCampaignCreated", Err: err}
	}

	events := make([]CreationEvent, 0, len(logs))
	for _, entry := range logs {
		var decoded CreationEvent
		if err := r.contract.UnpackLog(&decoded, "CampaignCreated", entry); err != nil {
			logger.Warn("skipping undecodable CampaignCreated log", zap.String("tx", entry.TxHash.Hex()), zap.Error(err))
			continue
		}
		decoded.TxHash = entry.TxHash
		decoded.Block = entry.BlockNumber
		events = append(events, decoded)
	}

	return events, nil
}

// FilterWithdrawals queries FundsWithdrawn logs in [from, to]. A zero owner
// address matches every owner.
func (r *Reader) FilterWithdrawals(ctx context.Context, from, to uint64, owner common.Address) ([]WithdrawalEvent, error) {
	event := r.contractABI.Events["FundsWithdrawn"]

	topics := [][]common.Hash{{event.ID}}
	if owner != (common.Address{}) {
		topics = append(topics, nil, []common.Hash{common.BytesToHash(owner.Bytes())})
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{r.address},
		Topics:    topics,
	}

	logs, err := r.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, &ReadError{Op: "filterWithdrawals", Err: err}
	}

	events := make([]WithdrawalEvent, 0, len(logs))
	for _, entry := range logs {
		var decoded WithdrawalEvent
		if err := r.contract.UnpackLog(&decoded, "FundsWithdrawn", entry); err != nil {
			logger.Warn("skipping undecodable FundsWithdrawn log", zap.String("tx", entry.TxHash.Hex()), zap.Error(err))
			continue
		}
		decoded.TxHash = entry.TxHash
		decoded.Block = entry.BlockNumber
		events = append(events, decoded)
	}

	return events, nil
}

// Writer is a signing contract handle. It keeps the Reader's query surface.
type Writer struct {
	*Reader
	opts *bind.TransactOpts
}

func (w *Writer) From() common.Address {
	return w.opts.From
}

func (w *Writer) CreateCampaign(ctx context.Context, params CreateParams) (*types.Transaction, error) {
	tx, err := w.contract.Transact(w.txOpts(ctx, nil), "createCampaign",
		params.Title,
		params.Description,
		params.GoalWei,
		big.NewInt(int64(params.Duration.Seconds())),
		params.ImageURI,
		params.Category,
		params.CreatorInfo,
	)
	if err != nil {
		return nil, Classify(err)
	}

	logger.Info("createCampaign submitted", zap.String("tx", tx.Hash().Hex()))
	return tx, nil
}

func (w *Writer) Donate(ctx context.Context, campaignID uint64, amountWei *big.Int) (*types.Transaction, error) {
	tx, err := w.contract.Transact(w.txOpts(ctx, amountWei), "donate", new(big.Int).SetUint64(campaignID))
	if err != nil {
		return nil, Classify(err)
	}

	logger.Info("donate submitted", zap.Uint64("campaign", campaignID), zap.String("tx", tx.Hash().Hex()))
	return tx, nil
}

func (w *Writer) Withdraw(ctx context.Context, campaignID uint64) (*types.Transaction, error) {
	tx, err := w.contract.Transact(w.txOpts(ctx, nil), "withdraw", new(big.Int).SetUint64(campaignID))
	if err != nil {
		return nil, Classify(err)
	}

	logger.Info("withdraw submitted", zap.Uint64("campaign", campaignID), zap.String("tx", tx.Hash().Hex()))
	return tx, nil
}

func (w *Writer) ClaimRefund(ctx context.Context, campaignID uint64) (*types.Transaction, error) {
	tx, err := w.contract.Transact(w.txOpts(ctx, nil), "claimRefund", new(big.Int).SetUint64(campaignID))
	if err != nil {
		return nil, Classify(err)
	}

	logger.Info("claimRefund submitted", zap.Uint64("campaign", campaignID), zap.String("tx", tx.Hash().Hex()))
	return tx, nil
}

// WaitMined blocks until the transaction is included in a block or the
// context expires. A context deadline does not mean the transaction failed;
// it may still confirm later.
func (w *Writer) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, w.client, tx)
}

func (w *Writer) txOpts(ctx context.Context, value *big.Int) *bind.TransactOpts {
	opts := *w.opts
	opts.Context = ctx
	opts.Value = value
	return &opts
}
