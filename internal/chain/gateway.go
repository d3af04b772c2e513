// Package chain holds the gateway to the crowdfunding contract: a read-only
// handle for campaign queries and a signing handle for mutating calls. No
// caching happens here; callers above own that.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"crowdfund/internal/config"
	"crowdfund/internal/logger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

type Gateway struct {
	rpcURL          string
	contractAddress common.Address
	chainID         uint64
	privateKey      string
	contractABI     abi.ABI
}

func NewGateway(configuration config.Config) (*Gateway, error) {
	if !common.IsHexAddress(configuration.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", configuration.ContractAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	return &Gateway{
		rpcURL:          configuration.RPCURL,
		contractAddress: common.HexToAddress(configuration.ContractAddress),
		chainID:         configuration.ChainID,
		privateKey:      configuration.PrivateKey,
		contractABI:     parsed,
	}, nil
}

// ReadOnly returns a contract handle usable without a signing key.
func (g *Gateway) ReadOnly(ctx context.Context) (*Reader, error) {
	client, err := g.dial(ctx)
	if err != nil {
		return nil, err
	}

	return &Reader{
		client:      client,
		address:     g.contractAddress,
		contractABI: g.contractABI,
		contract:    bind.NewBoundContract(g.contractAddress, g.contractABI, client, client, client),
	}, nil
}

// Signing returns a contract handle bound to the configured signing key.
func (g *Gateway) Signing(ctx context.Context) (*Writer, error) {
	if g.privateKey == "" {
		return nil, fmt.Errorf("%w: no signing key configured", ErrNoProvider)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(g.privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}

	reader, err := g.ReadOnly(ctx)
	if err != nil {
		return nil, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(g.chainID))
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}

	logger.Debug("signing handle ready", zap.String("from", opts.From.Hex()))
	return &Writer{Reader: reader, opts: opts}, nil
}

func (g *Gateway) dial(ctx context.Context) (*ethclient.Client, error) {
	if g.rpcURL == "" {
		return nil, fmt.Errorf("%w: RPC_URL not configured", ErrNoProvider)
	}

	client, err := ethclient.DialContext(ctx, g.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrNoProvider, g.rpcURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, &ReadError{Op: "chainId", Err: err}
	}

	if chainID.Uint64() != g.chainID {
		client.Close()
		return nil, &WrongNetworkError{Got: chainID.Uint64(), Want: g.chainID}
	}

	return client, nil
}
