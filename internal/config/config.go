package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Categories a campaign can be filed under. Fixed list shared with the
// contract's category strings.
var Categories = []string{
	"Charity",
	"Education",
	"Medical",
	"Technology",
	"Environment",
	"Arts",
	"Community",
	"Other",
}

type Config struct {
	RPCURL          string `envconfig:"RPC_URL"`
	ContractAddress string `envconfig:"CONTRACT_ADDRESS"`
	ChainID         uint64 `envconfig:"CHAIN_ID" default:"84532"`

	// PrivateKey is optional; without it the client is read-only.
	PrivateKey string `envconfig:"PRIVATE_KEY"`

	ExplorerURL string `envconfig:"EXPLORER_URL" default:"https://sepolia.basescan.org"`
	LedgerPath  string `envconfig:"LEDGER_PATH" default:"ledger.db"`

	// EthFiatRate converts ETH amounts into the secondary display currency.
	// Presentation only; on-chain amounts never pass through it.
	EthFiatRate    decimal.Decimal `envconfig:"ETH_FIAT_RATE" default:"250000"`
	FiatSymbol     string          `envconfig:"FIAT_SYMBOL" default:"INR"`
	MinDonationEth decimal.Decimal `envconfig:"MIN_DONATION_ETH" default:"0.001"`

	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"30s"`

	LogFile      string `envconfig:"LOG_FILE"`
	LogErrorFile string `envconfig:"LOG_ERROR_FILE"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"debug"`
	LogConsole   bool   `envconfig:"LOG_CONSOLE" default:"true"`
}

// Load reads configuration from the environment, with an optional .env file
// layered underneath.
func Load() (Config, error) {
	_ = godotenv.Load()

	var configuration Config
	if err := envconfig.Process("", &configuration); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}

	if configuration.ContractAddress == "" {
		return Config{}, fmt.Errorf("CONTRACT_ADDRESS is required")
	}

	return configuration, nil
}
