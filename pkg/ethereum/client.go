// Package ethereum wraps the go-ethereum client with the read-only chain
// operations the indexer consumes: head block number, bounded log queries
// for the workflow contract, transaction receipts and block timestamps.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/clearstream/workflow-indexer/pkg/config"
)

// Client is a read-only Ethereum RPC client bound to the workflow contract.
type Client struct {
	config   *config.EthereumConfig
	client   *ethclient.Client
	contract common.Address
	timeout  time.Duration
	logger   *zap.Logger
}

// NewClient connects to the configured RPC endpoint.
func NewClient(cfg *config.EthereumConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}

	contract := common.HexToAddress(cfg.ContractAddress)

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger.Info("Connected to Ethereum",
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("contract", contract.Hex()))

	return &Client{
		config:   cfg,
		client:   client,
		contract: contract,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// HeadBlockNumber returns the chain head block number.
func (c *Client) HeadBlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// FilterWorkflowLogs fetches and decodes all workflow events emitted by the
// contract in the inclusive block range [fromBlock, toBlock].
func (c *Client) FilterWorkflowLogs(ctx context.Context, fromBlock, toBlock uint64) ([]WorkflowLog, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := goethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{eventTopics},
	}

	logs, err := c.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs [%d, %d]: %w", fromBlock, toBlock, err)
	}

	decoded := make([]WorkflowLog, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			// Reorged-out log surfaced inside the confirmed range; the
			// confirmation gate should make this unreachable.
			c.logger.Warn("Skipping removed log",
				zap.String("tx_hash", lg.TxHash.Hex()),
				zap.Uint("log_index", lg.Index))
			continue
		}
		wl, err := DecodeLog(lg)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, wl)
	}
	return decoded, nil
}

// TransactionIndex returns the position of the transaction within its block.
func (c *Client) TransactionIndex(ctx context.Context, txHash string) (uint, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return 0, fmt.Errorf("failed to get receipt for %s: %w", txHash, err)
	}
	return receipt.TransactionIndex, nil
}

// BlockTimestamp returns the chain-reported timestamp of a block.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	header, err := c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, fmt.Errorf("failed to get block %d: %w", number, err)
	}
	return header.Time, nil
}
