package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"trevpay/pkg/logger"
	"trevpay/pkg/wallet/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// EthClient 通过 JSON-RPC 节点完成模拟、签名和广播
type EthClient struct {
	rpc      *ethclient.Client
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	gasLimit uint64 // EstimateGas 不可用时的上限
}

// NewEthClient 连接 RPC 并读取 ChainID
func NewEthClient(ctx context.Context, rpcURL string, key *ecdsa.PrivateKey, gasLimit uint64) (*EthClient, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", rpcURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	logger.Info("Wallet client connected",
		zap.String("rpc", rpcURL),
		zap.String("chain_id", chainID.String()),
		zap.String("from", from.Hex()))

	return &EthClient{rpc: client, key: key, from: from, chainID: chainID, gasLimit: gasLimit}, nil
}

func (c *EthClient) Simulate(ctx context.Context, req types.PaymentRequest) (*types.PreparedCall, error) {
	data, err := PackDeposit(req.RecipientAddress, req.Amount)
	if err != nil {
		return nil, &SimulationError{Err: err}
	}

	to := common.HexToAddress(req.ContractAddress)
	msg := ethereum.CallMsg{
		From:  c.from,
		To:    &to,
		Value: req.Amount,
		Data:  data,
	}

	// 1. eth_call 试运行, revert / 余额不足在这里暴露
	if _, err := c.rpc.CallContract(ctx, msg, nil); err != nil {
		return nil, &SimulationError{Err: err}
	}

	// 2. 估算 gas, 留 20% 余量
	gas, err := c.rpc.EstimateGas(ctx, msg)
	if err != nil {
		return nil, &SimulationError{Err: err}
	}
	gas += gas / 5
	if c.gasLimit > 0 && gas > c.gasLimit {
		gas = c.gasLimit
	}

	return &types.PreparedCall{
		Request:  req,
		From:     c.from.Hex(),
		To:       to.Hex(),
		Value:    new(big.Int).Set(req.Amount),
		GasLimit: gas,
		Data:     data,
		ChainID:  c.chainID.Int64(),
	}, nil
}

func (c *EthClient) Execute(ctx context.Context, call *types.PreparedCall) (string, error) {
	nonce, err := c.rpc.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", &ExecutionError{Err: fmt.Errorf("pending nonce: %w", err)}
	}
	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return "", &ExecutionError{Err: fmt.Errorf("suggest gas price: %w", err)}
	}

	tx := ethtypes.NewTransaction(nonce, common.HexToAddress(call.To), call.Value, call.GasLimit, gasPrice, call.Data)
	signed, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(c.chainID), c.key)
	if err != nil {
		return "", &ExecutionError{Err: fmt.Errorf("sign tx: %w", err)}
	}

	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return "", &ExecutionError{Err: err}
	}

	logger.Info("Payment broadcast", zap.String("hash", signed.Hash().Hex()), zap.Uint64("nonce", nonce))
	return signed.Hash().Hex(), nil
}

// Close 关闭 RPC 连接
func (c *EthClient) Close() {
	c.rpc.Close()
}
