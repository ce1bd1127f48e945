package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"trevpay/pkg/logger"
	"trevpay/pkg/wallet/types"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// ErrInsufficientFunds 模拟余额不足
var ErrInsufficientFunds = errors.New("insufficient funds")

const simulatedGas = 60000

// SimulatedClient 本地签名但不广播 (开发环境 / 无 RPC 时的模拟模式)
type SimulatedClient struct {
	key     *ecdsa.PrivateKey
	chainID *big.Int

	mu      sync.Mutex
	nonce   uint64
	balance *big.Int // nil 表示不限额
}

func NewSimulatedClient(key *ecdsa.PrivateKey, chainID int64, balance *big.Int) *SimulatedClient {
	return &SimulatedClient{key: key, chainID: big.NewInt(chainID), balance: balance}
}

func (c *SimulatedClient) Simulate(_ context.Context, req types.PaymentRequest) (*types.PreparedCall, error) {
	if !common.IsHexAddress(req.ContractAddress) {
		return nil, &SimulationError{Err: fmt.Errorf("invalid contract address %q", req.ContractAddress)}
	}
	data, err := PackDeposit(req.RecipientAddress, req.Amount)
	if err != nil {
		return nil, &SimulationError{Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balance != nil && c.balance.Cmp(req.Amount) < 0 {
		return nil, &SimulationError{Err: ErrInsufficientFunds}
	}

	return &types.PreparedCall{
		Request:  req,
		From:     crypto.PubkeyToAddress(c.key.PublicKey).Hex(),
		To:       common.HexToAddress(req.ContractAddress).Hex(),
		Value:    new(big.Int).Set(req.Amount),
		GasLimit: simulatedGas,
		Data:     data,
		ChainID:  c.chainID.Int64(),
	}, nil
}

func (c *SimulatedClient) Execute(_ context.Context, call *types.PreparedCall) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.balance != nil {
		if c.balance.Cmp(call.Value) < 0 {
			return "", &ExecutionError{Err: ErrInsufficientFunds}
		}
		c.balance = new(big.Int).Sub(c.balance, call.Value)
	}

	tx := ethtypes.NewTransaction(c.nonce, common.HexToAddress(call.To), call.Value, call.GasLimit, big.NewInt(30_000_000_000), call.Data)
	signed, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(c.chainID), c.key)
	if err != nil {
		return "", &ExecutionError{Err: fmt.Errorf("sign tx: %w", err)}
	}
	c.nonce++

	logger.Info("(模拟模式) 交易已签名, 未广播", zap.String("hash", signed.Hash().Hex()))
	return signed.Hash().Hex(), nil
}
