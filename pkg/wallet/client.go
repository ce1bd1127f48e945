// Package wallet is the signing side of a payment: it dry-runs the
// deposit call against chain state, then signs and broadcasts it.
package wallet

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"trevpay/pkg/wallet/types"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Client 钱包签名客户端
type Client interface {
	// Simulate 在当前链状态上试运行 deposit 调用, 失败返回 *SimulationError
	Simulate(ctx context.Context, req types.PaymentRequest) (*types.PreparedCall, error)
	// Execute 签名并广播, 返回交易 hash; 失败返回 *ExecutionError
	Execute(ctx context.Context, call *types.PreparedCall) (string, error)
}

// SimulationError 试运行失败 (例如 insufficient funds, revert)
type SimulationError struct {
	Err error
}

func (e *SimulationError) Error() string { return e.Err.Error() }
func (e *SimulationError) Unwrap() error { return e.Err }

// ExecutionError 签名或广播失败
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }
func (e *ExecutionError) Unwrap() error { return e.Err }

// depositABI: function deposit(address recipient, uint256 amount) payable
const depositABI = `[{"type":"function","name":"deposit","stateMutability":"payable","inputs":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}]`

var parsedDepositABI = mustParseABI(depositABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse deposit abi: %v", err))
	}
	return parsed
}

// PackDeposit ABI 编码 deposit(recipient, amount)
func PackDeposit(recipient string, amount *big.Int) ([]byte, error) {
	if !common.IsHexAddress(recipient) {
		return nil, fmt.Errorf("invalid recipient address %q", recipient)
	}
	return parsedDepositABI.Pack("deposit", common.HexToAddress(recipient), amount)
}
