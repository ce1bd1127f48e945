package types

import (
	"fmt"
	"math/big"

	"trevpay/pkg/errno"
	"trevpay/pkg/validator"
)

// TripDetails 行程信息, 随收据一起保存
type TripDetails struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Distance string `json:"distance,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// PaymentRequest 一次链上 deposit(recipient, amount) 支付意图.
// Amount 为整数 token 单位 (wei), 换算成货币前不使用浮点数.
type PaymentRequest struct {
	ContractAddress  string       `json:"contract_address" validate:"required,eth_addr"`
	RecipientAddress string       `json:"recipient_address" validate:"required,eth_addr"`
	Amount           *big.Int     `json:"amount" validate:"required"`
	DriverID         string       `json:"driver_id" validate:"required,max=128"`
	DriverName       string       `json:"driver_name" validate:"required,max=255"`
	PaymentMethod    string       `json:"payment_method,omitempty" validate:"max=64"`
	TripDetails      *TripDetails `json:"trip_details,omitempty"`
}

// Validate 在任何状态变更之前拒绝不完整的请求
func (r *PaymentRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}
	if r.Amount.Sign() <= 0 {
		return errno.ErrValidation.WithMessage(fmt.Sprintf("amount 必须大于 0, got %s", r.Amount))
	}
	return nil
}

// PreparedCall 模拟成功后的待签名调用, 由 Execute 签名并广播
type PreparedCall struct {
	Request  PaymentRequest `json:"request"`
	From     string         `json:"from"`
	To       string         `json:"to"`    // 合约地址
	Value    *big.Int       `json:"value"` // 随调用转入的 wei
	GasLimit uint64         `json:"gas_limit"`
	Data     []byte         `json:"data"` // ABI 编码的 deposit 调用
	ChainID  int64          `json:"chain_id"`
}
