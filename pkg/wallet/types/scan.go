package types

import (
	"math/big"
	"net/url"

	"trevpay/pkg/errno"

	"github.com/ethereum/go-ethereum/common"
)

// DepositSignature 扫码支付唯一支持的合约方法
const DepositSignature = "deposit(address,uint256)"

// ParseScanPayload 解析收款二维码, 形如
// https://pay.example/?contract=0x..&fn=deposit(address,uint256)&to=0x..&amt=1000000000000000000
//
// 只填充合约, 收款地址和金额; 司机信息由调用方补齐后再 Validate
func ParseScanPayload(data string) (PaymentRequest, error) {
	u, err := url.Parse(data)
	if err != nil || u.Scheme == "" {
		return PaymentRequest{}, errno.ErrValidation.WithMessage("scan payload 不是合法的 URL")
	}

	q := u.Query()
	contract, fn, to, amt := q.Get("contract"), q.Get("fn"), q.Get("to"), q.Get("amt")
	if contract == "" || fn == "" || to == "" || amt == "" {
		return PaymentRequest{}, errno.ErrValidation.WithMessage("scan payload 缺少参数 (contract, fn, to, amt)")
	}
	if fn != DepositSignature {
		return PaymentRequest{}, errno.ErrValidation.WithMessage("scan payload 不支持的方法 " + fn)
	}
	if !common.IsHexAddress(contract) || !common.IsHexAddress(to) {
		return PaymentRequest{}, errno.ErrValidation.WithMessage("scan payload 地址不合法")
	}

	amount, ok := new(big.Int).SetString(amt, 10)
	if !ok {
		return PaymentRequest{}, errno.ErrValidation.WithMessage("scan payload amt 必须是整数 token 单位")
	}
	if amount.Sign() <= 0 {
		return PaymentRequest{}, errno.ErrValidation.WithMessage("scan payload amt 必须大于 0")
	}

	return PaymentRequest{
		ContractAddress:  contract,
		RecipientAddress: to,
		Amount:           amount,
	}, nil
}
