package request

import (
	"math/big"

	"trevpay/pkg/errno"
	"trevpay/pkg/wallet/types"
)

// SubmitPaymentRequest Amount 是整数 token 单位 (wei) 的十进制字符串
type SubmitPaymentRequest struct {
	ContractAddress  string             `json:"contract_address" binding:"omitempty,eth_addr"`
	RecipientAddress string             `json:"recipient_address" binding:"required,eth_addr"`
	Amount           string             `json:"amount" binding:"required,numeric"`
	DriverID         string             `json:"driver_id" binding:"required,max=128"`
	DriverName       string             `json:"driver_name" binding:"required,max=255"`
	PaymentMethod    string             `json:"payment_method" binding:"max=64"`
	TripDetails      *types.TripDetails `json:"trip_details"`
}

// ToPaymentRequest contract 为空时使用配置中的默认合约地址
func (r SubmitPaymentRequest) ToPaymentRequest(defaultContract string) (types.PaymentRequest, error) {
	amount, ok := new(big.Int).SetString(r.Amount, 10)
	if !ok {
		return types.PaymentRequest{}, errno.ErrValidation.WithMessage("amount 必须是整数 token 单位")
	}

	contract := r.ContractAddress
	if contract == "" {
		contract = defaultContract
	}
	return types.PaymentRequest{
		ContractAddress:  contract,
		RecipientAddress: r.RecipientAddress,
		Amount:           amount,
		DriverID:         r.DriverID,
		DriverName:       r.DriverName,
		PaymentMethod:    r.PaymentMethod,
		TripDetails:      r.TripDetails,
	}, nil
}

// ScanPaymentRequest 扫描收款二维码得到的 payload 加上司机信息
type ScanPaymentRequest struct {
	Payload       string             `json:"payload" binding:"required,max=2048"`
	DriverID      string             `json:"driver_id" binding:"required,max=128"`
	DriverName    string             `json:"driver_name" binding:"required,max=255"`
	PaymentMethod string             `json:"payment_method" binding:"max=64"`
	TripDetails   *types.TripDetails `json:"trip_details"`
}

func (r ScanPaymentRequest) ToPaymentRequest() (types.PaymentRequest, error) {
	pr, err := types.ParseScanPayload(r.Payload)
	if err != nil {
		return types.PaymentRequest{}, err
	}
	pr.DriverID = r.DriverID
	pr.DriverName = r.DriverName
	pr.PaymentMethod = r.PaymentMethod
	pr.TripDetails = r.TripDetails
	return pr, nil
}

type PaymentQuery struct {
	Queue bool `form:"queue"`
}

type ConnectivityRequest struct {
	Online *bool `json:"online" binding:"required"`
}
