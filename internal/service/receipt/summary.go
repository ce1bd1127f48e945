package receipt

import (
	"sort"

	"trevpay/internal/model"

	"github.com/shopspring/decimal"
)

// Statistics 收据汇总, TotalAmount 只统计 paid
type Statistics struct {
	TotalReceipts int             `json:"total_receipts"`
	Paid          int             `json:"paid"`
	Queued        int             `json:"queued"`
	Failed        int             `json:"failed"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// DriverSummary 单个司机的收款汇总
type DriverSummary struct {
	DriverID          string          `json:"driver_id"`
	DriverName        string          `json:"driver_name"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	TotalTransactions int             `json:"total_transactions"`
	LastTransaction   int64           `json:"last_transaction"` // ms
}

func (s *Service) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Statistics{TotalReceipts: len(s.receipts), TotalAmount: decimal.Zero}
	for _, r := range s.receipts {
		switch r.Status {
		case model.ReceiptPaid:
			st.Paid++
			st.TotalAmount = st.TotalAmount.Add(r.Amount)
		case model.ReceiptQueued:
			st.Queued++
		case model.ReceiptFailed:
			st.Failed++
		}
	}
	return st
}

// DriverSummaries 按最近交易时间倒序
func (s *Service) DriverSummaries() []DriverSummary {
	s.mu.RLock()
	byDriver := make(map[string]*DriverSummary)
	for _, r := range s.receipts {
		d, ok := byDriver[r.DriverID]
		if !ok {
			d = &DriverSummary{DriverID: r.DriverID, DriverName: r.DriverName, TotalPaid: decimal.Zero}
			byDriver[r.DriverID] = d
		}
		d.TotalTransactions++
		if r.Status == model.ReceiptPaid {
			d.TotalPaid = d.TotalPaid.Add(r.Amount)
		}
		if r.CreatedAt > d.LastTransaction {
			d.LastTransaction = r.CreatedAt
			d.DriverName = r.DriverName
		}
	}
	s.mu.RUnlock()

	out := make([]DriverSummary, 0, len(byDriver))
	for _, d := range byDriver {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastTransaction != out[j].LastTransaction {
			return out[i].LastTransaction > out[j].LastTransaction
		}
		return out[i].DriverID < out[j].DriverID
	})
	return out
}
