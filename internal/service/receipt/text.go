package receipt

import (
	"fmt"
	"strings"
	"time"

	"trevpay/internal/model"
)

const textRule = "--------------------------------"

// RenderText 纯文本收据, 用于分享/打印
func RenderText(r *model.ReceiptRecord) string {
	var b strings.Builder

	b.WriteString("TREVPAY RECEIPT\n")
	b.WriteString(textRule + "\n")
	fmt.Fprintf(&b, "Receipt:  %s\n", r.ID)
	fmt.Fprintf(&b, "Date:     %s\n", time.UnixMilli(r.CreatedAt).UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Driver:   %s (%s)\n", r.DriverName, r.DriverID)
	fmt.Fprintf(&b, "Amount:   %s%s\n", r.Currency, r.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Method:   %s\n", r.PaymentMethod)
	fmt.Fprintf(&b, "Status:   %s\n", strings.ToUpper(r.Status))
	if r.TransactionHash != "" {
		fmt.Fprintf(&b, "Tx Hash:  %s\n", r.TransactionHash)
	}

	if p, err := r.Payload(); err == nil {
		if p.TripDetails != nil {
			fmt.Fprintf(&b, "Trip:     %s -> %s\n", p.TripDetails.From, p.TripDetails.To)
			if p.TripDetails.Distance != "" {
				fmt.Fprintf(&b, "Distance: %s\n", p.TripDetails.Distance)
			}
		}
		if p.Degraded {
			b.WriteString("Note:     amount shown in token units (no exchange rate)\n")
		}
		if p.FailureReason != "" {
			fmt.Fprintf(&b, "Reason:   %s\n", p.FailureReason)
		}
	}

	b.WriteString(textRule + "\n")
	return b.String()
}
