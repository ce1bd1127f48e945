package cmd

import (
	"context"
	"fmt"

	"trevpay/internal/bootstrap"
	"trevpay/internal/model"
	"trevpay/internal/service/receipt"

	"github.com/spf13/cobra"
)

var receiptCmd = &cobra.Command{
	Use:   "receipt",
	Short: "支付收据",
}

var receiptListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出收据",
	RunE: func(cmd *cobra.Command, args []string) error {
		driver, _ := cmd.Flags().GetString("driver")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			var (
				list []model.ReceiptRecord
				err  error
			)
			switch {
			case driver != "":
				list, err = app.Receipts.GetReceiptsByDriver(ctx, driver)
			case status != "":
				list, err = app.Receipts.GetReceiptsByStatus(ctx, status)
			default:
				list = app.Receipts.Receipts(limit)
			}
			if err != nil {
				return err
			}

			shown := 0
			for _, r := range list {
				if status != "" && r.Status != status {
					continue
				}
				if limit > 0 && shown >= limit {
					break
				}
				shown++
				fmt.Printf("%-36s %-7s %-20s %s%s\n", r.ID, r.Status, r.DriverName, r.Currency, r.Amount.StringFixed(2))
			}
			return nil
		})
	},
}

var receiptShowCmd = &cobra.Command{
	Use:   "show <receipt-id>",
	Short: "打印纯文本收据",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			rec, err := app.Receipts.GetReceipt(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Print(receipt.RenderText(rec))
			return nil
		})
	},
}

func init() {
	receiptListCmd.Flags().String("driver", "", "按司机 ID 过滤")
	receiptListCmd.Flags().String("status", "", "paid | queued | failed")
	receiptListCmd.Flags().Int("limit", 20, "最多显示条数, 0 表示全部")

	receiptCmd.AddCommand(receiptListCmd, receiptShowCmd)
	rootCmd.AddCommand(receiptCmd)
}
