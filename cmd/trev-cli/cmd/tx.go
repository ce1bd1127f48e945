package cmd

import (
	"context"
	"fmt"
	"time"

	"trevpay/internal/bootstrap"
	"trevpay/internal/handler/request"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "本地账本",
}

var txAddCmd = &cobra.Command{
	Use:   "add",
	Short: "记一笔交易 (在线时立即同步)",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		typ, _ := f.GetString("type")
		title, _ := f.GetString("title")
		subtitle, _ := f.GetString("subtitle")
		raw, _ := f.GetString("amount")

		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", raw, err)
		}

		req := request.CreateTransactionRequest{Type: typ, Title: title, Subtitle: subtitle, Amount: amount}
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			rec := req.ToRecord(time.Now())
			if err := app.Ledger.AddTransaction(ctx, rec); err != nil {
				return err
			}
			app.Ledger.Wait()
			fmt.Printf("已记账: %s (unsynced=%d)\n", rec.ID, app.Ledger.UnsyncedCount())
			return nil
		})
	},
}

var txListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出本地交易",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			for _, tx := range app.Ledger.Transactions(limit) {
				synced := " "
				if tx.Synced {
					synced = "✓"
				}
				fmt.Printf("[%s] %-40s %-8s %s%s  %s\n", synced, tx.ID, tx.Type, tx.Currency, tx.Amount.StringFixed(2), tx.Title)
			}
			return nil
		})
	},
}

func init() {
	txAddCmd.Flags().String("type", "deposit", "deposit | withdraw")
	txAddCmd.Flags().String("title", "", "标题")
	txAddCmd.Flags().String("subtitle", "", "副标题")
	txAddCmd.Flags().String("amount", "0", "金额 (本地货币)")
	_ = txAddCmd.MarkFlagRequired("title")

	txListCmd.Flags().Int("limit", 20, "最多显示条数, 0 表示全部")

	txCmd.AddCommand(txAddCmd, txListCmd)
	rootCmd.AddCommand(txCmd)
}
