package cmd

import (
	"context"
	"fmt"

	"trevpay/internal/bootstrap"
	"trevpay/internal/handler/request"
	"trevpay/pkg/config"
	"trevpay/pkg/wallet/types"

	"github.com/spf13/cobra"
)

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "司机支付与离线队列",
}

var paySubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "立即上链支付 (模拟 -> 签名 -> 广播)",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := paymentFromFlags(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			res, err := app.Gateway.SubmitPayment(ctx, req)
			if err != nil {
				return err
			}
			app.Ledger.Wait()
			return printJSON(res)
		})
	},
}

var payQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "加入离线队列, 下次同步时处理",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := paymentFromFlags(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			p, err := app.Gateway.QueuePayment(ctx, req)
			if err != nil {
				return err
			}
			app.Ledger.Wait()
			return printJSON(p)
		})
	},
}

var payScanCmd = &cobra.Command{
	Use:   "scan <payload>",
	Short: "按收款二维码内容支付; --queue 时只入队",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var r request.ScanPaymentRequest
		r.Payload = args[0]
		r.DriverID, _ = f.GetString("driver-id")
		r.DriverName, _ = f.GetString("driver-name")
		r.PaymentMethod, _ = f.GetString("method")
		queue, _ := f.GetBool("queue")

		req, err := r.ToPaymentRequest()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			defer app.Ledger.Wait()
			if queue || !app.Gateway.HasWallet() {
				p, err := app.Gateway.QueuePayment(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(p)
			}
			res, err := app.Gateway.SubmitPayment(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

var payProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "处理队列中的支付",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			if !app.Connectivity.Online() {
				return fmt.Errorf("device is offline")
			}
			processed, started := app.Gateway.ProcessQueuedPayments(ctx)
			if !started {
				fmt.Println("队列正在处理中")
				return nil
			}
			fmt.Printf("已处理 %d 笔\n", processed)
			return printJSON(app.Gateway.Statistics())
		})
	},
}

var payListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出队列",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			for _, p := range app.Gateway.QueuedPayments() {
				fmt.Printf("%-36s %-10s %-20s %s %s\n", p.ID, p.Status, p.DriverName, p.Amount, p.Error)
			}
			return nil
		})
	},
}

var payClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "清除已完成 / 失败的队列条目",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			if err := app.Gateway.ClearCompletedPayments(ctx); err != nil {
				return err
			}
			return printJSON(app.Gateway.Statistics())
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{paySubmitCmd, payQueueCmd} {
		f := c.Flags()
		f.String("contract", "", "合约地址, 默认取 wallet.contract_address")
		f.String("recipient", "", "收款地址")
		f.String("amount", "", "整数 token 单位 (wei)")
		f.String("driver-id", "", "司机 ID")
		f.String("driver-name", "", "司机姓名")
		f.String("method", "", "支付方式标签")
		_ = c.MarkFlagRequired("recipient")
		_ = c.MarkFlagRequired("amount")
		_ = c.MarkFlagRequired("driver-id")
		_ = c.MarkFlagRequired("driver-name")
	}

	sf := payScanCmd.Flags()
	sf.String("driver-id", "", "司机 ID")
	sf.String("driver-name", "", "司机姓名")
	sf.String("method", "", "支付方式标签")
	sf.Bool("queue", false, "只入队, 不立即上链")
	_ = payScanCmd.MarkFlagRequired("driver-id")
	_ = payScanCmd.MarkFlagRequired("driver-name")

	payCmd.AddCommand(paySubmitCmd, payQueueCmd, payScanCmd, payProcessCmd, payListCmd, payClearCmd)
	rootCmd.AddCommand(payCmd)
}

func paymentFromFlags(cmd *cobra.Command) (types.PaymentRequest, error) {
	f := cmd.Flags()
	var r request.SubmitPaymentRequest
	r.ContractAddress, _ = f.GetString("contract")
	r.RecipientAddress, _ = f.GetString("recipient")
	r.Amount, _ = f.GetString("amount")
	r.DriverID, _ = f.GetString("driver-id")
	r.DriverName, _ = f.GetString("driver-name")
	r.PaymentMethod, _ = f.GetString("method")
	return r.ToPaymentRequest(config.Global.Wallet.ContractAddress)
}
