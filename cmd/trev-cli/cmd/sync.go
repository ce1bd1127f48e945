package cmd

import (
	"context"
	"fmt"

	"trevpay/internal/bootstrap"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "推送未同步交易并处理支付队列",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			app.Ledger.Wait()
			if !app.Engine.TriggerSync(ctx) {
				fmt.Println("本轮同步未完成 (离线或出错)")
			}
			return printJSON(app.Engine.GetSyncStatus())
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "同步状态与汇总",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			return printJSON(map[string]interface{}{
				"sync":       app.Engine.GetSyncStatus(),
				"statistics": app.Engine.Statistics(),
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(syncCmd, statusCmd)
}
