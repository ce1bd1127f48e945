package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"trevpay/internal/bootstrap"
	"trevpay/pkg/config"
	"trevpay/pkg/logger"

	"github.com/spf13/cobra"
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "trev-cli",
	Short: "TrevPay 离线支付命令行工具",
	Long: `直接操作本地账本, 收据与支付队列.
与 trev-server 共用同一份配置 (config.yaml / 环境变量).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Init()
		logger.Init(config.Global.App.Env)
	},
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// withApp 构造并启动服务 (不开启定时同步), fn 返回后等待后台同步结束再关闭
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := bootstrap.New(ctx, config.Global)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		return err
	}
	return fn(ctx, app)
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
