package cmd

import (
	"context"
	"fmt"

	"trevpay/internal/bootstrap"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "管理员账号",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "创建管理员",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		role, _ := cmd.Flags().GetString("role")
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			u, err := app.Admin.Create(ctx, args[0], password, role)
			if err != nil {
				return err
			}
			fmt.Printf("已创建管理员 %s (%s)\n", u.Username, u.Role)
			return nil
		})
	},
}

func init() {
	adminCreateCmd.Flags().String("password", "", "密码")
	adminCreateCmd.Flags().String("role", "admin", "admin | super_admin")
	_ = adminCreateCmd.MarkFlagRequired("password")

	adminCmd.AddCommand(adminCreateCmd)
	rootCmd.AddCommand(adminCmd)
}
