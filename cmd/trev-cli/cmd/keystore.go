package cmd

import (
	"fmt"

	"trevpay/pkg/config"
	"trevpay/pkg/wallet"

	"github.com/spf13/cobra"
)

var keystoreCmd = &cobra.Command{
	Use:   "keystore",
	Short: "签名私钥",
}

var keystoreNewCmd = &cobra.Command{
	Use:   "new",
	Short: "生成新的签名私钥并加密保存",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		password, _ := cmd.Flags().GetString("password")
		if path == "" {
			path = config.Global.Wallet.KeystorePath
		}
		if password == "" {
			password = config.Global.Wallet.Password
		}
		if password == "" {
			return fmt.Errorf("password is required (--password or WALLET_PASSWORD)")
		}

		address, err := wallet.NewKeystore(path, password)
		if err != nil {
			return err
		}
		fmt.Println("---------------------------------------------------")
		fmt.Printf("地址 (Address): %s\n", address)
		fmt.Printf("Keystore: %s\n", path)
		fmt.Println("---------------------------------------------------")
		fmt.Println("请妥善保管密码！丢失后无法解密私钥。")
		return nil
	},
}

func init() {
	keystoreNewCmd.Flags().String("path", "", "keystore 文件路径, 默认取 wallet.keystore_path")
	keystoreNewCmd.Flags().String("password", "", "加密密码")

	keystoreCmd.AddCommand(keystoreNewCmd)
	rootCmd.AddCommand(keystoreCmd)
}
