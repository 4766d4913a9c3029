package cmd

import (
	"CampusTrade/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动校园二手交易服务器",
	Long:  `启动校园二手交易平台的HTTP服务器，提供用户与商品API`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
