package main

import (
	"github.com/spf13/cobra"
)

var (
	flagDebug      bool
	flagStore      string
	flagCatalogURL string
	flagDataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Browse the demo catalog and manage a shopping cart",
	Long: `storefront - a terminal client for the public demo catalog API.

Log in with the demo credentials (test / password) to get a cart that is kept
per user in local storage between runs.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable development logging")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "storage backend: sqlite, memory, redis, postgres")
	rootCmd.PersistentFlags().StringVar(&flagCatalogURL, "catalog-url", "", "catalog API base URL")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory of the local database")

	rootCmd.AddGroup(
		&cobra.Group{ID: "catalog", Title: "Catalog:"},
		&cobra.Group{ID: "account", Title: "Account:"},
		&cobra.Group{ID: "cart", Title: "Cart:"},
	)
}
