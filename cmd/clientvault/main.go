package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kjayal/clientvault/config"
)

var version = "dev"

var configFiles []string

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "clientvault",
	Short:   "Client record service backed by SQL metadata and S3 object storage",
	Long: `Clientvault manages client records: structured metadata lives in a
relational database while the associated files live in an S3-compatible
object store. Clients upload files directly to the store using
time-limited presigned URLs issued by the server.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&configFiles, "config", nil, "config file path(s), later files override earlier ones (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (env: CLIENTVAULT_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (env: CLIENTVAULT_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("bucket", "", "object store bucket name (env: CLIENTVAULT_OBJECT_STORE_BUCKET)")
	rootCmd.PersistentFlags().String("region", "", "object store region (env: CLIENTVAULT_OBJECT_STORE_REGION)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
