package main

import (
	"os"

	"github.com/spf13/cobra"
)

// @title           Career Coach Backend API
// @version         1.0
// @description     Profile and onboarding API for the career coach app.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "Career coach backend",
	Long: `HTTP API behind the career coach frontend.

Available subcommands:
  serve   - Run the HTTP server (default)
  migrate - Apply pending database migrations and exit`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "Apply pending migrations before serving")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
