// Command oxiportal runs the content portal and its admin tooling.
//
// Usage:
//
//	oxiportal serve                        # Start the HTTP server
//	oxiportal schemas                      # List table schemas
//	oxiportal ddl                          # Print CREATE TABLE statements
//	oxiportal migrate                      # Create missing tables
//	oxiportal admin login                  # Obtain an admin token
//	oxiportal admin list <table>           # Show a page of rows
//	oxiportal admin export <table>         # Download rows as CSV
//	oxiportal admin create <table>         # Insert a row (--set k=v)
//	oxiportal admin edit <table> <id>      # Change a row (--set k=v)
//	oxiportal admin delete <table> <id>    # Delete one row
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/cli"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/config"
)

// version is set via ldflags: -ldflags="-X main.version=v1.0.0"
var version = "dev"

var configFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "oxiportal",
		Short:         "Content portal with a schema-driven admin",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file (default: $PORTAL_CONFIG)")

	root.AddCommand(
		serveCmd(),
		schemasCmd(),
		ddlCmd(),
		migrateCmd(),
		adminCmd(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		cli.New(os.Stderr).Error("%v", err)
		os.Exit(1)
	}
}
