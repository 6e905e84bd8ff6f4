package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/cli"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/db"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/ddl"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/dialect"
)

func schemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List the table schemas the server would load",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := loadRegistry(cfg)
			if err != nil {
				return err
			}
			var rows [][]string
			for _, s := range reg.All() {
				rows = append(rows, []string{
					s.Name(),
					s.DisplayTitle(),
					strconv.Itoa(len(s.Properties)),
					strings.Join(s.Required, ", "),
				})
			}
			cli.New(cmd.OutOrStdout()).Table([]string{"Table", "Title", "Columns", "Required"}, rows)
			return nil
		},
	}
}

func ddlCmd() *cobra.Command {
	var driver string
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print CREATE TABLE statements for every schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if driver == "" {
				driver = cfg.Database.Driver
			}
			d, err := dialect.ForDriver(driver)
			if err != nil {
				return err
			}
			reg, err := loadRegistry(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), ddl.Script(d, reg.All()))
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "", "SQL dialect: sqlite, pgx or postgres (default: configured driver)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := loadRegistry(cfg)
			if err != nil {
				return err
			}
			pool, d, err := db.Open(cmd.Context(), cfg.DBOptions())
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := ddl.Migrate(cmd.Context(), pool, d, reg.All()); err != nil {
				return err
			}
			cli.New(cmd.OutOrStdout()).Success("%d tables ready on %s", len(reg.Names()), d.Name())
			return nil
		},
	}
}
