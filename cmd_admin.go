package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/adminview"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/cli"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/client"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/form"
)

type adminFlags struct {
	server string
	token  string
}

func adminCmd() *cobra.Command {
	f := &adminFlags{}
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage table rows through a running server",
	}
	server := os.Getenv("PORTAL_URL")
	if server == "" {
		server = "http://localhost:8080"
	}
	cmd.PersistentFlags().StringVar(&f.server, "server", server, "Portal base URL ($PORTAL_URL)")
	cmd.PersistentFlags().StringVar(&f.token, "token", os.Getenv("PORTAL_TOKEN"), "Admin bearer token ($PORTAL_TOKEN)")

	cmd.AddCommand(
		adminLoginCmd(f),
		adminListCmd(f),
		adminExportCmd(f),
		adminCreateCmd(f),
		adminEditCmd(f),
		adminDeleteCmd(f),
	)
	return cmd
}

func adminLoginCmd(f *adminFlags) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange admin credentials for a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if email == "" {
					email = cfg.Auth.AdminEmail
				}
				if password == "" {
					password = cfg.Auth.AdminPass
				}
			}
			c := client.New(f.server, "")
			resp, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			out := cli.New(cmd.OutOrStdout())
			if out.IsTTY() {
				out.Success("Logged in as %s", resp.User.Email)
				out.Dim("export PORTAL_TOKEN=%s", resp.Token)
				return nil
			}
			out.Println(resp.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email (default: configured admin)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (default: configured admin)")
	return cmd
}

type viewFlags struct {
	sort   string
	desc   bool
	search string
}

func (v *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&v.sort, "sort", "", "Sort column")
	cmd.Flags().BoolVar(&v.desc, "desc", false, "Sort descending")
	cmd.Flags().StringVar(&v.search, "search", "", "Search every filterable column")
}

// open selects table and applies sort and search.
func (v *viewFlags) open(ctx context.Context, f *adminFlags, table string) (*adminview.View, error) {
	view := adminview.New(client.New(f.server, f.token))
	if err := view.Select(ctx, table); err != nil {
		return nil, err
	}
	if v.sort != "" {
		if err := view.SetSort(ctx, v.sort); err != nil {
			return nil, err
		}
		if v.desc {
			if err := view.SetSort(ctx, v.sort); err != nil {
				return nil, err
			}
		}
	}
	if v.search != "" {
		if err := view.SetSearch(ctx, v.search); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func adminListCmd(f *adminFlags) *cobra.Command {
	var vf viewFlags
	var page, limit int
	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "Show one page of rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			view, err := vf.open(ctx, f, args[0])
			if err != nil {
				return err
			}
			if limit > 0 {
				if err := view.SetLimit(ctx, limit); err != nil {
					return err
				}
			}
			if page > 1 {
				if err := view.SetPage(ctx, page); err != nil {
					return err
				}
			}

			s := view.Snapshot()
			headers := make([]string, 0, len(s.Schema.Properties))
			for _, fld := range s.Schema.Properties {
				headers = append(headers, fld.Label())
			}
			rows := make([][]string, 0, len(s.Rows))
			for _, r := range s.Rows {
				rows = append(rows, adminview.Cells(s.Schema, r))
			}
			out := cli.New(cmd.OutOrStdout())
			if len(rows) == 0 {
				out.Dim("No %s found", s.Schema.DisplayTitle())
				return nil
			}
			out.Table(headers, rows)
			if out.IsTTY() {
				out.Dim("Page %d of %d (%d rows)", s.Page, s.TotalPages, s.Total)
			}
			return nil
		},
	}
	vf.register(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "Rows per page")
	return cmd
}

func adminExportCmd(f *adminFlags) *cobra.Command {
	var vf viewFlags
	var output string
	cmd := &cobra.Command{
		Use:   "export <table>",
		Short: "Download rows as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			view, err := vf.open(ctx, f, args[0])
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			if err := view.Export(ctx, w); err != nil {
				return err
			}
			if output != "" {
				cli.New(cmd.ErrOrStderr()).Success("Exported %s to %s", args[0], output)
			}
			return nil
		},
	}
	vf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write CSV to this file instead of stdout")
	return cmd
}

// applySets feeds each column=value pair through the open form's inputs.
func applySets(view *adminview.View, st form.State, sets []string) (form.State, error) {
	for _, kv := range sets {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return st, errs.BadRequest("--set %q: want column=value", kv)
		}
		fld := st.Schema.Field(name)
		if fld == nil {
			return st, errs.BadRequest("%s is not a column of %s", name, st.Schema.Name())
		}
		if fld.Immutable() {
			return st, errs.BadRequest("%s is read-only", name)
		}
		var err error
		if st, err = view.Input(name, raw); err != nil {
			return st, err
		}
	}
	return st, nil
}

func adminCreateCmd(f *adminFlags) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "create <table>",
		Short: "Insert a row from --set column=value pairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			view := adminview.New(client.New(f.server, f.token))
			if err := view.Select(ctx, args[0]); err != nil {
				return err
			}
			st, err := view.OpenCreate()
			if err != nil {
				return err
			}
			if _, err := applySets(view, st, sets); err != nil {
				return err
			}
			res, err := view.Submit(ctx)
			if err != nil {
				return err
			}
			out := cli.New(cmd.OutOrStdout())
			if !out.IsTTY() {
				out.Println(strconv.FormatInt(res.ID, 10))
				return nil
			}
			out.Success("Created %s #%d", args[0], res.ID)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "column=value to store (repeatable)")
	return cmd
}

func adminEditCmd(f *adminFlags) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "edit <table> <id>",
		Short: "Change columns of one row with --set column=value pairs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			table, id := args[0], args[1]
			api := client.New(f.server, f.token)
			view := adminview.New(api)
			if err := view.Select(ctx, table); err != nil {
				return err
			}
			row, err := api.Get(ctx, table, id)
			if err != nil {
				return err
			}
			st, err := view.OpenEdit(row)
			if err != nil {
				return err
			}
			if st, err = applySets(view, st, sets); err != nil {
				return err
			}
			out := cli.New(cmd.OutOrStdout())
			if !st.Dirty() {
				out.Dim("No changes")
				return nil
			}
			if _, err := view.Submit(ctx); err != nil {
				return err
			}
			out.Success("Updated %s #%s", table, id)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "column=value to change (repeatable)")
	return cmd
}

func adminDeleteCmd(f *adminFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete one row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			table, id := args[0], args[1]
			view := adminview.New(client.New(f.server, f.token))
			if err := view.Select(ctx, table); err != nil {
				return err
			}
			view.RequestDelete(id)
			out := cli.New(cmd.OutOrStdout())
			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete %s #%s? [y/N] ", table, id)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					view.CancelDelete()
					out.Dim("Cancelled")
					return nil
				}
			}
			if err := view.ConfirmDelete(ctx); err != nil {
				return err
			}
			out.Success("Deleted %s #%s", table, id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
