package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/internal/usecase"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tree_nodes table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.Migrate == nil {
				return fmt.Errorf("migrate requires STORE_DRIVER=postgres")
			}
			if err := a.Migrate(cmd); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func newJobsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect posted jobs",
	}

	var client string
	list := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				jobs []domain.Job
				err  error
			)
			if client != "" {
				jobs, err = a.Usecases.Jobs.ListJobsForClient(ctx, client)
			} else {
				jobs, err = a.Usecases.Jobs.ListJobs(ctx)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tBUDGET\tMILESTONES\tSTATE\tPOSTED")
			for _, j := range jobs {
				state := "active"
				if domain.IsCompleted(j.Milestones) {
					state = "completed"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					j.ID, j.Title, usecase.FormatCurrency(j.Budget.Float()), len(j.Milestones), state,
					time.UnixMilli(j.CreatedAt).UTC().Format(time.DateOnly))
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&client, "client", "", "Only jobs posted by this client uid")

	cmd.AddCommand(list)
	return cmd
}

func newWalletCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Inspect and fund wallets",
	}

	show := &cobra.Command{
		Use:   "show <uid>",
		Short: "Print a wallet with its ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wallet, err := a.Usecases.Milestones.GetWallet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), wallet)
		},
	}

	var amount float64
	deposit := &cobra.Command{
		Use:   "deposit <uid>",
		Short: "Credit a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wallet, err := a.Usecases.Milestones.Deposit(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Balance of %s is now %s\n", wallet.UID, usecase.FormatCurrency(wallet.Balance))
			return nil
		},
	}
	deposit.Flags().Float64Var(&amount, "amount", 0, "Amount to deposit")
	_ = deposit.MarkFlagRequired("amount")

	cmd.AddCommand(show, deposit)
	return cmd
}

func newUsersCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Provision accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "grant-admin <uid>",
		Short: "Create an Admin profile for a signed-in identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := a.Usecases.Profiles.GrantAdmin(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", profile.UID, profile.Role)
			return nil
		},
	})
	return cmd
}

// operator is the actor admin-only commands run as.
var operator = domain.Actor{UID: "marketctl", Role: domain.RoleAdmin}

func newReportCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print dashboard statistics as JSON",
	}

	var format, out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the milestone ledger as xlsx or csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := a.Usecases.Reports.ExportLedger(cmd.Context(), operator, format)
			if err != nil {
				return err
			}
			if out == "" {
				out = file.Name
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(file.Data)
				return err
			}
			if err := os.WriteFile(out, file.Data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", out, len(file.Data))
			return nil
		},
	}
	export.Flags().StringVar(&format, "format", domain.ExportXLSX, "xlsx or csv")
	export.Flags().StringVarP(&out, "out", "o", "", "output path, - for stdout (default: generated name)")

	cmd.AddCommand(
		export,
		&cobra.Command{
			Use:   "admin",
			Short: "Platform-wide statistics",
			RunE: func(cmd *cobra.Command, args []string) error {
				stats, err := a.Usecases.Reports.AdminReport(cmd.Context(), operator)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			},
		},
		&cobra.Command{
			Use:   "client <uid>",
			Short: "Statistics of one client",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				stats, err := a.Usecases.Reports.ClientReport(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			},
		},
		&cobra.Command{
			Use:   "freelancer <uid>",
			Short: "Statistics of one freelancer",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				stats, err := a.Usecases.Reports.FreelancerReport(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			},
		},
	)
	return cmd
}
