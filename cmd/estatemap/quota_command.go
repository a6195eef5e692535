package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"estatemap/internal/models"
	"estatemap/internal/quota"
)

func newQuotaCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "quota [operation]",
		Short: "Show this month's Places usage against the free caps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), ctx.cfg, ctx.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			var reports []quota.Report
			if len(args) == 1 {
				op := models.Operation(args[0])
				if !op.Valid() {
					return fmt.Errorf("unknown operation %q", args[0])
				}
				report, err := a.selector.Report(cmd.Context(), op)
				if err != nil {
					return err
				}
				reports = []quota.Report{report}
			} else {
				reports, err = a.selector.Reports(cmd.Context())
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			fmt.Fprintln(out, renderQuota(reports))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the reports as JSON")
	return cmd
}

func renderQuota(reports []quota.Report) string {
	headers := []string{"Operation", "Tier", "Used", "Free cap", "Remaining", "Next"}
	var rows [][]string
	for _, r := range reports {
		next := string(r.Next)
		if r.Degraded {
			next = "degraded"
		}
		for i, tier := range r.Tiers {
			row := []string{"", string(tier.Tier), strconv.Itoa(tier.Used), "-", "-", ""}
			if i == 0 {
				row[0] = string(r.Operation)
				row[5] = next
			}
			if !tier.Uncapped {
				row[3] = strconv.Itoa(tier.FreeCap)
				row[4] = strconv.Itoa(tier.Remaining())
			}
			rows = append(rows, row)
		}
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft})
}
