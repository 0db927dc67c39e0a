package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kilianp07/worklog/app"
	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/jobs/backfill"
	"github.com/kilianp07/worklog/pkg/export"
)

func newMigrateCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			svc, err := app.New(cfg)
			if err != nil {
				return err
			}
			closeService(svc)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.Store.Driver)
			return err
		},
	}
}

type logOptions struct {
	vehicle     int64
	date        string
	active      string
	maintenance string
	actor       int64
}

func newLogCmd(o *rootOptions) *cobra.Command {
	lo := &logOptions{}
	c := &cobra.Command{
		Use:   "log",
		Short: "Add hours to a vehicle's day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().UTC()
			if lo.date != "" {
				d, err := ledger.ParseDay(lo.date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				day = d
			}
			active, err := decimal.NewFromString(lo.active)
			if err != nil {
				return fmt.Errorf("--active: %w", err)
			}
			maint, err := decimal.NewFromString(lo.maintenance)
			if err != nil {
				return fmt.Errorf("--maintenance: %w", err)
			}
			return o.withService(func(svc *app.Service) error {
				e, err := svc.Accumulator().Accumulate(commandContext(cmd), lo.vehicle, day, active, maint, lo.actor)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "entry %d vehicle %d %s: active %s maintenance %s total %s\n",
					e.ID, e.VehicleID, e.WorkDate.Format(ledger.DateLayout),
					e.ActiveHours.StringFixed(ledger.HoursScale),
					e.MaintenanceHours.StringFixed(ledger.HoursScale),
					e.Total().StringFixed(ledger.HoursScale))
				return err
			})
		},
	}
	f := c.Flags()
	f.Int64Var(&lo.vehicle, "vehicle", 0, "vehicle id")
	f.StringVar(&lo.date, "date", "", "work date YYYY-MM-DD, today by default")
	f.StringVar(&lo.active, "active", "0", "active hours")
	f.StringVar(&lo.maintenance, "maintenance", "0", "maintenance hours")
	f.Int64Var(&lo.actor, "actor", 0, "acting user id")
	_ = c.MarkFlagRequired("vehicle")
	_ = c.MarkFlagRequired("actor")
	return c
}

type reportOptions struct {
	week     string
	vehicles []int64
	format   string
	from     string
	to       string
}

func newReportCmd(o *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "report",
		Short: "Utilization reports",
	}
	ro := &reportOptions{}
	weekly := &cobra.Command{
		Use:   "weekly",
		Short: "Weekly utilization per vehicle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().UTC()
			if ro.week != "" {
				d, err := ledger.ParseDay(ro.week)
				if err != nil {
					return fmt.Errorf("--week must be YYYY-MM-DD: %w", err)
				}
				day = d
			}
			return o.withService(func(svc *app.Service) error {
				rep, err := svc.Reports().Weekly(commandContext(cmd), day, ro.vehicles)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch ro.format {
				case "json":
					return export.WriteJSON(out, rep)
				case "csv":
					return export.WriteCSV(out, rep)
				case "table":
				default:
					return fmt.Errorf("--format must be table, json or csv")
				}
				fmt.Fprintf(out, "week %s .. %s, base %sh\n",
					rep.WeekStart.Format(ledger.DateLayout), rep.WeekEnd.Format(ledger.DateLayout), rep.BaseHours)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tVEHICLE\tACTIVE\tMAINT\tIDLE\tACTIVE%\tMAINT%\tIDLE%")
				for _, u := range rep.Vehicles {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", u.VehicleID, u.Name,
						u.Active.StringFixed(2), u.Maintenance.StringFixed(2), u.Idle.StringFixed(2),
						u.ActivePct.StringFixed(2), u.MaintenancePct.StringFixed(2), u.IdlePct.StringFixed(2))
				}
				return tw.Flush()
			})
		},
	}
	weekly.Flags().StringVar(&ro.week, "week", "", "any day of the week YYYY-MM-DD, this week by default")
	weekly.Flags().Int64SliceVar(&ro.vehicles, "vehicle", nil, "vehicle ids, all by default")
	weekly.Flags().StringVar(&ro.format, "format", "table", "output format: table, json or csv")

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Export weekly utilization of past weeks to the metrics sinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := ledger.ParseDay(ro.from)
			if err != nil {
				return fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
			}
			to := time.Now().UTC()
			if ro.to != "" {
				if to, err = ledger.ParseDay(ro.to); err != nil {
					return fmt.Errorf("--to must be YYYY-MM-DD: %w", err)
				}
			}
			return o.withService(func(svc *app.Service) error {
				n, err := backfill.Weeks(commandContext(cmd), svc.Reports(), from, to)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d weeks\n", n)
				return err
			})
		},
	}
	backfillCmd.Flags().StringVar(&ro.from, "from", "", "first day YYYY-MM-DD")
	backfillCmd.Flags().StringVar(&ro.to, "to", "", "last day YYYY-MM-DD, today by default")
	_ = backfillCmd.MarkFlagRequired("from")

	c.AddCommand(weekly, backfillCmd)
	return c
}
