package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/worklog/app"
)

func newVehicleCmd(o *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "vehicle",
		Short: "Manage the vehicle directory",
	}
	var plate string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Register a vehicle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withService(func(svc *app.Service) error {
				v, err := svc.Directory().AddVehicle(commandContext(cmd), strings.Join(args, " "), plate)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "vehicle %d %s\n", v.ID, v.Label())
				return err
			})
		},
	}
	add.Flags().StringVar(&plate, "plate", "", "license plate")

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List vehicles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withService(func(svc *app.Service) error {
				vs, err := svc.Directory().List(commandContext(cmd))
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPLATE")
				for _, v := range vs {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", v.ID, v.Name, v.Plate)
				}
				return tw.Flush()
			})
		},
	}
	c.AddCommand(add, ls)
	return c
}

func newUserCmd(o *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "user",
		Short: "Manage ledger users",
	}
	c.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Register a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withService(func(svc *app.Service) error {
				u, err := svc.Directory().AddUser(commandContext(cmd), strings.Join(args, " "))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "user %d %s\n", u.ID, u.Name)
				return err
			})
		},
	})
	return c
}
