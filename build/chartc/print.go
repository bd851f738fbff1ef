package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"moria.us/chartline/build/chart"
)

func newGridCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "grid [chart.tja]",
		Short: "Print the grid timeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tl, err := compile(cmd.Context(), opts, args)
			if err != nil {
				return err
			}
			printGrid(cmd.OutOrStdout(), tl.Grid)
			return nil
		},
	}
}

func newNotesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "notes [chart.tja]",
		Short: "Print the note timeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tl, err := compile(cmd.Context(), opts, args)
			if err != nil {
				return err
			}
			printNotes(cmd.OutOrStdout(), tl.Notes)
			return nil
		},
	}
}

func printGrid(w io.Writer, evs []chart.GridEvent) {
	for _, e := range evs {
		fmt.Fprintf(w, "%10.4f %s\n", e.Time, e.Kind)
	}
}

func printNotes(w io.Writer, evs []chart.NoteEvent) {
	for _, e := range evs {
		fmt.Fprintf(w, "%10.4f %4d %s\n", e.Time, e.Measure, e.Duration)
	}
}
