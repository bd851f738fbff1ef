// Command chartc compiles rhythm charts and plays or exports the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"moria.us/chartline/build/chart"
	"moria.us/chartline/build/project"
)

type options struct {
	dir    string
	config string
	offset float64
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "chartc [command]",
		Short: "Compile rhythm charts",
		Long: `Compile a rhythm chart into its grid and note timelines.

Commands take either the path to a .tja chart, or no argument to use the
chart named in the project file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := cmd.PersistentFlags()
	f.StringVar(&opts.dir, "dir", ".", "project directory")
	f.StringVar(&opts.config, "config", project.DefaultConfig, "project file, relative to the project directory")
	f.Float64Var(&opts.offset, "offset", 0, "chart offset in seconds, when compiling a chart file directly")
	cmd.AddCommand(
		newGridCmd(&opts),
		newNotesCmd(&opts),
		newExportCmd(&opts),
		newPlayCmd(&opts),
	)
	return cmd
}

// loadProject returns the project named by the flags, or a project wrapping
// a single chart file if one is given.
func loadProject(opts *options, args []string) (*project.Project, error) {
	if len(args) == 0 {
		return project.Load(opts.dir, opts.config)
	}
	name := args[0]
	if !project.IsChartName(filepath.Base(name)) {
		return nil, fmt.Errorf("not a chart file: %q", name)
	}
	return &project.Project{
		BaseDir: filepath.Dir(name),
		Config: project.Config{
			Chart:       filepath.Base(name),
			ChartOffset: opts.offset,
		},
	}, nil
}

func compile(ctx context.Context, opts *options, args []string) (*project.Project, *chart.Timeline, error) {
	p, err := loadProject(opts, args)
	if err != nil {
		return nil, nil, err
	}
	tl, err := p.Compile(ctx)
	if err != nil {
		return nil, nil, err
	}
	return p, tl, nil
}

// printError writes err, and the durations leading up to it if it is a
// duration error.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)
	var e *chart.DurationError
	if errors.As(err, &e) && len(e.History) != 0 {
		fmt.Fprintln(w, "Durations before the error, by measure:")
		for _, line := range strings.SplitAfter(e.Dump(), "\n") {
			if line != "" {
				fmt.Fprint(w, "  ", line)
			}
		}
	}
}

func main() {
	cmd := newRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		printError(os.Stderr, err)
		logrus.Exit(1)
	}
}
