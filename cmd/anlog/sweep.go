package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/intentor/anlog/pkg/features"
	"github.com/intentor/anlog/pkg/types"
)

func newSweepCommand(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep [dir]",
		Short: "Delete rotated log files older than the retention",
		Long: `Sweep runs one expiry pass over a rotated log directory, deleting every
file whose period started --retention or more periods ago. The directory
defaults to rolling.dir from the configuration.`,
		Example: `  anlog sweep /var/log/app --retention 7
  anlog sweep /var/log/app --period hour --retention 48 --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Rolling.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return errors.New("no directory given and rolling.dir is not set")
			}
			if a.cfg.Rolling.Retention <= 0 {
				return errors.New("retention must be at least 1 period")
			}
			period, err := features.ParsePeriod(a.cfg.Rolling.Period)
			if err != nil {
				return err
			}

			loc, err := a.cfg.Rolling.Location()
			if err != nil {
				return err
			}

			var failures int
			sweeper, err := features.NewExpirySweeper(dir, period, a.cfg.Rolling.Retention,
				features.WithSweepExtension(a.cfg.Rolling.Extension),
				features.WithSweepLocation(loc),
				features.WithSweepErrorHandler(func(e types.LogError) {
					failures++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", e.Destination, e)
				}))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				for _, f := range sweeper.Expired() {
					fmt.Fprintln(out, f.Path)
				}
			} else {
				for _, path := range sweeper.SweepNow() {
					fmt.Fprintln(out, path)
				}
			}
			if failures > 0 {
				return errors.Errorf("%d files could not be swept", failures)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list expired files without deleting them")
	return cmd
}
