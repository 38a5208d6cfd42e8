package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/intentor/anlog/pkg/features"
)

func newNamesCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "names [dir]",
		Short: "Show where a rotating sink would resume writing",
		Long: `Names recovers the rotation state of a log directory the way a rotating
sink does on start: the newest (stamp, sequence) file is the one the next
write appends to. With --all every rotated file is listed, newest first.`,
		Example: `  anlog names /var/log/app
  anlog names /var/log/app --period hour --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Rolling.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return errors.New("no directory given and rolling.dir is not set")
			}
			period, err := features.ParsePeriod(a.cfg.Rolling.Period)
			if err != nil {
				return err
			}

			loc, err := a.cfg.Rolling.Location()
			if err != nil {
				return err
			}

			namer, err := features.NewNamer(dir, period, time.Now(),
				features.WithMaxSize(a.cfg.Rolling.MaxSize),
				features.WithExtension(a.cfg.Rolling.Extension),
				features.WithLocation(loc))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			state := namer.State()
			fmt.Fprintf(out, "current:  %s\n", filepath.Base(state.Path))
			fmt.Fprintf(out, "period:   %s (%s)\n", period, state.Stamp)
			fmt.Fprintf(out, "sequence: %d\n", state.Sequence)

			if !all {
				return nil
			}
			files, err := features.ScanRotated(dir, period, namer.Extension())
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(out, f.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every rotated file")
	return cmd
}
