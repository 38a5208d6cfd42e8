package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/intentor/anlog/pkg/anlog"
	"github.com/intentor/anlog/pkg/backends"
	"github.com/intentor/anlog/pkg/types"
)

// sampleRequest is the structured value attached to emitted events.
type sampleRequest struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration `log:"took"`
	Tags     []string
}

func newEmitCommand(a *app) *cobra.Command {
	var (
		count   int
		level   string
		message string
		fail    bool
		stats   bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Write sample events through the configured sinks",
		Long: `Emit builds the configured pipeline, writes --count sample events at
--level and closes every sink, waiting up to --timeout for asynchronous
sinks to drain.`,
		Example: `  anlog emit --count 10 --level warn --file /tmp/app.log
  anlog emit --rolling-dir /tmp/logs --period hour --max-size 4096 --count 1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := types.ParseLevel(level)
			if err != nil {
				return err
			}
			if count < 0 {
				return errors.Errorf("count must not be negative, got %d", count)
			}

			logger, err := anlog.New(a.cfg, anlog.WithRegisterer(prometheus.NewRegistry()))
			if err != nil {
				return err
			}

			emit(logger, lvl, count, message, fail)

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := logger.Close(ctx); err != nil {
				return errors.Wrap(err, "close logger")
			}

			if stats {
				printStats(cmd, logger.Sinks())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of events")
	cmd.Flags().StringVarP(&level, "level", "l", "info", "event level")
	cmd.Flags().StringVarP(&message, "message", "m", "sample event %d", "message; %d is replaced by the sequence number")
	cmd.Flags().BoolVar(&fail, "error", false, "attach an error with its stack trace")
	cmd.Flags().BoolVar(&stats, "stats", false, "print per-sink counters after closing")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for sinks to close")
	return cmd
}

func emit(logger *anlog.Logger, level types.Level, count int, message string, fail bool) {
	host, _ := os.Hostname()
	numbered := strings.Contains(message, "%d")
	for i := 1; i <= count; i++ {
		var args []interface{}
		if numbered {
			args = append(args, i)
		}
		a := logger.
			Append("seq", i).
			Append("host", host).
			Append("req", sampleRequest{
				Method:   "GET",
				Path:     fmt.Sprintf("/items/%d", i),
				Status:   200,
				Duration: time.Duration(i) * time.Millisecond,
				Tags:     []string{"sample", level.String()},
			})

		switch {
		case fail:
			a.ErrorWith(errors.Errorf("sample failure %d", i), message, args...)
		case level == types.LevelDebug:
			a.Debug(message, args...)
		case level == types.LevelInfo:
			a.Info(message, args...)
		case level == types.LevelWarn:
			a.Warn(message, args...)
		default:
			a.Error(message, args...)
		}
	}
}

func printStats(cmd *cobra.Command, sinks []types.Sink) {
	out := cmd.OutOrStdout()
	for _, s := range sinks {
		sp, ok := s.(backends.StatsProvider)
		if !ok {
			continue
		}
		st := sp.Stats()
		fmt.Fprintf(out, "%s: lines=%d bytes=%d dropped=%d errors=%d rotations=%d expired=%d\n",
			sp.Name(), st.LinesWritten, st.BytesWritten, st.DroppedCount, st.ErrorCount, st.Rotations, st.FilesExpired)

		if async, ok := s.(*backends.AsyncSink); ok {
			printStats(cmd, []types.Sink{async.Inner()})
		}
	}
}
