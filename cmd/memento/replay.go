package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/terraskye/memento"
	"github.com/terraskye/memento/eventbus/journal"
	"github.com/terraskye/memento/internal/ledger"
)

var replayTimeline string

var replayCmd = &cobra.Command{
	Use:   "replay <journal>",
	Short: "Decode a JSON-lines event journal and list its events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger.RegisterEvents()

		f, err := os.Open(filepath.Clean(args[0]))
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer f.Close()

		events := journal.NewReader(f)
		if replayTimeline != "" {
			timeline, err := uuid.Parse(replayTimeline)
			if err != nil {
				return fmt.Errorf("parsing --timeline: %w", err)
			}
			events = memento.Filter(events, func(ev memento.Event) bool {
				return ev.TimelineID() == timeline
			})
		}

		out := cmd.OutOrStdout()
		n, err := memento.Replay(cmd.Context(), events, func(_ context.Context, ev memento.Event) {
			fmt.Fprintf(out, "%s %s %s timeline=%s\n",
				ev.OccurredAt().Format(time.RFC3339Nano), memento.EventName(ev), ev.EventID(), ev.TimelineID())
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d events\n", n)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayTimeline, "timeline", "", "only list events of this timeline (uuid; the default timeline is "+uuid.Nil.String()+")")
}
