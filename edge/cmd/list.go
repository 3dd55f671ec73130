package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/quieteye/quieteye-stack/common/events"
	"github.com/quieteye/quieteye-stack/edge/pkg/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent events",
	Long:  "Fetch the most recent events from the backend, newest first",
	Example: `  quieteye-edge list
  quieteye-edge list --limit 200 -o json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		result, err := newClient().ListEvents(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}

		if outputFormat(cmd) == formatJSON {
			return output.JSON(result)
		}
		if len(result) == 0 {
			output.Info("No events")
			return nil
		}

		ptrs := make([]*events.StoredEvent, len(result))
		for i := range result {
			ptrs[i] = &result[i]
		}
		renderEvents(ptrs...)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Int("limit", 0, "number of events, 1-500 (default: backend default of 50)")
}

func renderEvents(evs ...*events.StoredEvent) {
	table := output.NewTable("ID", "TIMESTAMP", "TYPE", "SITE", "DEVICE", "CAMERA", "ZONE", "CONFIDENCE")
	for _, ev := range evs {
		zone := "-"
		if ev.Zone != nil {
			zone = *ev.Zone
		}
		table.AddRow(
			strconv.FormatInt(ev.ID, 10),
			ev.Timestamp.UTC().Format(time.RFC3339),
			string(ev.EventType),
			ev.SiteID,
			ev.DeviceID,
			ev.CameraID,
			zone,
			strconv.FormatFloat(ev.Confidence, 'f', 2, 64),
		)
	}
	table.Render()
}
