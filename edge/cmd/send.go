package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quieteye/quieteye-stack/common/events"
	"github.com/quieteye/quieteye-stack/edge/internal/producer"
	"github.com/quieteye/quieteye-stack/edge/pkg/output"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one detection",
	Long:  "Build an event for a configured camera and post it to the backend",
	Example: `  quieteye-edge send --camera CAM-01 --type FIRE_DETECTED --confidence 0.97
  quieteye-edge send --camera CAM-02 --type PERSON_IN_RESTRICTED_ZONE --confidence 0.8 \
      --zone server_room --snapshot snapshots/cam02/1.jpg --extra '{"track_id":12}'`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().String("camera", "", "camera ID from the site config")
	sendCmd.Flags().String("type", "", "event type: "+eventTypeNames())
	sendCmd.Flags().Float64("confidence", 0, "detection confidence between 0 and 1")
	sendCmd.Flags().String("zone", "", "zone name (default: the camera's first zone)")
	sendCmd.Flags().String("snapshot", "", "snapshot reference")
	sendCmd.Flags().String("extra", "", "extra attributes as a JSON object")
	_ = sendCmd.MarkFlagRequired("camera")
	_ = sendCmd.MarkFlagRequired("type")
	_ = sendCmd.MarkFlagRequired("confidence")
}

func runSend(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	camera, _ := flags.GetString("camera")
	eventType, _ := flags.GetString("type")
	confidence, _ := flags.GetFloat64("confidence")
	zone, _ := flags.GetString("zone")
	snapshot, _ := flags.GetString("snapshot")
	extraJSON, _ := flags.GetString("extra")

	var extra map[string]any
	if extraJSON != "" {
		var err error
		if extra, err = events.DecodeExtra([]byte(extraJSON)); err != nil {
			return fmt.Errorf("--extra must be a JSON object: %w", err)
		}
	}

	p, err := newProducer()
	if err != nil {
		return err
	}

	return deliver(cmd, p, producer.Detection{
		CameraID:    camera,
		EventType:   events.EventType(strings.ToUpper(eventType)),
		Confidence:  confidence,
		Zone:        zone,
		SnapshotRef: snapshot,
		Extra:       extra,
	})
}

// deliver builds and posts a single detection, then prints the stored event.
func deliver(cmd *cobra.Command, p *producer.Producer, d producer.Detection) error {
	ev, err := p.Build(d)
	if err != nil {
		return err
	}

	stored, err := newClient().PostEvent(cmd.Context(), ev)
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}

	if outputFormat(cmd) == formatJSON {
		return output.JSON(stored)
	}
	output.Success("Event posted successfully (id %d)", stored.ID)
	renderEvents(stored)
	return nil
}

func eventTypeNames() string {
	types := events.EventTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
