package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/quieteye/quieteye-stack/common/logging"
	"github.com/quieteye/quieteye-stack/edge/internal/producer"
	"github.com/quieteye/quieteye-stack/edge/pkg/output"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Send synthetic detections",
	Long: `Generate random detections for the configured cameras and post them to
the backend. Useful for filling a development dashboard.`,
	Example: `  quieteye-edge seed --count 100
  quieteye-edge seed --count 500 --spread 72h
  quieteye-edge seed --count 5 --dry-run -o json`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Int("count", 10, "number of events")
	seedCmd.Flags().Duration("spread", 0, "spread event times over this window before now (default: all now)")
	seedCmd.Flags().Int64("seed", 0, "random seed for reproducible runs (default: random)")
	seedCmd.Flags().Bool("dry-run", false, "print the events instead of posting them")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	count, _ := flags.GetInt("count")
	spread, _ := flags.GetDuration("spread")
	seed, _ := flags.GetInt64("seed")
	dryRun, _ := flags.GetBool("dry-run")

	if count < 1 {
		return errors.New("--count must be at least 1")
	}
	if spread < 0 {
		return errors.New("--spread must not be negative")
	}

	p, err := newProducer()
	if err != nil {
		return err
	}
	gen := producer.NewSynthetic(p, seed)
	c := newClient()
	ctx := cmd.Context()

	sent, failed := 0, 0
	for i := range count {
		ev, err := gen.Event(spread)
		if err != nil {
			return err
		}

		if dryRun {
			if err := output.JSON(ev); err != nil {
				return err
			}
			continue
		}

		if _, err := c.PostEvent(ctx, ev); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("interrupted after %d events: %w", sent, ctx.Err())
			}
			failed++
			logger.WarnContext(ctx, "failed to post synthetic event",
				slog.Int("index", i),
				logging.EventType(string(ev.EventType)),
				logging.CameraID(ev.CameraID),
				logging.Error(err),
			)
			continue
		}
		sent++
	}

	if dryRun {
		return nil
	}
	if failed > 0 {
		output.Warn("Posted %d of %d events, %d failed", sent, count, failed)
		return fmt.Errorf("%d events failed", failed)
	}
	output.Success("Posted %d events to %s", sent, c.BaseURL())
	return nil
}
