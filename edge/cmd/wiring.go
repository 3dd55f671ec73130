package cmd

import (
	"github.com/spf13/cobra"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a wiring test event",
	Long: `Post an AFTER_HOURS_PRESENCE event for the first configured camera.
Use it after installing a device to prove the edge can reach the backend.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newProducer()
		if err != nil {
			return err
		}
		d, err := p.WiringTest()
		if err != nil {
			return err
		}
		return deliver(cmd, p, d)
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
