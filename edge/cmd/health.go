package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quieteye/quieteye-stack/edge/pkg/output"
)

var errDatabaseDown = errors.New("backend is up but its database is unreachable")

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend health",
	Long:  "Query the backend health endpoint. Exits non-zero when the backend or its database is unreachable.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := newClient()

		hs, err := c.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("backend %s unreachable: %w", c.BaseURL(), err)
		}

		if outputFormat(cmd) == formatJSON {
			if err := output.JSON(hs); err != nil {
				return err
			}
		} else {
			output.Info("%s at %s: %s", hs.Service, c.BaseURL(), hs.Status)
			if hs.DBOK {
				output.Success("Database reachable")
			}
		}

		if !hs.DBOK {
			return errDatabaseDown
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
