package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/quieteye/quieteye-stack/edge/pkg/output"
)

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Show the site's cameras",
	Long:  "Print the site, device and cameras from the site config file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		site, err := loadSite()
		if err != nil {
			return err
		}

		if outputFormat(cmd) == formatJSON {
			return output.JSON(site)
		}

		output.Info("Site %s, device %s", site.SiteID, site.DeviceID)
		if len(site.Cameras) == 0 {
			output.Warn("No cameras configured")
			return nil
		}

		table := output.NewTable("CAMERA", "NAME", "RTSP", "ZONES")
		for _, c := range site.Cameras {
			zones := strings.Join(c.Zones, ",")
			if zones == "" {
				zones = "-"
			}
			table.AddRow(c.CameraID, c.Name, c.RTSPURL, zones)
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(camerasCmd)
}
