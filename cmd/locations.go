package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/netdiag/internal/checker"
)

var locationsRegions []string

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List the resolvers used for propagation checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		locations := checker.DefaultLocations()
		if len(locationsRegions) > 0 {
			locations = checker.FilterByRegion(locations, locationsRegions)
		}

		payload := struct {
			Regions   []string                `json:"regions"`
			Locations []checker.ProbeLocation `json:"locations"`
		}{checker.Regions(checker.DefaultLocations()), locations}

		return emit(cmd.OutOrStdout(), payload, func(out io.Writer) {
			tw := newTable(out)
			fmt.Fprintln(tw, "NAME\tSERVER\tREGION")
			for _, loc := range locations {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", loc.Name, loc.Server, loc.Region)
			}
			_ = tw.Flush()
			fmt.Fprintf(out, "\nRegions: %v\n", payload.Regions)
		})
	},
}

func init() {
	locationsCmd.Flags().StringSliceVar(&locationsRegions, "regions", nil, "only list resolvers in these regions")
}
