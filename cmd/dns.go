package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/netdiag/internal/checker"
)

var (
	dnsRecordTypes  []string
	propagationType string
)

var dnsCmd = &cobra.Command{
	Use:   "dns",
	Short: "Resolve DNS records and check propagation",
}

var dnsLookupCmd = &cobra.Command{
	Use:   "lookup <domain>",
	Short: "Look up DNS records through the system resolver",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}

		types := make([]checker.RecordType, 0, len(dnsRecordTypes))
		for _, t := range dnsRecordTypes {
			rt, err := checker.ParseRecordType(t)
			if err != nil {
				return err
			}
			types = append(types, rt)
		}

		result, err := services.DNS.LookupRecords(cmd.Context(), args[0], types)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), result, func(out io.Writer) { renderDNSResult(out, result) })
	},
}

var dnsPropagationCmd = &cobra.Command{
	Use:   "propagation <domain>",
	Short: "Compare answers from public resolvers around the world",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}

		rt, err := checker.ParseRecordType(propagationType)
		if err != nil {
			return err
		}
		status, err := services.DNS.CheckPropagation(cmd.Context(), args[0], rt, checker.PropagationOptions{
			Regions:       cliConfig.DNS.Regions,
			MaxLocations:  cliConfig.DNS.MaxLocations,
			CustomServers: cliConfig.DNS.CustomServers,
		})
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), status, func(out io.Writer) { renderPropagation(out, status) })
	},
}

func renderDNSResult(out io.Writer, result *checker.DNSResult) {
	heading(out, "DNS records for %s", result.Domain)
	tw := newTable(out)
	fmt.Fprintln(tw, "TYPE\tVALUE\tTTL")
	for _, rec := range result.Records {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", rec.Type, rec.Value, rec.TTL)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "\nQueried at %s\n", result.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
}

func renderPropagation(out io.Writer, status *checker.PropagationStatus) {
	heading(out, "%s propagation for %s", status.RecordType, status.Domain)
	tw := newTable(out)
	fmt.Fprintln(tw, "LOCATION\tSERVER\tREGION\tSTATUS\tTIME\tRECORDS")
	for _, loc := range status.Locations {
		values := make([]string, 0, len(loc.Records))
		for _, rec := range loc.Records {
			values = append(values, rec.Value)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dms\t%v\n",
			loc.Location.Name, loc.Location.Server, loc.Location.Region,
			formatStatusWithColor(string(loc.Status)), loc.ResponseTime, values)
	}
	_ = tw.Flush()

	fmt.Fprintln(out)
	if status.FullyPropagated {
		fmt.Fprintln(out, formatStatusWithColor("propagated"))
	} else {
		fmt.Fprintln(out, formatStatusWithColor("partial"))
	}
	for _, inc := range status.Inconsistencies {
		fmt.Fprintf(out, "  %s %s\n", colorWarn("!"), inc)
	}
}

func init() {
	dnsCmd.PersistentFlags().IntVar(&cliConfig.DNS.TimeoutSecs, "dns-timeout", cliConfig.DNS.TimeoutSecs, "timeout per DNS query in seconds")
	dnsCmd.PersistentFlags().StringSliceVar(&cliConfig.DNS.Nameservers, "nameserver", nil, "system resolver override (host[:port]); repeatable")

	dnsLookupCmd.Flags().StringSliceVarP(&dnsRecordTypes, "types", "t", nil, "record types to query (default: A,AAAA,MX,TXT,CNAME,NS,SOA)")

	dnsPropagationCmd.Flags().StringVarP(&propagationType, "type", "t", string(checker.RecordA), "record type to compare")
	dnsPropagationCmd.Flags().StringSliceVar(&cliConfig.DNS.Regions, "regions", nil, "only probe resolvers in these regions")
	dnsPropagationCmd.Flags().IntVar(&cliConfig.DNS.MaxLocations, "max-locations", cliConfig.DNS.MaxLocations, "maximum number of resolvers to probe (hard limit 30)")
	dnsPropagationCmd.Flags().StringSliceVar(&cliConfig.DNS.CustomServers, "servers", nil, "probe these resolver addresses instead of the catalog")

	dnsCmd.AddCommand(dnsLookupCmd)
	dnsCmd.AddCommand(dnsPropagationCmd)
}
