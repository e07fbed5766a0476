package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/netdiag/internal/checker"
)

var (
	pingLocations []string
	scanPorts     []int
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Probe a host: ping, HTTP, open ports and TLS certificate",
}

var hostPingCmd = &cobra.Command{
	Use:   "ping <host>",
	Short: "Send ICMP echo probes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}
		results, err := services.Host.Ping(cmd.Context(), args[0], pingLocations)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), results, func(out io.Writer) {
			heading(out, "Ping %s", args[0])
			tw := newTable(out)
			fmt.Fprintln(tw, "LOCATION\tSTATUS\tTIME\tERROR")
			for _, r := range results {
				state := "alive"
				if !r.Alive {
					state = "down"
				}
				fmt.Fprintf(tw, "%s\t%s\t%dms\t%s\n", r.Location, formatStatusWithColor(state), r.ResponseTime, orDash(r.Error))
			}
			_ = tw.Flush()
		})
	},
}

var hostHTTPCmd = &cobra.Command{
	Use:   "http <url>",
	Short: "Fetch a URL and report status, timing and redirects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}
		result, err := services.Host.CheckHTTP(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), result, func(out io.Writer) { renderHTTP(out, result) })
	},
}

var hostPortsCmd = &cobra.Command{
	Use:   "ports <host>",
	Short: "Scan TCP ports with connect probes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}
		result, err := services.Host.ScanPorts(cmd.Context(), args[0], scanPorts)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), result, func(out io.Writer) {
			heading(out, "Port scan of %s", result.Host)
			tw := newTable(out)
			fmt.Fprintln(tw, "PORT\tSERVICE\tSTATE")
			for _, p := range result.Ports {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", p.Port, p.Service, formatStatusWithColor(string(p.State)))
			}
			_ = tw.Flush()
			fmt.Fprintf(out, "\n%d open of %d scanned in %dms\n", result.OpenPorts, len(result.Ports), result.ScanDuration)
		})
	},
}

var hostSSLCmd = &cobra.Command{
	Use:   "ssl <domain>",
	Short: "Inspect the TLS certificate served on port 443",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}
		result, err := services.Host.CheckSSL(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), result, func(out io.Writer) { renderSSL(out, result) })
	},
}

func renderHTTP(out io.Writer, r *checker.HTTPResult) {
	heading(out, "HTTP %s", r.URL)
	tw := newTable(out)
	status := fmt.Sprintf("%d %s", r.StatusCode, r.StatusText)
	if r.StatusCode >= 400 {
		status = colorError(status)
	} else {
		status = colorSuccess(status)
	}
	fmt.Fprintf(tw, "Status:\t%s\n", status)
	fmt.Fprintf(tw, "Response time:\t%dms\n", r.ResponseTime)
	fmt.Fprintf(tw, "Final URL:\t%s\n", orDash(r.FinalURL))
	fmt.Fprintf(tw, "Redirects:\t%d\n", r.RedirectCount)
	fmt.Fprintf(tw, "Server:\t%s\n", orDash(r.Server))
	fmt.Fprintf(tw, "Content type:\t%s\n", orDash(r.ContentType))
	fmt.Fprintf(tw, "TLS:\t%s\n", orDash(r.TLSVersion))
	if r.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", colorWarn(r.Error))
	}
	_ = tw.Flush()
}

func renderSSL(out io.Writer, r *checker.SSLResult) {
	heading(out, "TLS certificate for %s", r.Host)
	tw := newTable(out)
	state := "valid"
	switch {
	case !r.Valid:
		state = "invalid"
	case r.ExpiresSoon:
		state = "expiring"
	}
	fmt.Fprintf(tw, "Status:\t%s\n", formatStatusWithColor(state))
	fmt.Fprintf(tw, "Subject:\t%s\n", r.Subject)
	fmt.Fprintf(tw, "Issuer:\t%s\n", r.Issuer)
	fmt.Fprintf(tw, "Valid from:\t%s\n", formatDate(r.ValidFrom))
	fmt.Fprintf(tw, "Valid to:\t%s (%d days)\n", formatDate(r.ValidTo), r.DaysUntilExpiry)
	fmt.Fprintf(tw, "Self-signed:\t%s\n", yesNo(r.SelfSigned))
	fmt.Fprintf(tw, "Names:\t%s\n", orDash(strings.Join(r.SubjectAltNames, ", ")))
	fmt.Fprintf(tw, "Protocol:\t%s %s\n", r.TLSVersion, r.CipherSuite)
	if r.WeakCipherSuite {
		fmt.Fprintf(tw, "Cipher:\t%s\n", colorWarn("weak cipher suite"))
	}
	fmt.Fprintf(tw, "OCSP:\t%s\n", orDash(r.OCSPStatus))
	fmt.Fprintf(tw, "Fingerprint:\t%s\n", r.Fingerprint)
	_ = tw.Flush()
}

func init() {
	hostCmd.PersistentFlags().IntVar(&cliConfig.Host.HTTPTimeoutSecs, "http-timeout", cliConfig.Host.HTTPTimeoutSecs, "HTTP check timeout in seconds")
	hostCmd.PersistentFlags().IntVar(&cliConfig.Host.PortTimeoutSecs, "port-timeout", cliConfig.Host.PortTimeoutSecs, "timeout per port connect in seconds")
	hostCmd.PersistentFlags().IntVar(&cliConfig.Host.SSLTimeoutSecs, "ssl-timeout", cliConfig.Host.SSLTimeoutSecs, "TLS handshake timeout in seconds")
	hostCmd.PersistentFlags().IntVar(&cliConfig.Host.PingTimeoutSecs, "ping-timeout", cliConfig.Host.PingTimeoutSecs, "timeout per ping probe in seconds")
	hostCmd.PersistentFlags().BoolVar(&cliConfig.Host.PingPrivileged, "privileged", false, "use raw ICMP sockets (requires root or CAP_NET_RAW)")

	hostPingCmd.Flags().StringSliceVar(&pingLocations, "locations", nil, "probe labels (at least 3 are sent)")
	hostPortsCmd.Flags().IntSliceVarP(&scanPorts, "ports", "p", nil, "ports to scan (default: common service ports)")

	hostCmd.AddCommand(hostPingCmd)
	hostCmd.AddCommand(hostHTTPCmd)
	hostCmd.AddCommand(hostPortsCmd)
	hostCmd.AddCommand(hostSSLCmd)
}
