package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/netdiag/internal/registration"
)

var registrationCmd = &cobra.Command{
	Use:     "registration <domain>",
	Aliases: []string{"reg"},
	Short:   "Look up domain registration data (RDAP with WHOIS fallback)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}
		record, err := services.LookupRegistration(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), record, func(out io.Writer) { renderRegistration(out, record) })
	},
}

var registrationRDAPCmd = &cobra.Command{
	Use:   "rdap <domain>",
	Short: "Query RDAP only, without WHOIS fallback",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}
		record, err := services.Registration.LookupRDAP(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), record, func(out io.Writer) { renderRegistration(out, record) })
	},
}

var registrationWHOISCmd = &cobra.Command{
	Use:   "whois <domain>",
	Short: "Query WHOIS directly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}
		record, err := services.LookupWHOIS(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), record, func(out io.Writer) { renderRegistration(out, record) })
	},
}

var registrationServerCmd = &cobra.Command{
	Use:   "server <domain>",
	Short: "Show the TLD and RDAP server used for a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}
		tld, err := services.Registration.ExtractTLD(args[0])
		if err != nil {
			return err
		}
		server, err := services.Registration.FindRDAPServer(tld)
		if err != nil {
			return err
		}
		payload := map[string]string{"tld": tld, "rdap_server": server}
		return emit(cmd.OutOrStdout(), payload, func(out io.Writer) {
			fmt.Fprintf(out, "TLD:         %s\n", tld)
			if server == "" {
				fmt.Fprintf(out, "RDAP server: %s\n", colorWarn("none (WHOIS fallback)"))
				return
			}
			fmt.Fprintf(out, "RDAP server: %s\n", server)
		})
	},
}

func renderRegistration(out io.Writer, r *registration.RegistrationRecord) {
	heading(out, "Registration for %s", r.Domain)
	tw := newTable(out)
	fmt.Fprintf(tw, "Registrar:\t%s\n", orDash(r.Registrar))
	fmt.Fprintf(tw, "Registered:\t%s\n", formatDate(r.RegistrationDate))
	fmt.Fprintf(tw, "Expires:\t%s\n", formatDate(r.ExpirationDate))
	fmt.Fprintf(tw, "Updated:\t%s\n", formatDate(r.UpdatedDate))
	fmt.Fprintf(tw, "Name servers:\t%s\n", orDash(strings.Join(r.NameServers, ", ")))
	fmt.Fprintf(tw, "Status:\t%s\n", orDash(strings.Join(r.Status, ", ")))
	fmt.Fprintf(tw, "DNSSEC:\t%s\n", yesNo(r.DNSSEC))
	fmt.Fprintf(tw, "Source:\t%s %s\n", r.Source, orDash(r.Server))
	_ = tw.Flush()
}

func init() {
	registrationCmd.PersistentFlags().StringVar(&cliConfig.RDAP.BootstrapPath, "bootstrap", "", "RDAP bootstrap file (default: built-in IANA snapshot)")
	registrationCmd.PersistentFlags().IntVar(&cliConfig.RDAP.TimeoutSecs, "rdap-timeout", cliConfig.RDAP.TimeoutSecs, "RDAP request timeout in seconds")
	registrationCmd.PersistentFlags().IntVar(&cliConfig.WHOIS.TimeoutSecs, "whois-timeout", cliConfig.WHOIS.TimeoutSecs, "WHOIS query timeout in seconds")
	registrationCmd.PersistentFlags().StringVar(&cliConfig.WHOIS.Server, "whois-server", "", "WHOIS server (host[:port]); skips IANA referral")

	registrationCmd.AddCommand(registrationRDAPCmd)
	registrationCmd.AddCommand(registrationWHOISCmd)
	registrationCmd.AddCommand(registrationServerCmd)
}
