package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/netdiag/internal/application/batch"
)

var (
	batchFile     string
	batchTypes    []string
	batchProgress bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [domain...]",
	Short: "Analyze up to 50 domains one after another",
	Long: `Analyze a list of domains sequentially. Domains come from the arguments,
from --file (newline or comma separated, "-" for stdin), or both.
Failures of one domain or one analysis never abort the batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readBatchInput(cmd.InOrStdin(), batchFile, args)
		if err != nil {
			return err
		}
		domains := batch.ParseDomainsInput(raw)

		types, err := batch.ParseAnalysisTypes(batchTypes)
		if err != nil {
			return err
		}

		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}
		if err := services.Batch.ValidateBatchSize(domains); err != nil {
			return err
		}

		opts := batch.Options{AnalysisTypes: types}
		if batchProgress && !jsonOutput {
			progress := newProgressPrinter(cmd.ErrOrStderr(), len(domains), "batch")
			progress.Start()
			defer progress.Stop()
			opts.Progress = func(_ int, r batch.Result, elapsed time.Duration) {
				progress.Increment(r.Status == batch.StatusSuccess, elapsed.Seconds())
			}
		}

		results, err := services.Batch.ProcessBatch(cmd.Context(), domains, opts)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), struct {
				Summary batch.Summary  `json:"summary"`
				Results []batch.Result `json:"results"`
			}{batch.FormatSummary(results), results})
		}
		renderBatchSummary(cmd.OutOrStdout(), batch.FormatSummary(results), results)
		return nil
	},
}

func readBatchInput(stdin io.Reader, file string, args []string) (string, error) {
	parts := append([]string(nil), args...)
	switch file {
	case "":
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read domains from stdin: %w", err)
		}
		parts = append(parts, string(data))
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read domains file: %w", err)
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, "\n"), nil
}

func renderBatchSummary(out io.Writer, summary batch.Summary, results []batch.Result) {
	heading(out, "Batch of %d domains", summary.Total)
	tw := newTable(out)
	fmt.Fprintln(tw, "DOMAIN\tSTATUS\tDETAILS")
	for _, r := range results {
		details := r.Error
		if r.Report != nil {
			details = sectionErrors(r.Report)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Domain, formatStatusWithColor(string(r.Status)), orDash(details))
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "\n%s successful, %s failed\n",
		colorSuccess(summary.Successful), colorError(summary.Failed))
}

func sectionErrors(r *batch.DomainReport) string {
	var errs []string
	add := func(name, msg string) {
		if msg != "" {
			errs = append(errs, name+": "+msg)
		}
	}
	if r.DNS != nil {
		add("dns", r.DNS.Error)
	}
	if r.RDAP != nil {
		add("rdap", r.RDAP.Error)
	}
	if r.WHOIS != nil {
		add("whois", r.WHOIS.Error)
	}
	if r.Ping != nil {
		add("ping", r.Ping.Error)
	}
	if r.SSL != nil {
		add("ssl", r.SSL.Error)
	}
	return strings.Join(errs, "; ")
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", `file with domains ("-" reads stdin)`)
	batchCmd.Flags().StringSliceVarP(&batchTypes, "types", "t", []string{"dns"}, "analyses to run: dns, rdap, whois, host, all")
	batchCmd.Flags().BoolVar(&batchProgress, "progress", true, "show progress on stderr")
	batchCmd.Flags().IntVar(&cliConfig.Batch.MaxSize, "max-size", cliConfig.Batch.MaxSize, "maximum domains per batch")
	batchCmd.Flags().Float64Var(&cliConfig.Batch.Rate, "rate", 0, "domains per second (0 = unpaced)")
}
