package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/triad-ai/triad/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and dependencies",
	Long: `Validate the configuration, then verify that the language model, web
search, vector memory and session store it points at are usable.`,
	Args: cobra.NoArgs,
	// Invalid configuration is reported as a check instead of aborting.
	PersistentPreRunE: func(*cobra.Command, []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
	RunE: runDoctor,
}

var doctorFormat string

var errDoctorFailed = errors.New("doctor found failing checks")

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().StringVarP(&doctorFormat, "format", "f", formatText, "output format (text, json, yaml)")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(doctorFormat, formatText, formatJSON, formatYAML); err != nil {
		return err
	}

	report := diagnostics.NewDoctor(appConfig).Run(runContext(cmd))

	out := cmd.OutOrStdout()
	if doctorFormat == formatText {
		writeReportText(out, report)
	} else if err := writeStructured(out, doctorFormat, report); err != nil {
		return err
	}

	if report.Failed() {
		return errDoctorFailed
	}
	return nil
}

var statusIcons = map[diagnostics.Status]string{
	diagnostics.StatusOK:   "✓",
	diagnostics.StatusWarn: "!",
	diagnostics.StatusFail: "✗",
}

func writeReportText(w io.Writer, r diagnostics.Report) {
	fmt.Fprintln(w, "Checks:")
	for _, c := range r.Checks {
		fmt.Fprintf(w, "  %s %-9s %s\n", statusIcons[c.Status], c.Name, c.Detail)
	}

	h := r.Host
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Host:")
	fmt.Fprintf(w, "  platform  %s/%s\n", h.OS, h.Arch)
	if h.CPUModel != "" {
		fmt.Fprintf(w, "  cpu       %s (%d cores, %d threads)\n", h.CPUModel, h.CPUCores, h.CPUThreads)
	}
	if h.Load1 > 0 {
		fmt.Fprintf(w, "  load      %.2f %.2f %.2f\n", h.Load1, h.Load5, h.Load15)
	}
	if len(h.GPUs) > 0 {
		fmt.Fprintf(w, "  gpu       %s\n", strings.Join(h.GPUs, ", "))
	}
}
