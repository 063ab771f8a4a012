package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/triad-ai/triad/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the default configuration to .triad/config.yaml in the current
directory, or to ~/.config/triad/config.yaml with --user.`,
	Args: cobra.NoArgs,
	// Configuration may not exist yet, so skip loading it.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              runInit,
}

var (
	initForce bool
	initUser  bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&initUser, "user", false, "write the per-user configuration")
}

func runInit(cmd *cobra.Command, _ []string) error {
	path, err := initPath()
	if err != nil {
		return err
	}
	written, err := config.EnsureConfigFile(path, initForce)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !written {
		fmt.Fprintf(out, "%s already exists (use --force to overwrite)\n", path)
		return nil
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	fmt.Fprintln(out, "Set GOOGLE_API_KEY (and SERPER_API_KEY for web context) before asking questions.")
	return nil
}

func initPath() (string, error) {
	if initUser {
		return config.UserConfigPath()
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return config.ProjectConfigPath(wd), nil
}
