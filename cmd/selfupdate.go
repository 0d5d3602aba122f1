package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// githubRepoSlug is the repository whose releases self-update installs from.
const githubRepoSlug = "giantswarm/mcp-kubectl"

// newSelfUpdateCmd creates the Cobra command that replaces the running
// binary with the latest GitHub release.
func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Update mcp-kubectl to the latest version",
		Long: `Check the GitHub releases of mcp-kubectl and, if a newer version
exists, replace the current executable with it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelfUpdate(cmd.Context(), cmd)
		},
	}
}

func runSelfUpdate(ctx context.Context, cmd *cobra.Command) error {
	current := rootCmd.Version
	if current == "" || current == "dev" {
		return errors.New("cannot self-update a development version")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(githubRepoSlug))
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s", githubRepoSlug)
	}

	out := cmd.OutOrStdout()
	if latest.LessOrEqual(current) {
		_, _ = fmt.Fprintf(out, "Current version %s is the latest\n", current)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Successfully updated to version %s\n", latest.Version())
	return nil
}
