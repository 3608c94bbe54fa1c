package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"w3plex/internal/app"
)

func newAppsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "List the applications declared in the configuration document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApps(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runApps(ctx context.Context, cmd *cobra.Command) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Applications(ctx, app.AppsRequest{ConfigPath: configPathOf(cmd)})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(result.Applications) == 0 {
		fmt.Fprintln(out, "no applications")
		return nil
	}
	for _, summary := range result.Applications {
		fmt.Fprintf(out, "- %s (%s)", summary.Name, summary.Constructor)
		if len(summary.Actions) > 0 {
			fmt.Fprintf(out, ": %s", strings.Join(summary.Actions, ", "))
		}
		fmt.Fprintln(out)
	}
	return nil
}
