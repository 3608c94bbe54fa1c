package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"w3plex/internal/app"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <application> [args...] [key=value...]",
		Short: "Run an application from the configuration document",
		Long: "Run resolves the document, runs the named application and finalizes\n" +
			"every entity afterwards. Positional arguments usually name actions;\n" +
			"key=value pairs override the application's configured fields.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), cmd, args[0], args[1:])
		},
	}
	// Flags after the application name belong to the application.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func runRun(ctx context.Context, cmd *cobra.Command, application string, rest []string) error {
	positional, kwargs, err := splitAppArgs(rest)
	if err != nil {
		return err
	}
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Run(ctx, app.RunRequest{
		ConfigPath:  configPathOf(cmd),
		Application: application,
		Args:        positional,
		Kwargs:      kwargs,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "finished: %s\n", result.Application)
	if len(result.Actions) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "actions: %s\n", strings.Join(result.Actions, ", "))
	}
	return nil
}
