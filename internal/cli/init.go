package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"w3plex/internal/app"
)

type initOptions struct {
	Force bool
}

func newInitCommand() *cobra.Command {
	opts := initOptions{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite existing files")
	_ = viper.BindPFlag("init_force", cmd.Flags().Lookup("force"))
	return cmd
}

func runInit(ctx context.Context, cmd *cobra.Command, opts initOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Init(ctx, app.InitRequest{
		ConfigPath: configPathOf(cmd),
		Force:      resolveBool(cmd, opts.Force, "init_force", "force"),
	})
	if err != nil {
		return err
	}
	for _, path := range result.Written {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	}
	return nil
}
