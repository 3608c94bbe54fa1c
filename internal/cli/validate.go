package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"w3plex/internal/app"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Resolve the configuration document and finalize it again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	configPath := configPathOf(cmd)
	result, err := service.Validate(ctx, app.ValidateRequest{ConfigPath: configPath})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "validated: %s (%d keys)\n", configPath, len(result.Keys))
	for _, name := range sortedKeys(result.Collections) {
		fmt.Fprintf(out, "- %s: %d\n", name, result.Collections[name])
	}
	return nil
}

func configPathOf(cmd *cobra.Command) string {
	value := defaultConfigPath
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			value = flag.Value.String()
		}
	}
	return resolveString(cmd, value, "config", "config")
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	if configured := viper.GetString(key); configured != "" {
		return configured
	}
	return value
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
