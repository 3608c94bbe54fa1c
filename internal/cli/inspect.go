package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"w3plex/internal/app"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the entities of each collection in the resolved document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runInspect(ctx context.Context, cmd *cobra.Command) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Inspect(ctx, app.InspectRequest{ConfigPath: configPathOf(cmd)})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "keys: %s\n", strings.Join(result.Keys, ", "))
	for _, collection := range result.Collections {
		fmt.Fprintf(out, "%s:\n", collection.Name)
		for _, entity := range collection.Entities {
			fmt.Fprintf(out, "- %s\n", entity)
		}
	}
	return nil
}

func sortedKeys[K ~string, V any](values map[K]V) []K {
	keys := make([]K, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
