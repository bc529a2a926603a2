package commands

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *App) newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and inspect available models",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List models available to the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runModelsList(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <model-id>",
		Short: "Show one model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runModelsGet(cmd.Context(), args[0])
		},
	})

	return cmd
}

func (a *App) runModelsList(ctx context.Context) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}
	list, err := client.ListModels(ctx)
	if err != nil {
		return a.fail(err)
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, list)
	}

	models := list.Data
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOWNED BY\tCREATED")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.OwnedBy, formatUnix(m.Created))
	}
	return tw.Flush()
}

func (a *App) runModelsGet(ctx context.Context, id string) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}
	model, err := client.RetrieveModel(ctx, id)
	if err != nil {
		return a.fail(err)
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, model)
	}
	fmt.Fprintf(a.stdout, "%s  owned by %s  created %s\n", model.ID, model.OwnedBy, formatUnix(model.Created))
	return nil
}
