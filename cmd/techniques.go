package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dojodesk/dojoctl/internal/api"
	"github.com/dojodesk/dojoctl/internal/output"
)

var techniquesCmd = &cobra.Command{
	Use:     "techniques",
	Aliases: []string{"technique"},
	Short:   "Manage the technique catalog",
}

var techniquesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List catalog techniques",
	RunE:    runTechniquesList,
}

var techniquesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a technique to the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runTechniquesAdd,
}

func init() {
	rootCmd.AddCommand(techniquesCmd)
	techniquesCmd.AddCommand(techniquesListCmd)
	techniquesCmd.AddCommand(techniquesAddCmd)

	techniquesListCmd.Flags().String("rank", "", "filter by examined-at rank")

	techniquesAddCmd.Flags().String("rank", "", "rank the technique is examined at")
	techniquesAddCmd.Flags().String("category", "", "category (e.g. throw, pin, strike)")
	techniquesAddCmd.Flags().String("description", "", "free-form description")
	techniquesAddCmd.MarkFlagRequired("rank")
	techniquesAddCmd.MarkFlagRequired("category")
}

func runTechniquesList(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}

	rank, _ := cmd.Flags().GetString("rank")
	techniques, err := app.API.ListTechniques(cmd.Context(), rank)
	if err != nil {
		return err
	}

	table := output.NewTable([]string{"ID", "NAME", "RANK", "CATEGORY"})
	for _, t := range techniques {
		table.AddRow([]string{t.ID, t.Name, t.Rank, t.Category})
	}
	table.Render()
	return nil
}

func runTechniquesAdd(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}

	in := api.Technique{Name: args[0]}
	in.Rank, _ = cmd.Flags().GetString("rank")
	in.Category, _ = cmd.Flags().GetString("category")
	in.Description, _ = cmd.Flags().GetString("description")

	t, err := app.API.CreateTechnique(cmd.Context(), in)
	if err != nil {
		return err
	}
	printer.Success("Added %s (%s)", t.Name, t.ID)
	return nil
}
