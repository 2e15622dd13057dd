package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dojodesk/dojoctl/internal/output"
)

var promotionsCmd = &cobra.Command{
	Use:     "promotions",
	Aliases: []string{"promotion", "belts"},
	Short:   "Manage belt promotions",
}

var promotionsListCmd = &cobra.Command{
	Use:     "list <student-id>",
	Aliases: []string{"ls"},
	Short:   "Show a student's belt progression",
	Args:    cobra.ExactArgs(1),
	RunE:    runPromotionsList,
}

var promotionsRecordCmd = &cobra.Command{
	Use:   "record <student-id>",
	Short: "Record a belt promotion",
	Long: `Record a belt promotion for a student. The rank ladder is enforced
by the server; an out-of-order promotion is rejected.

Example:
  dojoctl promotions record st-042 --to-rank shodan --examined-by "M. Ueshiba"`,
	Args: cobra.ExactArgs(1),
	RunE: runPromotionsRecord,
}

func init() {
	rootCmd.AddCommand(promotionsCmd)
	promotionsCmd.AddCommand(promotionsListCmd)
	promotionsCmd.AddCommand(promotionsRecordCmd)

	promotionsRecordCmd.Flags().String("to-rank", "", "rank being awarded")
	promotionsRecordCmd.Flags().String("examined-by", "", "examining instructor")
	promotionsRecordCmd.MarkFlagRequired("to-rank")
	promotionsRecordCmd.MarkFlagRequired("examined-by")
}

func runPromotionsList(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}

	promotions, err := app.API.ListPromotions(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	table := output.NewTable([]string{"ID", "FROM", "TO", "EXAMINED BY", "AWARDED"})
	for _, p := range promotions {
		table.AddRow([]string{
			p.ID,
			p.FromRank,
			p.ToRank,
			p.ExaminedBy,
			p.AwardedAt.Format("2006-01-02"),
		})
	}
	table.Render()
	return nil
}

func runPromotionsRecord(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}

	toRank, _ := cmd.Flags().GetString("to-rank")
	examinedBy, _ := cmd.Flags().GetString("examined-by")

	p, err := app.API.RecordPromotion(cmd.Context(), args[0], toRank, examinedBy)
	if err != nil {
		return err
	}
	printer.Success("Promoted to %s (promotion %s)", p.ToRank, p.ID)
	return nil
}
