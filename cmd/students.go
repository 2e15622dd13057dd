package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/dojodesk/dojoctl/internal/api"
	"github.com/dojodesk/dojoctl/internal/output"
)

var studentsCmd = &cobra.Command{
	Use:     "students",
	Aliases: []string{"student"},
	Short:   "Manage student records",
}

var studentsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List students",
	Long: `List student records.

Examples:
  dojoctl students list                # All students
  dojoctl students list --rank shodan  # Filter by current rank
  dojoctl students list --active       # Active students only
  dojoctl students list --json         # Output as JSON`,
	RunE: runStudentsList,
}

var studentsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one student",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudentsGet,
}

var studentsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Enroll a new student",
	RunE:  runStudentsCreate,
}

var studentsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a student record",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudentsUpdate,
}

var studentsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a student record",
	Args:    cobra.ExactArgs(1),
	RunE:    runStudentsDelete,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsListCmd)
	studentsCmd.AddCommand(studentsGetCmd)
	studentsCmd.AddCommand(studentsCreateCmd)
	studentsCmd.AddCommand(studentsUpdateCmd)
	studentsCmd.AddCommand(studentsDeleteCmd)

	studentsListCmd.Flags().String("rank", "", "filter by current rank")
	studentsListCmd.Flags().Bool("active", false, "only active students")
	studentsListCmd.Flags().Bool("json", false, "output as JSON")

	for _, c := range []*cobra.Command{studentsCreateCmd, studentsUpdateCmd} {
		c.Flags().String("first-name", "", "first name")
		c.Flags().String("last-name", "", "last name")
		c.Flags().String("email", "", "email address")
		c.Flags().String("rank", "", "current rank")
	}
	studentsCreateCmd.MarkFlagRequired("first-name")
	studentsCreateCmd.MarkFlagRequired("last-name")
	studentsCreateCmd.MarkFlagRequired("email")
}

func runStudentsList(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}

	filter := api.StudentFilter{}
	filter.Rank, _ = cmd.Flags().GetString("rank")
	if active, _ := cmd.Flags().GetBool("active"); active {
		filter.Active = &active
	}

	students, err := app.API.ListStudents(cmd.Context(), filter)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(students)
	}

	table := output.NewTable([]string{"ID", "NAME", "RANK", "ACTIVE", "ENROLLED"})
	for _, s := range students {
		active := ""
		if s.Active {
			active = "yes"
		}
		table.AddRow([]string{
			s.ID,
			s.FirstName + " " + s.LastName,
			s.Rank,
			active,
			s.EnrolledAt.Format("2006-01-02"),
		})
	}
	table.Render()
	return nil
}

func runStudentsGet(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}

	s, err := app.API.GetStudent(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	printer.Header(s.FirstName + " " + s.LastName)
	printer.Info("ID:       %s", s.ID)
	printer.Info("Email:    %s", s.Email)
	printer.Info("Rank:     %s", s.Rank)
	printer.Info("Active:   %t", s.Active)
	printer.Info("Enrolled: %s", s.EnrolledAt.Format("2006-01-02"))
	if s.LastGrading != nil {
		printer.Info("Last grading: %s", s.LastGrading.Format("2006-01-02"))
	}
	return nil
}

func runStudentsCreate(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}

	in := studentInputFromFlags(cmd)
	s, err := app.API.CreateStudent(cmd.Context(), in)
	if err != nil {
		return err
	}
	printer.Success("Enrolled %s %s (%s)", s.FirstName, s.LastName, s.ID)
	return nil
}

func runStudentsUpdate(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}

	in := studentInputFromFlags(cmd)
	s, err := app.API.UpdateStudent(cmd.Context(), args[0], in)
	if err != nil {
		return err
	}
	printer.Success("Updated %s %s", s.FirstName, s.LastName)
	return nil
}

func runStudentsDelete(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}

	if err := app.API.DeleteStudent(cmd.Context(), args[0]); err != nil {
		return err
	}
	printer.Success("Deleted student %s", args[0])
	return nil
}

func studentInputFromFlags(cmd *cobra.Command) api.StudentInput {
	var in api.StudentInput
	in.FirstName, _ = cmd.Flags().GetString("first-name")
	in.LastName, _ = cmd.Flags().GetString("last-name")
	in.Email, _ = cmd.Flags().GetString("email")
	in.Rank, _ = cmd.Flags().GetString("rank")
	return in
}
