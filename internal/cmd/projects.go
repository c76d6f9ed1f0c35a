package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crewboard/go-crewboard/internal/api"
	"github.com/crewboard/go-crewboard/internal/dash"
)

// projects command flags
var (
	createName       string
	createIdea       string
	createInvestment float64
	createRounds     int
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List and manage projects on the orchestrator",
	Long: `List, create, and control projects on the orchestrator.

Examples:
  crewboard projects list
  crewboard projects create --name tetris --idea "Write a tetris game"
  crewboard projects start p0001
  crewboard projects stop p0001`,
	RunE: runProjectsList,
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE:  runProjectsList,
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	RunE:  runProjectsCreate,
}

var projectsStartCmd = &cobra.Command{
	Use:   "start <project-id>",
	Short: "Start a project run",
	Args:  cobra.ExactArgs(1),
	RunE:  lifecycleRunE(func(d *dash.Dashboard) lifecycleFn { return d.Store.Start }),
}

var projectsStopCmd = &cobra.Command{
	Use:   "stop <project-id>",
	Short: "Stop a running project",
	Args:  cobra.ExactArgs(1),
	RunE:  lifecycleRunE(func(d *dash.Dashboard) lifecycleFn { return d.Store.Stop }),
}

var projectsPauseCmd = &cobra.Command{
	Use:   "pause <project-id>",
	Short: "Pause a running project",
	Args:  cobra.ExactArgs(1),
	RunE:  lifecycleRunE(func(d *dash.Dashboard) lifecycleFn { return d.Store.Pause }),
}

var projectsResumeCmd = &cobra.Command{
	Use:   "resume <project-id>",
	Short: "Resume a paused project",
	Args:  cobra.ExactArgs(1),
	RunE:  lifecycleRunE(func(d *dash.Dashboard) lifecycleFn { return d.Store.Resume }),
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE:  lifecycleRunE(func(d *dash.Dashboard) lifecycleFn { return d.Store.Delete }),
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d := dash.New(cfg)

	if err := d.Store.LoadProjects(cmd.Context()); err != nil {
		return err
	}

	projects := d.Store.Projects()
	if len(projects) == 0 {
		fmt.Println("No projects found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tCREATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Status, p.CreatedAt)
	}
	return w.Flush()
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	if createName == "" || createIdea == "" {
		return fmt.Errorf("--name and --idea are required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d := dash.New(cfg)

	p, err := d.Store.Create(cmd.Context(), api.CreateRequest{
		Name:       createName,
		Idea:       createIdea,
		Investment: createInvestment,
		NRound:     createRounds,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created project %s (%s)\n", p.ID, p.Name)
	return nil
}

type lifecycleFn = func(ctx context.Context, id string) error

func lifecycleRunE(pick func(*dash.Dashboard) lifecycleFn) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		d := dash.New(cfg)
		return pick(d)(cmd.Context(), args[0])
	}
}

func init() {
	projectsCreateCmd.Flags().StringVar(&createName, "name", "", "project name")
	projectsCreateCmd.Flags().StringVar(&createIdea, "idea", "", "project idea / requirement")
	projectsCreateCmd.Flags().Float64Var(&createInvestment, "investment", 3.0, "budget in USD")
	projectsCreateCmd.Flags().IntVar(&createRounds, "rounds", 20, "maximum run rounds")

	projectsCmd.AddCommand(projectsListCmd, projectsCreateCmd,
		projectsStartCmd, projectsStopCmd, projectsPauseCmd,
		projectsResumeCmd, projectsDeleteCmd)
}
