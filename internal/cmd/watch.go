package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crewboard/go-crewboard/internal/dash"
	"github.com/crewboard/go-crewboard/internal/project"
)

var watchCmd = &cobra.Command{
	Use:   "watch <project-id>",
	Short: "Follow a project's live event stream",
	Long: `Focus a project and print its live telemetry as it arrives:
status transitions, conversation messages, and the running cost.

The command exits when the run reaches a terminal status or on Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d := dash.New(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Focus(ctx, projectID); err != nil {
		return err
	}
	defer d.Blur()

	changes, unsub := d.Store.Subscribe()
	defer unsub()

	fmt.Printf("Watching project %s (Ctrl-C to quit)\n", projectID)

	printed := 0
	lastStatus := project.Status("")
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
		}

		// Re-read state after every wakeup; it may have moved on
		// while we were printing.
		msgs := d.Store.Messages()
		for _, m := range msgs[printed:] {
			prefix := m.SentFrom
			if m.Type == "system" {
				prefix = "*"
			}
			fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), prefix, m.Content)
		}
		printed = len(msgs)

		p, ok := d.Store.Focused()
		if !ok {
			continue
		}
		if p.Status != lastStatus {
			lastStatus = p.Status
			fmt.Printf("-- status: %s (cost $%.4f)\n", p.Status, p.TotalCost)
			if p.Status.IsTerminal() {
				if p.OutputPath != "" {
					fmt.Printf("-- output: %s\n", p.OutputPath)
				}
				return nil
			}
		}
	}
}
