package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewboard/go-crewboard/internal/devserver"
)

// serve command flags
var (
	servePort   int
	serveHost   string
	serveTick   time.Duration
	serveRounds int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the built-in simulated orchestrator",
	Long: `Run an in-process orchestrator that implements the full external
surface (project CRUD, lifecycle, event stream, LLM call records) with
scripted runs. Useful for developing against crewboard without a real
orchestrator.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := devserver.New(devserver.Options{
			Host:   serveHost,
			Port:   servePort,
			Tick:   serveTick,
			Rounds: serveRounds,
		})
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8000, "port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "host to bind")
	serveCmd.Flags().DurationVar(&serveTick, "tick", 150*time.Millisecond, "delay between simulated events")
	serveCmd.Flags().IntVar(&serveRounds, "rounds", 2, "simulated rounds per run")
}
