package cmd

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quicktalk/quicktalk/internal/config"
	"github.com/quicktalk/quicktalk/internal/server"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling coordinator",
	Long: `Run the signaling coordinator: the rendezvous point that tracks rooms,
routes offer/answer/ICE exchanges between the two members of each room and
relays chat. All state is in-memory and lives only as long as the process.

Examples:
  quicktalk serve
  quicktalk serve --listen :9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load(config.Options{ListenAddr: flagListen})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	hub := server.NewHub()
	go hub.Run()

	slog.Info("starting signaling server", "addr", cfg.ListenAddr)
	fmt.Printf("Signaling server listening on %s\n", cfg.ListenAddr)

	return http.ListenAndServe(cfg.ListenAddr, server.NewServeMux(hub))
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Listen address (default :8080)")
}
