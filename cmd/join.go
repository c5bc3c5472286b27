package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quicktalk/quicktalk/internal/call"
	"github.com/quicktalk/quicktalk/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join an existing room",
	Long: `Join a room created by a peer and negotiate the call.

Examples:
  quicktalk join happy-otter-0042 --name bob
  quicktalk join happy-otter-0042 --name bob --server talk.example.com --secure`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func joinRoom(roomID string) error {
	if flagName == "" {
		return fmt.Errorf("a display name is required (--name)")
	}

	cfg, err := loadCallConfig()
	if err != nil {
		return err
	}

	stopSpinner := ui.RunConnectionSpinner("Connecting to server...")
	defer stopSpinner()
	ctx, err := NewConnectionContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()
	stopSpinner()

	session := call.NewSession(ctx.Client, ctx.Handler, iceServers(cfg), flagName)

	peer, err := session.JoinRoom(roomID)
	if err != nil {
		return err
	}
	if peer != nil {
		ui.PrintSuccess(fmt.Sprintf("Joined %s with %s", roomID, peer.DisplayName))
	} else {
		ui.PrintSuccess(fmt.Sprintf("Joined %s", roomID))
	}

	if err := session.Start(); err != nil {
		return err
	}

	return runCall(session)
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name")
	joinCmd.Flags().StringVarP(&flagServer, "server", "d", "", "Coordinator host[:port]")
	joinCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	joinCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	joinCmd.Flags().BoolVar(&flagSecure, "secure", false, "Use wss:// to reach the coordinator")
}
