package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quicktalk/quicktalk/internal/call"
	"github.com/quicktalk/quicktalk/internal/ui"
)

var flagRoomID string

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Create a room and wait for a peer to call",
	Long: `Create a room on the coordinator, print its id to share, and wait in the
call screen for a peer to join.

Examples:
  quicktalk create --name alice
  quicktalk create --name alice --room movie-night
  quicktalk create --name alice --server talk.example.com --secure`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return createRoom()
	},
}

func createRoom() error {
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

	roomID, err := session.CreateRoom(flagRoomID)
	if err != nil {
		return err
	}
	ui.RenderRoomInfo(roomID)

	if err := session.Start(); err != nil {
		return err
	}

	return runCall(session)
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name")
	createCmd.Flags().StringVarP(&flagRoomID, "room", "r", "", "Requested room id (generated when empty)")
	createCmd.Flags().StringVarP(&flagServer, "server", "d", "", "Coordinator host[:port]")
	createCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	createCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	createCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	createCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	createCmd.Flags().BoolVar(&flagSecure, "secure", false, "Use wss:// to reach the coordinator")
}
