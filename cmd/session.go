package cmd

import (
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/quicktalk/quicktalk/internal/call"
	"github.com/quicktalk/quicktalk/internal/client"
	"github.com/quicktalk/quicktalk/internal/config"
	"github.com/quicktalk/quicktalk/internal/ui"
)

var (
	flagServer   string
	flagName     string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagSecure   bool
)

// ConnectionContext bundles the per-session signaling connection. One
// context per call attempt; nothing is shared across calls.
type ConnectionContext struct {
	Client  *client.Client
	Handler *client.Handler
	Config  *config.Config
}

func NewConnectionContext(cfg *config.Config) (*ConnectionContext, error) {
	c := client.NewClient(cfg.WebSocketURL)
	if err := c.Connect(); err != nil {
		return nil, call.NewError("connect to server", err)
	}

	handler := client.NewHandler(c)
	go handler.Start()

	return &ConnectionContext{
		Client:  c,
		Handler: handler,
		Config:  cfg,
	}, nil
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

func loadCallConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		Server:     flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		Secure:     flagSecure,
	})
	if err != nil {
		return nil, call.NewError("load config", err)
	}
	return cfg, nil
}

// iceServers builds the peer connection's ICE configuration. STUN/TURN are
// pure configuration here; the capability does the traversal.
func iceServers(cfg *config.Config) []webrtc.ICEServer {
	servers := []webrtc.ICEServer{{URLs: cfg.GetSTUNServers()}}

	if turnServers := cfg.GetTURNServers(); turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		servers = append(servers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	return servers
}

// runCall hands the established session to the chat TUI and prints the
// summary after hangup.
func runCall(session *call.Session) error {
	err := ui.RunChat(session)
	session.Close()

	stats := session.Stats()
	fmt.Println()
	ui.RenderCallSummary(fmt.Sprintf("%s Call Summary", ui.IconCall), ui.CallSummary{
		Room:     stats.RoomID,
		Peer:     stats.Peer,
		Duration: stats.Duration.Round(time.Second).String(),
		Sent:     stats.MessagesSent,
		Received: stats.MessagesReceived,
	})

	return err
}
