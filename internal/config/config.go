package config

import (
	"fmt"
	"os"
)

// Default configuration values.
const (
	DefaultServer     = "localhost:8080"
	DefaultListenAddr = ":8080"
	DefaultSTUN       = "stun:stun.l.google.com:19302"
)

// Config holds application configuration.
type Config struct {
	// Server is the coordinator host[:port].
	Server string

	// WebSocketURL is constructed from Server.
	WebSocketURL string

	// ListenAddr is the bind address for the serve command.
	ListenAddr string

	// ICE servers for WebRTC.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// Secure selects wss:// over ws://.
	Secure bool
}

// Options for loading config with CLI flag overrides.
type Options struct {
	Server     string
	ListenAddr string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	Secure     bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	server := firstNonEmpty(opts.Server, os.Getenv("QUICKTALK_SERVER"), DefaultServer)
	listenAddr := firstNonEmpty(opts.ListenAddr, os.Getenv("QUICKTALK_LISTEN"), DefaultListenAddr)
	stunServer := firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstNonEmpty(opts.TURNServer, os.Getenv("TURN_SERVER"))
	turnUser := firstNonEmpty(opts.TURNUser, os.Getenv("TURN_USERNAME"))
	turnPass := firstNonEmpty(opts.TURNPass, os.Getenv("TURN_PASSWORD"))

	secure := opts.Secure
	if !secure && os.Getenv("QUICKTALK_SECURE") == "1" {
		secure = true
	}

	scheme := "ws"
	if secure {
		scheme = "wss"
	}

	return &Config{
		Server:       server,
		WebSocketURL: fmt.Sprintf("%s://%s/ws", scheme, server),
		ListenAddr:   listenAddr,
		STUNServer:   stunServer,
		TURNServer:   turnServer,
		TURNUser:     turnUser,
		TURNPass:     turnPass,
		Secure:       secure,
	}, nil
}

// GetSTUNServers returns STUN server URLs as strings.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
