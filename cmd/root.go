package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/quicktalk/quicktalk/internal/ui"
	"github.com/quicktalk/quicktalk/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "quicktalk",
	Short:   "Two-party audio/video calls with in-session chat over WebRTC",
	Long: `QuickTalk establishes peer-to-peer audio/video sessions between two
clients through a lightweight signaling server, with a text chat riding the
same session. Run the coordinator with "quicktalk serve", then "create" a
room on one machine and "join" it from another.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
