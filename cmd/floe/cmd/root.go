package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jannskiee/floe/internal/ui"
	"github.com/jannskiee/floe/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "floe",
	Short:   "Peer-to-peer file transfer tool using WebRTC, with webapp support",
	Long:    `floe is a command-line tool for transferring files directly between devices using WebRTC technology. Files flow peer to peer over an encrypted data channel; the server only brokers the connection. Share links work with the browser webapp too, so the other side does not need the CLI installed.`,
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
