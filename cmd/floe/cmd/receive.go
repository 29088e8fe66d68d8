package cmd

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jannskiee/floe/internal/config"
	"github.com/jannskiee/floe/internal/session"
	"github.com/jannskiee/floe/internal/signaling"
	"github.com/jannskiee/floe/internal/transfer"
	"github.com/jannskiee/floe/internal/ui"
	"github.com/jannskiee/floe/internal/utils"
)

const latencyRounding = time.Millisecond

var (
	flagReceiverDomain   string
	flagReceiverSTUN     string
	flagReceiverTURN     string
	flagReceiverTURNUser string
	flagReceiverTURNPass string
	flagReceiverRelay    bool
	flagReceiverZip      bool
	flagReceiverDir      string
)

var receiveCmd = &cobra.Command{
	Use:     "receive <room-id|url>",
	Aliases: []string{"r"},
	Short:   "Receive files from a sender",
	Long: `Receive files directly from a sender using WebRTC technology.

Examples:
  floe receive 6dfa36a7-3d34-4d39-b945-170f58f994e0
  floe receive "https://floe.app/?room=6dfa36a7-3d34-4d39-b945-170f58f994e0"
  floe receive 6dfa36a7-3d34-4d39-b945-170f58f994e0 --relay`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, err := parseRoomInput(args[0])
		if err != nil {
			return err
		}
		return receiveFiles(roomID)
	},
}

func receiveFiles(roomID string) error {
	cfg, err := config.Load(config.Options{
		Domain:     flagReceiverDomain,
		STUNServer: flagReceiverSTUN,
		TURNServer: flagReceiverTURN,
		TURNUser:   flagReceiverTURNUser,
		TURNPass:   flagReceiverTURNPass,
		ForceRelay: flagReceiverRelay,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	stopSpinner := ui.RunConnectionSpinner("Connecting to server...")
	ctx, err := session.Connect(cfg)
	if err != nil {
		stopSpinner()
		return err
	}
	defer ctx.Close()
	stopSpinner()

	if err := ctx.JoinRoom(roomID); err != nil {
		return err
	}

	outputDir, tempDir, cleanup, err := prepareOutputDir(flagReceiverZip, flagReceiverDir)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	sess, err := session.NewReceiverSession(ctx, outputDir)
	if err != nil {
		return transfer.NewError("create session", err)
	}
	defer sess.Close()

	if err := sess.Start(); err != nil {
		return err
	}

	if err := sess.Transfer(); err != nil {
		return err
	}

	return finalizeTransfer(flagReceiverZip, flagReceiverDir, tempDir)
}

// prepareOutputDir picks where the incoming files land. Zip mode
// stages them in a temp directory first.
func prepareOutputDir(zipMode bool, outputDir string) (string, string, func(), error) {
	if !zipMode {
		return outputDir, "", nil, nil
	}

	tempDir, err := os.MkdirTemp("", "floe-receive-*")
	if err != nil {
		return "", "", nil, transfer.NewError("create temp dir", err)
	}

	cleanup := func() {
		os.RemoveAll(tempDir)
	}
	return tempDir, tempDir, cleanup, nil
}

func finalizeTransfer(zipMode bool, outputDir, tempDir string) error {
	if !zipMode {
		return nil
	}

	zipName := fmt.Sprintf("floe-download-%d.zip", time.Now().UnixMilli())
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return transfer.NewError("create output dir", err)
		}
		zipName = filepath.Join(outputDir, zipName)
	}

	fmt.Println()
	s := ui.NewWaitingSpinner("Zipping files...")
	s.Start()
	if err := utils.ZipDirectory(tempDir, zipName); err != nil {
		s.Stop()
		return transfer.NewError("zip files", err)
	}
	s.Stop()
	ui.PrintSuccessf("Files zipped to %s", zipName)

	return nil
}

// parseRoomInput accepts either a bare room id or a share link with a
// room query parameter.
func parseRoomInput(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("room ID cannot be empty")
	}

	if strings.Contains(input, "://") {
		roomID, err := extractRoomIDFromURL(input)
		if err != nil {
			return "", err
		}
		ui.PrintSuccessf("Extracted room ID: %s", roomID)
		return roomID, nil
	}

	if !signaling.ValidRoomID(input) {
		return "", fmt.Errorf("invalid room ID: %s", input)
	}
	return input, nil
}

func extractRoomIDFromURL(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", transfer.NewError("parse URL", err)
	}

	roomID := parsedURL.Query().Get("room")
	if roomID == "" || !signaling.ValidRoomID(roomID) {
		return "", fmt.Errorf("could not extract room ID from URL: %s", urlStr)
	}
	return roomID, nil
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().StringVar(&flagReceiverDomain, "domain", "", "Custom domain")
	receiveCmd.Flags().StringVarP(&flagReceiverSTUN, "stun", "s", "", "Custom STUN server")
	receiveCmd.Flags().StringVarP(&flagReceiverTURN, "turn", "t", "", "Custom TURN server")
	receiveCmd.Flags().StringVar(&flagReceiverTURNUser, "turn-user", "", "TURN username")
	receiveCmd.Flags().StringVar(&flagReceiverTURNPass, "turn-pass", "", "TURN password")
	receiveCmd.Flags().BoolVarP(&flagReceiverRelay, "relay", "r", false, "Force relay mode")
	receiveCmd.Flags().BoolVarP(&flagReceiverZip, "zip", "z", false, "Zip received files")
	receiveCmd.Flags().StringVarP(&flagReceiverDir, "dir", "d", "", "Directory to save received files")
}
