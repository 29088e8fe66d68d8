package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jannskiee/floe/internal/config"
	"github.com/jannskiee/floe/internal/files"
	"github.com/jannskiee/floe/internal/session"
	"github.com/jannskiee/floe/internal/transfer"
	"github.com/jannskiee/floe/internal/ui"
)

var (
	flagDomain   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

var sendCmd = &cobra.Command{
	Use:     "send <file>...",
	Aliases: []string{"s"},
	Short:   "Send files to a receiver",
	Long: `Send files directly to a receiver using WebRTC technology.

Examples:
  floe send file1.txt file2.pdf
  floe send --domain custom.example.com file.txt
  floe send --relay file.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("no files specified")
		}
		return sendFiles(args)
	},
}

func sendFiles(filePaths []string) error {
	stopSpinner := ui.RunSpinner("Validating files...")
	defer stopSpinner()
	fileInfos, err := files.ValidateFiles(filePaths)
	if err != nil {
		return err
	}
	stopSpinner()

	displayFileTable(fileInfos)

	cfg, err := config.Load(config.Options{
		Domain:     flagDomain,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	stopSpinner = ui.RunConnectionSpinner("Connecting to server...")
	defer stopSpinner()
	ctx, err := session.Connect(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()
	stopSpinner()

	if latency, err := ctx.Latency(); err == nil {
		ui.PrintInfof("Server latency: %s", latency.Round(latencyRounding))
	}

	roomID, err := ctx.CreateRoom()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(ui.NewRoomInfo(roomID, cfg.GetRoomLink(roomID)).View())

	if err := waitForPeer(ctx); err != nil {
		return err
	}

	sess, err := session.NewSenderSession(ctx, fileInfos)
	if err != nil {
		return transfer.NewError("create session", err)
	}
	defer sess.Close()

	if err := sess.Start(); err != nil {
		return err
	}

	return sess.Transfer()
}

func waitForPeer(ctx *session.Context) error {
	fmt.Println()
	stopSpinner := ui.RunWaitingSpinner("Waiting for receiver to join...")
	defer stopSpinner()

	peerID, err := ctx.WaitForPeer()
	if err != nil {
		return err
	}
	stopSpinner()

	ui.PrintSuccessf("Receiver connected (%s)", peerID)
	return nil
}

func displayFileTable(fileInfos []files.FileInfo) {
	items := make([]ui.FileTableItem, len(fileInfos))
	for i, f := range fileInfos {
		items[i] = ui.FileTableItem{Index: i + 1, Name: f.Name, Size: f.Size, Type: f.Type}
	}
	fmt.Println()
	ui.RenderFileTable(items)
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&flagDomain, "domain", "d", "", "Custom domain")
	sendCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	sendCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	sendCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	sendCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	sendCmd.Flags().BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
}
