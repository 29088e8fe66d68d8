package session

import (
	"fmt"
	"os"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/jannskiee/floe/internal/files"
	"github.com/jannskiee/floe/internal/transfer"
	"github.com/jannskiee/floe/internal/ui"
	"github.com/jannskiee/floe/internal/utils"
	"github.com/jannskiee/floe/internal/webrtc"
)

// SenderSession drives one outgoing transfer: WebRTC handshake with
// the joined receiver, then the file queue over the data channel.
type SenderSession struct {
	ctx    *Context
	files  []files.FileInfo
	opened []*os.File

	conn    *pion.PeerConnection
	channel *webrtc.Channel
	engine  *transfer.Sender

	model    *ui.ProgressModel
	renderer *ui.Renderer

	dcOpen     chan struct{}
	iceFailed  chan struct{}
	signalDone chan struct{}

	startTime time.Time
	sent      int
}

// NewSenderSession builds the peer connection and data channel for an
// outgoing transfer. The receiver's connection id must already be
// known.
func NewSenderSession(ctx *Context, fileInfos []files.FileInfo) (*SenderSession, error) {
	conn, err := webrtc.NewPeerConnection(ctx.Config)
	if err != nil {
		return nil, err
	}

	s := &SenderSession{
		ctx:        ctx,
		files:      fileInfos,
		conn:       conn,
		dcOpen:     make(chan struct{}, 1),
		iceFailed:  make(chan struct{}, 1),
		signalDone: make(chan struct{}),
	}

	dc, err := webrtc.CreateDataChannel(conn, webrtc.DataChannelLabel)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.channel = webrtc.WrapDataChannel(dc)

	fileNames := make([]string, len(fileInfos))
	fileSizes := make([]int64, len(fileInfos))
	for i, f := range fileInfos {
		fileNames[i] = f.Name
		fileSizes[i] = f.Size
	}
	s.model = ui.NewProgressModel(fileNames, fileSizes)

	s.engine = transfer.NewSender(s.channel, transfer.SenderEvents{
		OnFileStart: func(index, total int, name string) {
			s.model.SetHeader(fmt.Sprintf("Sending file %d of %d", index, total))
		},
		OnProgress: func(index int, stats transfer.Stats) {
			s.model.UpdateStats(index-1, stats)
		},
		OnFileDone: func(index int) {
			s.model.MarkComplete(index - 1)
			s.sent++
		},
	})

	dc.OnOpen(func() {
		select {
		case s.dcOpen <- struct{}{}:
		default:
		}
	})
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		s.engine.HandleMessage(msg.Data)
	})

	webrtc.SetupICEHandlers(conn, ctx.Client, ctx.PeerID, ctx.RoomID, s.iceFailed)

	return s, nil
}

// Start performs the SDP handshake and waits for the data channel to
// open.
func (s *SenderSession) Start() error {
	stopSpinner := ui.RunConnectionSpinner("Establishing connection...")
	defer stopSpinner()

	go s.listenForSignals()

	offer, err := webrtc.CreateOffer(s.conn)
	if err != nil {
		return err
	}
	webrtc.SendSignal(s.ctx.Client, s.ctx.PeerID, s.ctx.RoomID, webrtc.DescriptionPayload(offer))

	select {
	case <-s.dcOpen:
		return nil

	case <-s.iceFailed:
		return transfer.NewError("start connection", transfer.ErrPeerDisconnected)

	case <-s.ctx.Handler.PeerDisconnected:
		return transfer.NewError("start connection", transfer.ErrPeerDisconnected)

	case errMsg := <-s.ctx.Handler.Error:
		return transfer.WrapError("start connection", transfer.ErrSignalingError, errMsg)

	case <-time.After(signalTimeout):
		return transfer.NewError("start connection", transfer.ErrTimeout)
	}
}

// Transfer streams every queued file and prints the summary.
func (s *SenderSession) Transfer() error {
	sources, err := s.openSources()
	if err != nil {
		return err
	}

	fmt.Printf("\n%s Transferring files...\n\n", ui.IconSend)
	s.startTime = time.Now()
	s.renderer = ui.NewRenderer(s.model)

	err = s.engine.SendAll(sources)

	s.renderer.Stop()
	fmt.Println()

	if err != nil {
		// A dead channel mid-queue means the receiver went away.
		if !s.channel.Open() {
			return transfer.WrapError("transfer files", transfer.ErrInterrupted,
				fmt.Sprintf("%d of %d files sent", s.sent, len(s.files)))
		}
		return err
	}

	s.printSummary()
	return nil
}

func (s *SenderSession) openSources() ([]transfer.FileSource, error) {
	sources := make([]transfer.FileSource, len(s.files))
	for i, f := range s.files {
		file, err := os.Open(f.Path)
		if err != nil {
			return nil, transfer.NewFileError("open", f.Name, err)
		}
		s.opened = append(s.opened, file)

		sources[i] = transfer.FileSource{
			ID:     fmt.Sprintf("%d-%s", i+1, f.Name),
			Name:   f.Name,
			Size:   uint64(f.Size),
			Reader: file,
		}
	}
	return sources, nil
}

func (s *SenderSession) printSummary() {
	elapsed := time.Since(s.startTime)
	totalSize := files.GetTotalSize(s.files)

	var avgSpeed float64
	if elapsed.Seconds() > 0 {
		avgSpeed = float64(totalSize) / elapsed.Seconds()
	}

	fmt.Println()
	ui.RenderTransferSummary("📊 Transfer Summary", ui.TransferSummary{
		Status:    "✅ Complete",
		Files:     len(s.files),
		TotalSize: utils.FormatSize(totalSize),
		Duration:  utils.FormatTimeDuration(elapsed),
		Speed:     utils.FormatSpeed(avgSpeed),
	})
}

func (s *SenderSession) listenForSignals() {
	for {
		select {
		case sig, ok := <-s.ctx.Handler.Signal:
			if !ok {
				return
			}
			if err := webrtc.HandleSignal(s.conn, sig.Payload, nil); err != nil {
				ui.PrintWarning(fmt.Sprintf("signal handling error: %v", err))
			}

		case <-s.signalDone:
			return
		}
	}
}

// Close releases the peer connection, open files, and signaling.
func (s *SenderSession) Close() error {
	close(s.signalDone)

	for _, f := range s.opened {
		f.Close()
	}
	s.opened = nil

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}

	// Let the final protocol frames flush before signaling drops.
	time.Sleep(closeGrace)
	return nil
}
