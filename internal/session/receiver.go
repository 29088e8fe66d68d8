package session

import (
	"fmt"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/jannskiee/floe/internal/transfer"
	"github.com/jannskiee/floe/internal/ui"
	"github.com/jannskiee/floe/internal/utils"
	"github.com/jannskiee/floe/internal/webrtc"
)

// ReceiverSession drives one incoming transfer: it answers the
// sender's offer, accepts the data channel, and accumulates files
// until the announced queue is drained or the peer goes away.
type ReceiverSession struct {
	ctx  *Context
	sink transfer.Sink

	conn    *pion.PeerConnection
	channel *webrtc.Channel
	engine  *transfer.Receiver

	dcOpen     chan struct{}
	iceFailed  chan struct{}
	allDone    chan struct{}
	signalDone chan struct{}

	mu       sync.Mutex
	renderer *ui.Renderer
	model    *ui.ProgressModel
	expected int

	startTime time.Time
}

// NewReceiverSession builds the peer connection for an incoming
// transfer. The room must already be joined.
func NewReceiverSession(ctx *Context, outputDir string) (*ReceiverSession, error) {
	conn, err := webrtc.NewPeerConnection(ctx.Config)
	if err != nil {
		return nil, err
	}

	r := &ReceiverSession{
		ctx:        ctx,
		sink:       &transfer.DiskSink{Dir: outputDir},
		conn:       conn,
		dcOpen:     make(chan struct{}, 1),
		iceFailed:  make(chan struct{}, 1),
		allDone:    make(chan struct{}, 1),
		signalDone: make(chan struct{}),
	}

	conn.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() != webrtc.DataChannelLabel {
			return
		}
		r.channel = webrtc.WrapDataChannel(dc)
		r.engine = transfer.NewReceiver(r.channel, r.sink, transfer.ReceiverEvents{
			OnMetadata: r.onMetadata,
			OnProgress: r.onProgress,
			OnFile:     r.onFile,
		})

		dc.OnOpen(func() {
			select {
			case r.dcOpen <- struct{}{}:
			default:
			}
		})
		dc.OnMessage(func(msg pion.DataChannelMessage) {
			r.engine.HandleMessage(msg.Data)
		})
	})

	// The sender's connection id is unknown until its offer arrives;
	// candidate replies go out as room broadcast.
	webrtc.SetupICEHandlers(conn, ctx.Client, "", ctx.RoomID, r.iceFailed)

	return r, nil
}

// Start waits for the sender's offer, answers it, and waits for the
// data channel to open.
func (r *ReceiverSession) Start() error {
	stopSpinner := ui.RunConnectionSpinner("Establishing connection...")
	defer stopSpinner()

	go r.listenForSignals()

	select {
	case <-r.dcOpen:
		return nil

	case <-r.iceFailed:
		return transfer.NewError("start connection", transfer.ErrPeerDisconnected)

	case <-r.ctx.Handler.PeerDisconnected:
		return transfer.NewError("start connection", transfer.ErrLinkUnavailable)

	case errMsg := <-r.ctx.Handler.Error:
		return transfer.WrapError("start connection", transfer.ErrSignalingError, errMsg)

	case <-time.After(signalTimeout):
		return transfer.NewError("start connection", transfer.ErrTimeout)
	}
}

// Transfer accumulates incoming files until the announced queue
// completes or the connection ends. A disconnect before the first
// completed file means the link never worked; after that it is an
// interruption of a partially delivered queue.
func (r *ReceiverSession) Transfer() error {
	fmt.Printf("\n%s Receiving files...\n\n", ui.IconReceive)
	r.startTime = time.Now()

	var err error
	select {
	case <-r.allDone:

	case <-r.iceFailed:
		err = r.classifyDisconnect()

	case <-r.ctx.Handler.PeerDisconnected:
		err = r.classifyDisconnect()
	}

	r.stopRenderer()
	fmt.Println()

	if err != nil {
		return err
	}

	r.printSummary()
	return nil
}

func (r *ReceiverSession) classifyDisconnect() error {
	completed := 0
	if r.engine != nil {
		completed = r.engine.CompletedCount()
	}

	r.mu.Lock()
	expected := r.expected
	r.mu.Unlock()

	switch {
	case expected > 0 && completed >= expected:
		return nil
	case completed > 0:
		return transfer.WrapError("receive files", transfer.ErrInterrupted,
			fmt.Sprintf("%d of %d files received", completed, expected))
	default:
		return transfer.NewError("receive files", transfer.ErrLinkUnavailable)
	}
}

func (r *ReceiverSession) onMetadata(meta transfer.MetadataPayload, resumeOffset uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.expected = meta.Total

	if r.renderer != nil {
		r.renderer.Stop()
	}
	r.model = ui.NewProgressModel([]string{meta.FileName}, []int64{int64(meta.FileSize)})
	if meta.Total > 0 {
		r.model.SetHeader(fmt.Sprintf("Receiving file %d of %d", meta.Index, meta.Total))
	}
	if resumeOffset > 0 {
		r.model.UpdateStats(0, transfer.Stats{Transferred: resumeOffset, Total: meta.FileSize})
	}
	r.renderer = ui.NewRenderer(r.model)
}

func (r *ReceiverSession) onProgress(stats transfer.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.model != nil {
		r.model.UpdateStats(0, stats)
	}
}

func (r *ReceiverSession) onFile(file transfer.ReceivedFile) {
	r.mu.Lock()
	if r.model != nil {
		r.model.MarkComplete(0)
	}
	if r.renderer != nil {
		r.renderer.Stop()
		r.renderer = nil
	}
	expected := r.expected
	r.mu.Unlock()

	ui.PrintSuccessf("Saved %s (%s)", file.Handle, utils.FormatSize(int64(file.FileSize)))

	if expected > 0 && r.engine.CompletedCount() >= expected {
		select {
		case r.allDone <- struct{}{}:
		default:
		}
	}
}

func (r *ReceiverSession) stopRenderer() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.renderer != nil {
		r.renderer.Stop()
		r.renderer = nil
	}
}

func (r *ReceiverSession) printSummary() {
	received := r.engine.Files()

	var totalSize int64
	for _, f := range received {
		totalSize += int64(f.FileSize)
	}

	elapsed := time.Since(r.startTime)
	var avgSpeed float64
	if elapsed.Seconds() > 0 {
		avgSpeed = float64(totalSize) / elapsed.Seconds()
	}

	fmt.Println()
	ui.RenderTransferSummary("📊 Receive Summary", ui.TransferSummary{
		Status:    "✅ Complete",
		Files:     len(received),
		TotalSize: utils.FormatSize(totalSize),
		Duration:  utils.FormatTimeDuration(elapsed),
		Speed:     utils.FormatSpeed(avgSpeed),
	})
}

func (r *ReceiverSession) listenForSignals() {
	for {
		select {
		case sig, ok := <-r.ctx.Handler.Signal:
			if !ok {
				return
			}
			err := webrtc.HandleSignal(r.conn, sig.Payload, func(offer *pion.SessionDescription) {
				answer, err := webrtc.CreateAnswer(r.conn, offer)
				if err != nil {
					ui.PrintWarning(fmt.Sprintf("answer error: %v", err))
					return
				}
				webrtc.SendSignal(r.ctx.Client, "", r.ctx.RoomID, webrtc.DescriptionPayload(answer))
			})
			if err != nil {
				ui.PrintWarning(fmt.Sprintf("signal handling error: %v", err))
			}

		case <-r.signalDone:
			return
		}
	}
}

// Close releases the peer connection and lets final frames drain.
func (r *ReceiverSession) Close() error {
	close(r.signalDone)

	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}

	time.Sleep(closeGrace)
	return nil
}
