package transfer

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Accumulator buffers the chunks of one incoming file plus the running
// received-byte count. Keeping it keyed by file id across metadata
// announcements is what makes transfers resumable: a re-announced file
// is acked with the count already held.
type Accumulator struct {
	chunks   [][]byte
	received uint64
}

// Received returns the byte count accumulated so far.
func (a *Accumulator) Received() uint64 {
	return a.received
}

// flatten joins the ordered chunks into a single blob.
func (a *Accumulator) flatten() []byte {
	blob := make([]byte, 0, a.received)
	for _, c := range a.chunks {
		blob = append(blob, c...)
	}
	return blob
}

// ReceivedFile records one completed download. Immutable once created.
type ReceivedFile struct {
	ID       string
	FileName string

	// FileSize is the byte count as observed, which equals the
	// announced size on a clean transfer.
	FileSize uint64

	// Handle is where the sink materialized the content.
	Handle string
}

// Sink turns a completed blob into a download handle.
type Sink interface {
	Materialize(fileName string, data []byte) (string, error)
}

// ReceiverEvents are optional callbacks surfacing receiver-side state.
type ReceiverEvents struct {
	OnMetadata func(meta MetadataPayload, resumeOffset uint64)
	OnProgress func(stats Stats)
	OnFile     func(file ReceivedFile)
}

// Receiver accumulates incoming files from an established channel and
// answers metadata announcements with resume offsets. All mutation
// happens on the channel's single delivery goroutine; the lock only
// guards the completed-file list read from the session side.
type Receiver struct {
	channel Channel
	sink    Sink
	events  ReceiverEvents

	downloads map[string]*Accumulator
	current   MetadataPayload
	active    bool
	chunks    int
	tracker   *RateTracker

	mu    sync.Mutex
	files []ReceivedFile
}

// NewReceiver creates a receiver writing completed files through sink.
func NewReceiver(channel Channel, sink Sink, events ReceiverEvents) *Receiver {
	return &Receiver{
		channel:   channel,
		sink:      sink,
		events:    events,
		downloads: make(map[string]*Accumulator),
		tracker:   NewRateTracker(),
	}
}

// Files returns the completed downloads in arrival order.
func (r *Receiver) Files() []ReceivedFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ReceivedFile, len(r.files))
	copy(out, r.files)
	return out
}

// CompletedCount returns how many files finished. The session uses it
// to classify a peer disconnect as completion or interruption.
func (r *Receiver) CompletedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// HandleMessage dispatches one inbound data-channel payload. Unknown
// or undecodable messages are dropped.
func (r *Receiver) HandleMessage(data []byte) {
	msg, err := Decode(data)
	if err != nil {
		return
	}

	switch msg.Type {
	case MessageTypeMetadata:
		var meta MetadataPayload
		if err := msg.DecodePayload(&meta); err != nil {
			return
		}
		r.handleMetadata(meta)

	case MessageTypeChunk:
		var chunk ChunkPayload
		if err := msg.DecodePayload(&chunk); err != nil {
			return
		}
		r.handleChunk(chunk)

	case MessageTypeEnd:
		var end EndPayload
		if err := msg.DecodePayload(&end); err != nil {
			return
		}
		r.handleEnd(end)
	}
}

// handleMetadata opens an accumulator for the announced file, or
// reuses the existing one so streaming resumes where it left off, and
// acks with the resume offset.
func (r *Receiver) handleMetadata(meta MetadataPayload) {
	acc, ok := r.downloads[meta.ID]
	if !ok {
		acc = &Accumulator{}
		r.downloads[meta.ID] = acc
	}

	r.current = meta
	r.active = true
	r.chunks = 0
	r.tracker.Reset()

	data, err := Encode(MessageTypeAck, AckPayload{ID: meta.ID, Offset: acc.received})
	if err == nil {
		if err := r.channel.Send(data); err != nil {
			logrus.WithField("file", meta.FileName).WithError(err).Debug("ack send failed")
		}
	}

	if r.events.OnMetadata != nil {
		r.events.OnMetadata(meta, acc.received)
	}
}

func (r *Receiver) handleChunk(chunk ChunkPayload) {
	acc, ok := r.downloads[chunk.ID]
	if !ok {
		// Chunk for a file that was never announced or already
		// completed; nothing to append to.
		return
	}

	acc.chunks = append(acc.chunks, chunk.Bytes)
	acc.received += uint64(len(chunk.Bytes))
	r.chunks++
	r.tracker.Add(len(chunk.Bytes))

	if r.events.OnProgress != nil && r.active && chunk.ID == r.current.ID &&
		(r.chunks%ProgressInterval == 0 || acc.received >= r.current.FileSize) {
		r.events.OnProgress(r.tracker.Snapshot(acc.received, r.current.FileSize))
	}
}

// handleEnd flattens the current accumulator into its final blob,
// materializes the download handle, and records the file. A duplicate
// end for an already flattened id finds no accumulator and is a no-op.
func (r *Receiver) handleEnd(end EndPayload) {
	id := end.ID
	if id == "" && r.active {
		id = r.current.ID
	}

	acc, ok := r.downloads[id]
	if !ok {
		return
	}
	delete(r.downloads, id)
	r.active = false

	handle, err := r.sink.Materialize(r.current.FileName, acc.flatten())
	if err != nil {
		logrus.WithField("file", r.current.FileName).WithError(err).Error("materialize failed")
		return
	}

	file := ReceivedFile{
		ID:       id,
		FileName: r.current.FileName,
		FileSize: acc.received,
		Handle:   handle,
	}

	r.mu.Lock()
	r.files = append(r.files, file)
	r.mu.Unlock()

	if r.events.OnFile != nil {
		r.events.OnFile(file)
	}
}
