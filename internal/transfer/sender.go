package transfer

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// FileSource describes one file in the outgoing queue. Reader must
// support random access so streaming can start at the receiver's
// resume offset.
type FileSource struct {
	ID     string
	Name   string
	Size   uint64
	Reader io.ReaderAt
}

// SenderEvents are optional callbacks surfacing sender-side state to
// the UI. Nil callbacks are skipped.
type SenderEvents struct {
	OnFileStart func(index, total int, name string)
	OnProgress  func(index int, stats Stats)
	OnFileDone  func(index int)
}

// Sender streams a queue of files over an established channel. Each
// file walks Announce -> AwaitResumeOffset -> Stream -> Finish; the
// whole queue aborts only when the channel dies or an announcement
// cannot be sent at all.
type Sender struct {
	channel    Channel
	controller *ChunkSizeController
	events     SenderEvents

	acks chan AckPayload
}

// NewSender creates a sender on the given channel.
func NewSender(channel Channel, events SenderEvents) *Sender {
	return &Sender{
		channel:    channel,
		controller: NewChunkSizeController(),
		events:     events,
		acks:       make(chan AckPayload, 4),
	}
}

// HandleMessage feeds an inbound data-channel payload to the sender.
// Only resume acknowledgements are meaningful on this side; everything
// else is dropped.
func (s *Sender) HandleMessage(data []byte) {
	msg, err := Decode(data)
	if err != nil {
		return
	}
	if msg.Type != MessageTypeAck {
		return
	}
	var ack AckPayload
	if err := msg.DecodePayload(&ack); err != nil {
		return
	}
	select {
	case s.acks <- ack:
	default:
	}
}

// SendAll streams every file in order. Destroying the channel aborts
// the current file's loop and the multi-file loop.
func (s *Sender) SendAll(files []FileSource) error {
	total := len(files)
	for i, f := range files {
		if !s.channel.Open() {
			return ErrChannelClosed
		}
		if s.events.OnFileStart != nil {
			s.events.OnFileStart(i+1, total, f.Name)
		}
		if err := s.sendFile(f, i+1, total); err != nil {
			return err
		}
		if s.events.OnFileDone != nil {
			s.events.OnFileDone(i + 1)
		}
	}
	return nil
}

func (s *Sender) sendFile(f FileSource, index, total int) error {
	// Announce. A failure here is a hard local failure: the channel
	// swallowed nothing, so the whole job stops early.
	data, err := Encode(MessageTypeMetadata, MetadataPayload{
		ID:       f.ID,
		FileName: f.Name,
		FileSize: f.Size,
		Index:    index,
		Total:    total,
	})
	if err != nil {
		return NewFileError("encode metadata", f.Name, err)
	}
	if err := s.channel.Send(data); err != nil {
		return NewFileError("announce", f.Name, err)
	}

	offset, err := s.awaitResumeOffset(f.ID)
	if err != nil {
		return err
	}
	if offset > f.Size {
		// The receiver cannot hold more than we ever sent; treat a
		// bogus offset as a full restart.
		offset = 0
	}

	if err := s.stream(f, index, offset); err != nil {
		return err
	}

	// Best effort: the next file proceeds whether or not the end
	// marker went out.
	if data, err := Encode(MessageTypeEnd, EndPayload{ID: f.ID}); err == nil {
		if err := s.channel.Send(data); err != nil {
			logrus.WithField("file", f.Name).WithError(err).Debug("end marker send failed")
		}
	}
	return nil
}

// awaitResumeOffset blocks until the acknowledgement for the announced
// file arrives, carrying the byte position streaming starts from. Acks
// for other ids are stale and discarded.
func (s *Sender) awaitResumeOffset(id string) (uint64, error) {
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case ack := <-s.acks:
			if ack.ID == id {
				return ack.Offset, nil
			}
		case <-ticker.C:
			if !s.channel.Open() {
				return 0, ErrChannelClosed
			}
		}
	}
}

func (s *Sender) stream(f FileSource, index int, offset uint64) error {
	buf := make([]byte, MaxChunkSize)
	tracker := NewRateTracker()
	chunkCount := 0

	for offset < f.Size {
		if !s.channel.Open() {
			return ErrChannelClosed
		}

		size := uint64(s.controller.Size())
		if remaining := f.Size - offset; remaining < size {
			size = remaining
		}

		if err := s.waitForWindow(size); err != nil {
			return err
		}

		n, err := f.Reader.ReadAt(buf[:size], int64(offset))
		if err != nil && err != io.EOF {
			return NewFileError("read", f.Name, err)
		}
		if n == 0 {
			return NewFileError("read", f.Name, io.ErrUnexpectedEOF)
		}

		data, err := Encode(MessageTypeChunk, ChunkPayload{
			ID:     f.ID,
			Offset: offset,
			Bytes:  buf[:n],
		})
		if err != nil {
			return NewFileError("encode chunk", f.Name, err)
		}

		if err := s.channel.Send(data); err != nil {
			// Retrying the same slice is idempotent; keep at it with a
			// bounded pause until the channel itself goes away.
			if !s.channel.Open() {
				return ErrChannelClosed
			}
			time.Sleep(retryDelay)
			continue
		}

		offset += uint64(n)
		chunkCount++
		s.controller.Record(n)
		tracker.Add(n)

		if s.events.OnProgress != nil &&
			(chunkCount%ProgressInterval == 0 || offset >= f.Size) {
			s.events.OnProgress(index, tracker.Snapshot(offset, f.Size))
		}
	}
	return nil
}

// waitForWindow enforces the outstanding-buffer limit: once the channel
// holds more than BufferLimit unsent bytes, sending pauses until the
// buffer drains below the current chunk size. The drain callback is
// level triggered; the ticker is the portable fallback.
func (s *Sender) waitForWindow(chunkSize uint64) error {
	if s.channel.BufferedAmount() <= BufferLimit {
		return nil
	}

	low := make(chan struct{}, 1)
	s.channel.SetBufferedAmountLowThreshold(chunkSize)
	s.channel.OnBufferedAmountLow(func() {
		select {
		case low <- struct{}{}:
		default:
		}
	})

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-low:
			return nil
		case <-ticker.C:
			if !s.channel.Open() {
				return ErrChannelClosed
			}
			if s.channel.BufferedAmount() < chunkSize {
				return nil
			}
		}
	}
}
