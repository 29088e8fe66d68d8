package transfer

import "github.com/vmihailenco/msgpack/v5"

// Data-channel message types. Every payload on the wire is a tagged
// Message, so classification never depends on guessing from byte size.
const (
	MessageTypeMetadata = "metadata"
	MessageTypeAck      = "ack"
	MessageTypeChunk    = "chunk"
	MessageTypeEnd      = "end"
)

// Message represents all data channel messages.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// MetadataPayload announces a file before its chunks. Index and Total
// are 1-based position and file count for this session.
type MetadataPayload struct {
	ID       string `msgpack:"id"`
	FileName string `msgpack:"fileName"`
	FileSize uint64 `msgpack:"fileSize"`
	Index    int    `msgpack:"index"`
	Total    int    `msgpack:"total"`
}

// AckPayload answers a metadata announcement with the resume offset:
// the byte count the receiver already holds for that file id.
type AckPayload struct {
	ID     string `msgpack:"id"`
	Offset uint64 `msgpack:"offset"`
}

// ChunkPayload carries one slice of file content.
type ChunkPayload struct {
	ID     string `msgpack:"id"`
	Offset uint64 `msgpack:"offset"`
	Bytes  []byte `msgpack:"bytes"`
}

// EndPayload marks the end of a file's chunk stream.
type EndPayload struct {
	ID string `msgpack:"id"`
}

// NewMessage creates a Message with the given type and payload.
func NewMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: b}, nil
}

// DecodePayload decodes the message payload into the provided struct.
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// Encode marshals a typed message to wire bytes.
func Encode(t string, payload any) ([]byte, error) {
	msg, err := NewMessage(t, payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(msg)
}

// Decode parses wire bytes into a Message.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, NewError("parse message", err)
	}
	return &msg, nil
}
