package webrtc

import (
	pion "github.com/pion/webrtc/v4"
)

// DataChannelLabel is the label both sides agree on for file transfer.
const DataChannelLabel = "file-transfer"

// Channel adapts a pion data channel to the transfer engine's channel
// contract.
type Channel struct {
	dc *pion.DataChannel
}

// WrapDataChannel wraps an established data channel.
func WrapDataChannel(dc *pion.DataChannel) *Channel {
	return &Channel{dc: dc}
}

func (c *Channel) Send(data []byte) error {
	return c.dc.Send(data)
}

func (c *Channel) BufferedAmount() uint64 {
	return c.dc.BufferedAmount()
}

func (c *Channel) SetBufferedAmountLowThreshold(threshold uint64) {
	c.dc.SetBufferedAmountLowThreshold(threshold)
}

func (c *Channel) OnBufferedAmountLow(f func()) {
	c.dc.OnBufferedAmountLow(f)
}

func (c *Channel) Open() bool {
	return c.dc.ReadyState() == pion.DataChannelStateOpen
}

// DescriptionPayload converts a local description into its signaling
// payload form.
func DescriptionPayload(desc *pion.SessionDescription) SignalPayload {
	return SignalPayload{Type: desc.Type.String(), SDP: desc.SDP}
}
