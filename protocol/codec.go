package protocol

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Codec frames requests and responses as newline-delimited JSON over a
// bidirectional stream. One Codec serves exactly one connection and is only
// ever used from that connection's dispatcher goroutine.
type Codec struct {
	dec *json.Decoder
	enc *json.Encoder
}

// NewCodec wraps the stream. rw is typically a net.Conn.
func NewCodec(rw io.ReadWriter) *Codec {
	return &Codec{
		dec: json.NewDecoder(rw),
		enc: json.NewEncoder(rw),
	}
}

// ReadRequest blocks for the next request. It returns io.EOF untouched when
// the peer closes the connection cleanly, which the dispatcher treats as the
// normal termination condition.
func (c *Codec) ReadRequest() (*Request, error) {
	var req Request
	if err := c.dec.Decode(&req); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "[Codec.ReadRequest] decode")
	}
	return &req, nil
}

// WriteResponse writes one response followed by a newline.
func (c *Codec) WriteResponse(resp *Response) error {
	if err := c.enc.Encode(resp); err != nil {
		return errors.Wrap(err, "[Codec.WriteResponse] encode")
	}
	return nil
}
