package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Request is an encryption request. Payload (from BaseLayer) holds the
// plaintext and aliases the decoded datagram.
type Request struct {
	layers.BaseLayer

	ID     uint32
	Key    Key
	Length uint64
}

// LayerType returns LayerTypeRequest
func (r *Request) LayerType() gopacket.LayerType { return LayerTypeRequest }

// CanDecode returns LayerTypeRequest
func (r *Request) CanDecode() gopacket.LayerClass { return LayerTypeRequest }

// NextLayerType returns LayerTypeZero, the payload is never decoded further
func (r *Request) NextLayerType() gopacket.LayerType { return gopacket.LayerTypeZero }

// DecodeFromBytes parses a request datagram. The declared length is checked
// against DataMaxSize before it is used for anything else.
func (r *Request) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < RequestHeaderSize {
		df.SetTruncated()
		return ErrShortHeader
	}
	r.ID = binary.BigEndian.Uint32(data[0:4])
	copy(r.Key[:], data[4:4+KeySize])
	r.Length = binary.BigEndian.Uint64(data[4+KeySize : RequestHeaderSize])

	if r.Length > DataMaxSize {
		return fmt.Errorf("%w: %d > %d", ErrOversize, r.Length, DataMaxSize)
	}
	body := data[RequestHeaderSize:]
	if uint64(len(body)) < r.Length {
		df.SetTruncated()
		return fmt.Errorf("%w: declared %d, got %d", ErrTruncated, r.Length, len(body))
	}

	r.BaseLayer = layers.BaseLayer{
		Contents: data[:RequestHeaderSize],
		Payload:  body[:r.Length],
	}
	return nil
}

// SerializeTo writes the request into b. With opts.FixLengths the length
// field is taken from the payload.
func (r *Request) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if opts.FixLengths {
		r.Length = uint64(len(r.Payload))
	}
	bytes, err := b.PrependBytes(RequestHeaderSize + len(r.Payload))
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(bytes[0:4], r.ID)
	copy(bytes[4:4+KeySize], r.Key[:])
	binary.BigEndian.PutUint64(bytes[4+KeySize:RequestHeaderSize], r.Length)
	copy(bytes[RequestHeaderSize:], r.Payload)
	return nil
}

func decodeRequest(data []byte, p gopacket.PacketBuilder) error {
	r := &Request{}
	if err := r.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(r)
	return nil
}
