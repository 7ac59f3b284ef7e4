package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Response carries the result of one timed encryption back to the sender.
type Response struct {
	layers.BaseLayer

	ID         uint32
	Ciphertext []byte
	IV         []byte
	Inbound    Timestamp
	Outbound   Timestamp

	// BlockSize tells the decoder how long the IV is. It isn't on the wire.
	BlockSize int
}

// LayerType returns LayerTypeResponse
func (r *Response) LayerType() gopacket.LayerType { return LayerTypeResponse }

// CanDecode returns LayerTypeResponse
func (r *Response) CanDecode() gopacket.LayerClass { return LayerTypeResponse }

// NextLayerType returns LayerTypeZero
func (r *Response) NextLayerType() gopacket.LayerType { return gopacket.LayerTypeZero }

// Len is the encoded size of r
func (r *Response) Len() int {
	return 4 + len(r.Ciphertext) + len(r.IV) + TimingSize
}

// DecodeFromBytes parses a response. The IV is the block that precedes the
// timing fields, everything between the id and the IV is ciphertext.
func (r *Response) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	bs := r.BlockSize
	if bs == 0 {
		bs = DefaultBlockSize
	}
	if len(data) < 4+bs+TimingSize {
		df.SetTruncated()
		return fmt.Errorf("%w: %d bytes", ErrShortResponse, len(data))
	}
	r.ID = binary.BigEndian.Uint32(data[0:4])

	timing := data[len(data)-TimingSize:]
	ivStart := len(data) - TimingSize - bs
	r.Ciphertext = data[4:ivStart]
	r.IV = data[ivStart : ivStart+bs]

	r.Inbound.Sec = binary.BigEndian.Uint64(timing[0:8])
	r.Inbound.Nsec = binary.BigEndian.Uint64(timing[8:16])
	r.Outbound.Sec = binary.BigEndian.Uint64(timing[16:24])
	r.Outbound.Nsec = binary.BigEndian.Uint64(timing[24:32])

	r.BlockSize = bs
	r.BaseLayer = layers.BaseLayer{Contents: data}
	return nil
}

// SerializeTo writes the response into b
func (r *Response) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(r.Len())
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(bytes[0:4], r.ID)
	n := 4
	n += copy(bytes[n:], r.Ciphertext)
	n += copy(bytes[n:], r.IV)

	binary.BigEndian.PutUint64(bytes[n:], r.Inbound.Sec)
	binary.BigEndian.PutUint64(bytes[n+8:], r.Inbound.Nsec)
	binary.BigEndian.PutUint64(bytes[n+16:], r.Outbound.Sec)
	binary.BigEndian.PutUint64(bytes[n+24:], r.Outbound.Nsec)
	return nil
}

func decodeResponse(data []byte, p gopacket.PacketBuilder) error {
	r := &Response{}
	if err := r.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(r)
	return nil
}

// Encode serializes a single layer into a fresh byte slice.
func Encode(l gopacket.SerializableLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := l.SerializeTo(buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
