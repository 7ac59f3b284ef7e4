// Package wire implements the timing oracle's datagram formats as gopacket
// layers. Every integer crosses the wire big endian.
//
// Request:
//
//	4 bytes:  request id
//	16 bytes: key
//	8 bytes:  payload length
//	N bytes:  payload
//
// Response:
//
//	4 bytes:  request id
//	M bytes:  ciphertext
//	B bytes:  iv (one cipher block)
//	8 bytes:  inbound sec
//	8 bytes:  inbound nsec
//	8 bytes:  outbound sec
//	8 bytes:  outbound nsec
package wire

import (
	"errors"
	"fmt"

	"github.com/google/gopacket"
)

const (
	// KeySize is the size of the key carried by every request
	KeySize = 16
	// DataMaxSize is the largest payload a request may declare
	DataMaxSize = 4096

	// RequestHeaderSize is id + key + length
	RequestHeaderSize = 4 + KeySize + 8
	// RequestMaxSize is the largest well formed request datagram
	RequestMaxSize = RequestHeaderSize + DataMaxSize

	// TimingSize is the four 64 bit timestamp components
	TimingSize = 4 * 8
	// DefaultBlockSize is the AES block size, used when a Response doesn't say
	DefaultBlockSize = 16
)

var (
	// ErrShortHeader is returned when a datagram can't hold a request header
	ErrShortHeader = errors.New("wire: datagram shorter than request header")
	// ErrOversize is returned when the declared payload length is larger than allowed
	ErrOversize = errors.New("wire: declared payload length too large")
	// ErrTruncated is returned when a datagram carries fewer bytes than it declares
	ErrTruncated = errors.New("wire: datagram truncated")
	// ErrShortResponse is returned when a response can't hold its fixed fields
	ErrShortResponse = errors.New("wire: response too short")
)

// LayerTypeRequest and LayerTypeResponse are registered with gopacket so both
// formats can be decoded with gopacket.NewPacket or a DecodingLayerParser.
var (
	LayerTypeRequest = gopacket.RegisterLayerType(3790, gopacket.LayerTypeMetadata{
		Name:    "TimingRequest",
		Decoder: gopacket.DecodeFunc(decodeRequest),
	})
	LayerTypeResponse = gopacket.RegisterLayerType(3791, gopacket.LayerTypeMetadata{
		Name:    "TimingResponse",
		Decoder: gopacket.DecodeFunc(decodeResponse),
	})
)

// Key is the raw key material of a request
type Key [KeySize]byte

// Timestamp is an opaque ordered pair. With a wall clock it holds seconds and
// nanoseconds; other clocks put their own reading in it, so only ordering and
// equality are meaningful across sources.
type Timestamp struct {
	Sec  uint64
	Nsec uint64
}

// Before reports whether t sorts strictly before u
func (t Timestamp) Before(u Timestamp) bool {
	if t.Sec != u.Sec {
		return t.Sec < u.Sec
	}
	return t.Nsec < u.Nsec
}

// Sub returns t-u in nanoseconds. It only means something for wall and mono
// timestamps; cycle timestamps hold a counter and a CPU id instead.
func (t Timestamp) Sub(u Timestamp) int64 {
	return int64(t.Sec-u.Sec)*1e9 + int64(t.Nsec) - int64(u.Nsec)
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%d", t.Sec, t.Nsec)
}
