// Package transport provides a plain-TCP RecordLayer for pkg/handshake
// and a listener that drives one handshake per accepted connection.
//
// The engine itself never frames, MACs or encrypts a byte (callbacks.go's
// RecordLayer contract); this package is the concrete collaborator that
// does, speaking the record-layer framing of RFC 5246 §6.2 for the
// handshake/alert/change_cipher_spec content types. Application-data
// encryption after the handshake completes is out of scope here, the
// same way it is out of scope for the engine.
package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/annetutil/tlsengine/pkg/handshake"
)

const maxRecordPayload = 1 << 14 // RFC 5246 §6.2.1

// RecordConn implements handshake.RecordLayer directly over a net.Conn,
// in plaintext. It is deliberately the simplest correct framing: no
// fragmentation of outbound messages across multiple records, no
// compression, no MAC. A production record layer would add those on
// top of the same Read/Write primitives.
type RecordConn struct {
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer

	major, minor byte // record-layer version field; changed only by SetVersion

	mu sync.Mutex
}

// NewRecordConn wraps conn for one handshake. major/minor seed the
// record-layer version field written on outbound records before
// negotiation settles them (mirrors the server offering its maximum
// supported version on the first flight, §4.7 P2).
func NewRecordConn(conn net.Conn, major, minor byte) *RecordConn {
	return &RecordConn{
		conn:  conn,
		br:    bufio.NewReader(conn),
		bw:    bufio.NewWriter(conn),
		major: major,
		minor: minor,
	}
}

// SetVersion updates the record-layer version field once the handshake
// negotiates one, so later flights (ServerHello onward) carry it.
func (rc *RecordConn) SetVersion(major, minor byte) {
	rc.major, rc.minor = major, minor
}

func (rc *RecordConn) readRecord(want handshake.ContentType) ([]byte, error) {
	var hdr [5]byte
	if _, err := io.ReadFull(rc.br, hdr[:]); err != nil {
		return nil, fmt.Errorf("transport: read record header: %w", err)
	}
	ct := handshake.ContentType(hdr[0])
	length := binary.BigEndian.Uint16(hdr[3:5])
	if length > maxRecordPayload {
		return nil, fmt.Errorf("transport: record too large: %d", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(rc.br, payload); err != nil {
		return nil, fmt.Errorf("transport: read record payload: %w", err)
	}
	if ct != want {
		return nil, fmt.Errorf("transport: expected content type %d, got %d", want, ct)
	}
	return payload, nil
}

func (rc *RecordConn) writeRecord(ct handshake.ContentType, payload []byte) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	var hdr [5]byte
	hdr[0] = byte(ct)
	hdr[1] = rc.major
	hdr[2] = rc.minor
	binary.BigEndian.PutUint16(hdr[3:5], uint16(len(payload)))

	if _, err := rc.bw.Write(hdr[:]); err != nil {
		return fmt.Errorf("transport: write record header: %w", err)
	}
	if _, err := rc.bw.Write(payload); err != nil {
		return fmt.Errorf("transport: write record payload: %w", err)
	}
	return nil
}

// ReadHandshake reads one record of content type handshake and returns
// it unchanged: a handshake message may span exactly one record here
// (no coalescing of multiple logical messages into one record, and no
// splitting of one message across several), so the returned bytes
// already start with the 4-byte handshake header the engine expects.
func (rc *RecordConn) ReadHandshake() ([]byte, error) {
	return rc.readRecord(handshake.ContentTypeHandshake)
}

func (rc *RecordConn) ReadChangeCipherSpec() error {
	payload, err := rc.readRecord(handshake.ContentTypeChangeCipherSpec)
	if err != nil {
		return err
	}
	if len(payload) != 1 || payload[0] != 1 {
		return fmt.Errorf("transport: malformed change_cipher_spec record")
	}
	return nil
}

func (rc *RecordConn) WriteHandshake(msg []byte) error {
	return rc.writeRecord(handshake.ContentTypeHandshake, msg)
}

func (rc *RecordConn) WriteChangeCipherSpec() error {
	return rc.writeRecord(handshake.ContentTypeChangeCipherSpec, []byte{1})
}

func (rc *RecordConn) SendAlert(level handshake.AlertLevel, desc handshake.AlertDescription) error {
	if err := rc.writeRecord(handshake.ContentTypeAlert, []byte{byte(level), byte(desc)}); err != nil {
		return err
	}
	return rc.Flush()
}

func (rc *RecordConn) Flush() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.bw.Flush()
}

// Close closes the underlying connection.
func (rc *RecordConn) Close() error {
	return rc.conn.Close()
}
