package link

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Config holds serial port configuration for a Transport.
type Config struct {
	// Device is the path to the serial device (e.g. "/dev/ttyACM0", "COM3").
	Device string
	// Baud is the serial baud rate. Ignored by USB-CDC boards but required
	// by github.com/tarm/serial regardless.
	Baud int
	// ReadTimeout bounds a single Read call; 0 blocks indefinitely.
	ReadTimeout time.Duration
}

// DefaultConfig returns sane defaults for a board running the motion core.
func DefaultConfig(device string) Config {
	return Config{Device: device, Baud: 250000, ReadTimeout: 100 * time.Millisecond}
}

// Transport is a line-oriented serial connection to a controller board
// running the motion core -- generalized from Klipper's binary dictionary
// protocol down to simple console lines, each one optionally wrapped by
// EncodeFrame (see framed below) so a real board's replies are CRC-checked.
type Transport struct {
	port   io.ReadWriteCloser
	reader *bufio.Reader
	framed bool // true: every line rides inside a link.EncodeFrame/DecodeFrame
}

// Open opens a native serial port via github.com/tarm/serial. A real board
// always speaks the framed wire format, so the returned Transport verifies
// and strips a CRC16 trailer off every line it reads and frames every line
// it writes.
func Open(cfg Config) (*Transport, error) {
	sp, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("link: open %s: %w", cfg.Device, err)
	}
	return &Transport{port: sp, reader: bufio.NewReader(sp), framed: true}, nil
}

// WrapReadWriteCloser builds an unframed Transport over an already-open
// connection: plain newline-delimited text, no CRC trailer. Used by
// cmd/ucnc-console's interactive stdin/stdout mode, where a human is typing
// the lines and there is no board-side framing to match.
func WrapReadWriteCloser(rwc io.ReadWriteCloser) *Transport {
	return &Transport{port: rwc, reader: bufio.NewReader(rwc)}
}

// WrapFramedReadWriteCloser builds a Transport over an already-open
// connection with framing enabled, for tests and any caller that wants
// Open's CRC-checked wire format without a real serial.Port underneath.
func WrapFramedReadWriteCloser(rwc io.ReadWriteCloser) *Transport {
	return &Transport{port: rwc, reader: bufio.NewReader(rwc), framed: true}
}

// ReadLine reads a single console line, verifying and stripping the CRC16
// frame first when the Transport is framed.
func (t *Transport) ReadLine() (string, error) {
	if t.framed {
		return t.readFrame()
	}
	line, err := t.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

// WriteLine writes a single console line, wrapping it in a CRC16 frame
// first when the Transport is framed.
func (t *Transport) WriteLine(line string) error {
	if t.framed {
		return t.writeFrame(line)
	}
	_, err := fmt.Fprintf(t.port, "%s\n", line)
	return err
}

// readFrame reads the VLQ length-prefix byte-by-byte (the first byte with its
// continuation bit clear is the last), then the string body plus its CRC16 trailer in one
// read, and hands the whole thing to DecodeFrame.
func (t *Transport) readFrame() (string, error) {
	var head []byte
	for {
		b, err := t.reader.ReadByte()
		if err != nil {
			return "", err
		}
		head = append(head, b)
		if b&0x80 == 0 {
			break
		}
	}

	data := append([]byte(nil), head...)
	n, err := DecodeVLQUint(&data)
	if err != nil {
		return "", err
	}

	rest := make([]byte, int(n)+2) // string body + 2-byte CRC16 trailer
	if _, err := io.ReadFull(t.reader, rest); err != nil {
		return "", err
	}

	frame := append(head, rest...)
	return DecodeFrame(frame)
}

// writeFrame frames line via EncodeFrame and writes it as one call.
func (t *Transport) writeFrame(line string) error {
	_, err := t.port.Write(EncodeFrame(line))
	return err
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	return t.port.Close()
}
