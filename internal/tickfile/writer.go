package tickfile

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/automatedalgo/apex/internal/domain"
)

// Writer appends tick records to a single bucket file. Creation is
// exclusive (os.O_EXCL): a writer never silently overwrites an
// existing bucket. Records are appended monotonically; there is no
// in-place edit. Writes are not atomic across crash boundaries —
// recovery is by discarding trailing truncated records on read.
type Writer struct {
	file    *os.File
	gz      *gzip.Writer
	out     *bufio.Writer
	closer  io.Closer
}

// Create opens path for exclusive creation and writes the bucket
// header. Metadata is arbitrary JSON, opaque to the reader. Gzip
// wrapping is selected by a ".gz" path suffix.
func Create(path string, info StreamInfo, metadata any) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tickfile: create %s: %w", path, err)
	}

	w := &Writer{file: f, closer: f}
	var dst io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		w.gz = gz
		w.closer = multiCloser{gz, f}
		dst = gz
	}
	w.out = bufio.NewWriterSize(dst, 64*1024)

	if err := w.writeHeader(info, metadata); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

type multiCloser struct {
	first, second io.Closer
}

func (m multiCloser) Close() error {
	if err := m.first.Close(); err != nil {
		m.second.Close()
		return err
	}
	return m.second.Close()
}

func (w *Writer) writeHeader(info StreamInfo, metadata any) error {
	if _, err := w.out.Write(Magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w.out, binary.LittleEndian, Version); err != nil {
		return err
	}
	if err := writeString(w.out, info.NativeSymbol); err != nil {
		return err
	}
	if err := w.out.WriteByte(byte(info.ExchangeID)); err != nil {
		return err
	}
	if err := w.out.WriteByte(byte(info.Stream)); err != nil {
		return err
	}

	metaBytes, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("tickfile: marshal metadata: %w", err)
	}
	if err := binary.Write(w.out, binary.LittleEndian, uint32(len(metaBytes))); err != nil {
		return err
	}
	_, err = w.out.Write(metaBytes)
	return err
}

func writeString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

// Append writes one tick event as a length-prefixed record.
func (w *Writer) Append(evt domain.TickEvent) error {
	var payload []byte
	rt, payload := encodePayload(payload, evt)

	body := make([]byte, 0, 17+len(payload))
	body = append(body, byte(rt))
	body = binary.LittleEndian.AppendUint64(body, uint64(evt.ExchTime.UnixMicro()))
	body = binary.LittleEndian.AppendUint64(body, uint64(evt.RecvTime.UnixMicro()))
	body = append(body, payload...)

	if len(body) > 0xFFFF {
		return fmt.Errorf("tickfile: record too large (%d bytes)", len(body))
	}
	if err := binary.Write(w.out, binary.LittleEndian, uint16(len(body))); err != nil {
		return err
	}
	_, err := w.out.Write(body)
	return err
}

// Close flushes buffered output and releases the underlying file (and
// gzip writer, if wrapped). Safe to defer immediately after Create.
func (w *Writer) Close() error {
	if err := w.out.Flush(); err != nil {
		w.closer.Close()
		return err
	}
	return w.closer.Close()
}
