package tickfile

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/automatedalgo/apex/internal/apexerr"
	"github.com/automatedalgo/apex/internal/domain"
)

// Reader is a lazy, single-pass, non-restartable sequential reader
// over one bucket file. Construct with Open, consume with Next until
// io.EOF, then Close.
type Reader struct {
	file   *os.File
	gz     *gzip.Reader
	in     *bufio.Reader
	Info   StreamInfo
	closer io.Closer
	offset int64
}

// Open validates the bucket header (magic, version) and returns a
// Reader positioned at the first record. Gzip wrapping is detected by
// a ".gz" path suffix, matching Writer's selection rule.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tickfile: open %s: %w", path, err)
	}

	r := &Reader{file: f, closer: f}
	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("tickfile: gzip header %s: %w", path, err)
		}
		r.gz = gz
		r.closer = multiCloser{gz, f}
		src = gz
	}
	r.in = bufio.NewReaderSize(src, 64*1024)

	if err := r.readHeader(path); err != nil {
		r.closer.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) readHeader(path string) error {
	var magic [4]byte
	if _, err := io.ReadFull(r.in, magic[:]); err != nil {
		return fmt.Errorf("tickfile: read magic %s: %w", path, err)
	}
	if magic != Magic {
		return apexerr.NewValidationError("tickfile", "bad magic in %s", path)
	}

	var version uint16
	if err := binary.Read(r.in, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("tickfile: read version %s: %w", path, err)
	}
	if version != Version {
		return apexerr.NewValidationError("tickfile", "unsupported version %d in %s", version, path)
	}

	symbol, err := readString(r.in)
	if err != nil {
		return fmt.Errorf("tickfile: read symbol %s: %w", path, err)
	}
	exchByte, err := r.in.ReadByte()
	if err != nil {
		return err
	}
	streamByte, err := r.in.ReadByte()
	if err != nil {
		return err
	}
	r.Info = StreamInfo{
		NativeSymbol: symbol,
		ExchangeID:   domain.ExchangeID(exchByte),
		Stream:       domain.MdStream(streamByte),
	}

	var metaLen uint32
	if err := binary.Read(r.in, binary.LittleEndian, &metaLen); err != nil {
		return fmt.Errorf("tickfile: read metadata length %s: %w", path, err)
	}
	if _, err := io.CopyN(io.Discard, r.in, int64(metaLen)); err != nil {
		return fmt.Errorf("tickfile: read metadata %s: %w", path, err)
	}
	return nil
}

func readString(r *bufio.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Next returns the next tick event, (nil, io.EOF) on clean end of
// stream, or a *apexerr.CorruptRecordError on a short read mid-record.
func (r *Reader) Next(instr domain.Instrument, stream domain.MdStream) (*domain.TickEvent, error) {
	var recLen uint16
	if err := binary.Read(r.in, binary.LittleEndian, &recLen); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &apexerr.CorruptRecordError{Path: r.file.Name(), Offset: r.offset}
	}

	body := make([]byte, recLen)
	if _, err := io.ReadFull(r.in, body); err != nil {
		return nil, &apexerr.CorruptRecordError{Path: r.file.Name(), Offset: r.offset}
	}
	r.offset += int64(2 + recLen)

	if len(body) < 17 {
		return nil, &apexerr.CorruptRecordError{Path: r.file.Name(), Offset: r.offset}
	}
	rt := recordType(body[0])
	exchTS := int64(binary.LittleEndian.Uint64(body[1:9]))
	recvTS := int64(binary.LittleEndian.Uint64(body[9:17]))

	tob, trade, err := decodePayload(rt, body[17:])
	if err != nil {
		return nil, &apexerr.CorruptRecordError{Path: r.file.Name(), Offset: r.offset}
	}

	evt := &domain.TickEvent{
		Instrument: instr,
		Stream:     stream,
		ExchTime:   domain.NewTimeFromUnixMicro(exchTS),
		RecvTime:   domain.NewTimeFromUnixMicro(recvTS),
	}
	if tob != nil {
		evt.Kind = domain.TickTopOfBook
		evt.TopOfBook = tob
	} else {
		evt.Kind = domain.TickTrade
		evt.Trade = trade
	}
	return evt, nil
}

// Close releases the underlying file (and gzip reader, if wrapped).
func (r *Reader) Close() error {
	return r.closer.Close()
}
