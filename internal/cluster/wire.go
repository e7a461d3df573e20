package cluster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ironsheep/count-circles/internal/hough"
)

var (
	// ErrProtocol is returned for unexpected or malformed frames.
	ErrProtocol = errors.New("cluster protocol error")

	// ErrWorker is returned when a worker reports a failure or is lost.
	ErrWorker = errors.New("worker failed")
)

// Transfer selects what each worker receives and returns.
type Transfer int32

const (
	// TransferFull sends the whole edge map and returns full-size accumulators.
	TransferFull Transfer = iota

	// TransferCrop sends each worker its columns only and returns padded accumulators.
	TransferCrop
)

func (t Transfer) String() string {
	switch t {
	case TransferFull:
		return "full"
	case TransferCrop:
		return "crop"
	}
	return fmt.Sprintf("Transfer(%d)", int32(t))
}

// ParseTransfer parses "full" or "crop".
func ParseTransfer(s string) (Transfer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "":
		return TransferFull, nil
	case "crop":
		return TransferCrop, nil
	}
	return 0, fmt.Errorf("unknown transfer mode: %s", s)
}

type frameKind uint8

const (
	frameReady frameKind = iota + 1
	frameParams
	frameTask
	frameSlice
	frameVotes
	frameTiming
	frameError
	frameShutdown
)

func (k frameKind) String() string {
	names := [...]string{"invalid", "ready", "params", "task", "slice", "votes", "timing", "error", "shutdown"}
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("frame(%d)", uint8(k))
}

const (
	headerSize = 5

	// maxPayload bounds a single frame so a corrupt length cannot trigger a huge
	// allocation.
	maxPayload = 1 << 30
)

func writeFrame(w io.Writer, kind frameKind, payload []byte) error {
	var hdr [headerSize]byte
	hdr[0] = byte(kind)
	binary.LittleEndian.PutUint32(hdr[1:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", kind, err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", kind, err)
	}
	return nil
}

func readFrame(r io.Reader) (frameKind, []byte, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	kind := frameKind(hdr[0])
	n := binary.LittleEndian.Uint32(hdr[1:])
	if kind < frameReady || kind > frameShutdown {
		return 0, nil, fmt.Errorf("%w: unknown frame kind %d", ErrProtocol, hdr[0])
	}
	if n > maxPayload {
		return 0, nil, fmt.Errorf("%w: %s frame of %d bytes", ErrProtocol, kind, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("failed to read %s frame: %w", kind, err)
	}
	return kind, payload, nil
}

// expectFrame reads one frame and checks its kind. An error frame from the peer
// is turned into ErrWorker.
func expectFrame(r io.Reader, want frameKind) ([]byte, error) {
	kind, payload, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	if kind == frameError && want != frameError {
		return nil, fmt.Errorf("%w: %s", ErrWorker, payload)
	}
	if kind != want {
		return nil, fmt.Errorf("%w: got %s frame, want %s", ErrProtocol, kind, want)
	}
	return payload, nil
}

const paramsSize = 5*4 + 2

func encodeParams(p hough.Params) []byte {
	buf := make([]byte, 0, paramsSize)
	for _, v := range p.Record() {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
	}
	return append(buf, boolByte(p.Binning), boolByte(p.Spacing))
}

func decodeParams(b []byte) (hough.Params, error) {
	if len(b) != paramsSize {
		return hough.Params{}, fmt.Errorf("%w: params payload of %d bytes", ErrProtocol, len(b))
	}
	var rec hough.Record
	for i := range rec {
		rec[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return hough.ParamsFromRecord(rec, b[20] != 0, b[21] != 0), nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// task is one worker's assignment for a run.
type task struct {
	Partition  int32
	XStart     int32
	Width      int32
	Pad        int32
	ImageWidth int32
	Height     int32
	Transfer   Transfer
}

const taskSize = 7 * 4

func (t task) encode() []byte {
	buf := make([]byte, 0, taskSize)
	for _, v := range []int32{t.Partition, t.XStart, t.Width, t.Pad, t.ImageWidth, t.Height, int32(t.Transfer)} {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
	}
	return buf
}

func decodeTask(b []byte) (task, error) {
	if len(b) != taskSize {
		return task{}, fmt.Errorf("%w: task payload of %d bytes", ErrProtocol, len(b))
	}
	v := func(i int) int32 { return int32(binary.LittleEndian.Uint32(b[i*4:])) }
	t := task{
		Partition:  v(0),
		XStart:     v(1),
		Width:      v(2),
		Pad:        v(3),
		ImageWidth: v(4),
		Height:     v(5),
		Transfer:   Transfer(v(6)),
	}
	if t.Width < 1 || t.Height < 1 || t.Pad < 0 || t.XStart < 0 || t.XStart+t.Width > t.ImageWidth {
		return task{}, fmt.Errorf("%w: invalid task %+v", ErrProtocol, t)
	}
	if t.Transfer != TransferFull && t.Transfer != TransferCrop {
		return task{}, fmt.Errorf("%w: unknown transfer mode %d", ErrProtocol, t.Transfer)
	}
	return t, nil
}

// sliceSize is the message A length the task implies.
func (t task) sliceSize() int {
	if t.Transfer == TransferCrop {
		return int(t.Width) * int(t.Height)
	}
	return int(t.ImageWidth) * int(t.Height)
}

func encodeVotes(votes []uint16) []byte {
	buf := make([]byte, len(votes)*2)
	for i, v := range votes {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return buf
}

func decodeVotes(b []byte, dst []uint16) error {
	if len(b) != len(dst)*2 {
		return fmt.Errorf("%w: votes payload of %d bytes, want %d", ErrProtocol, len(b), len(dst)*2)
	}
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return nil
}

func encodeTiming(ns int64) []byte {
	return binary.LittleEndian.AppendUint64(nil, uint64(ns))
}

func decodeTiming(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: timing payload of %d bytes", ErrProtocol, len(b))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}
