package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bnema/wayseat/internal/resource"
	"google.golang.org/protobuf/encoding/protowire"
)

// MaxRecordSize bounds a single encoded message in a trace stream.
const MaxRecordSize = 4096

// ErrRecordTooLarge is returned for a length prefix above MaxRecordSize
var ErrRecordTooLarge = errors.New("trace record too large")

// Field numbers of the protobuf encoding of Message.
const (
	fieldClient protowire.Number = iota + 1
	fieldObject
	fieldOp
	fieldSerial
	fieldTime
	fieldSurface
	fieldID
	fieldX
	fieldY
	fieldButton
	fieldKey
	fieldState
	fieldAxis
	fieldValue
	fieldDiscrete
	fieldSource
	fieldKeys
	fieldMods
	fieldCapabilities
)

const (
	fieldModsDepressed protowire.Number = iota + 1
	fieldModsLatched
	fieldModsLocked
	fieldModsGroup
)

func appendUint(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendSint(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
}

// Marshal encodes m as a protobuf message. Zero fields are omitted.
func Marshal(m Message) []byte {
	var b []byte
	b = appendUint(b, fieldClient, uint32(m.Client))
	b = appendUint(b, fieldObject, m.Object)
	if m.Op != "" {
		b = protowire.AppendTag(b, fieldOp, protowire.BytesType)
		b = protowire.AppendString(b, string(m.Op))
	}
	b = appendUint(b, fieldSerial, m.Serial)
	b = appendUint(b, fieldTime, m.Time)
	b = appendUint(b, fieldSurface, m.Surface)
	b = appendSint(b, fieldID, m.ID)
	b = appendSint(b, fieldX, int32(m.X))
	b = appendSint(b, fieldY, int32(m.Y))
	b = appendUint(b, fieldButton, m.Button)
	b = appendUint(b, fieldKey, m.Key)
	b = appendUint(b, fieldState, m.State)
	b = appendUint(b, fieldAxis, m.Axis)
	b = appendSint(b, fieldValue, int32(m.Value))
	b = appendSint(b, fieldDiscrete, m.Discrete)
	b = appendUint(b, fieldSource, m.Source)

	if len(m.Keys) > 0 {
		var packed []byte
		for _, k := range m.Keys {
			packed = protowire.AppendVarint(packed, uint64(k))
		}
		b = protowire.AppendTag(b, fieldKeys, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}

	if m.Mods != (Modifiers{}) {
		var mods []byte
		mods = appendUint(mods, fieldModsDepressed, m.Mods.Depressed)
		mods = appendUint(mods, fieldModsLatched, m.Mods.Latched)
		mods = appendUint(mods, fieldModsLocked, m.Mods.Locked)
		mods = appendUint(mods, fieldModsGroup, m.Mods.Group)
		b = protowire.AppendTag(b, fieldMods, protowire.BytesType)
		b = protowire.AppendBytes(b, mods)
	}

	b = appendUint(b, fieldCapabilities, m.Capabilities)
	return b
}

// Unmarshal decodes a message produced by Marshal. Unknown fields are
// skipped.
func Unmarshal(b []byte) (Message, error) {
	var m Message
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Message{}, fmt.Errorf("failed to read tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && num != fieldOp && num != fieldKeys && num != fieldMods:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Message{}, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			setVarint(&m, num, v)

		case typ == protowire.BytesType && num == fieldOp:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return Message{}, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			m.Op = Opcode(s)

		case typ == protowire.BytesType && num == fieldKeys:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Message{}, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			for len(packed) > 0 {
				k, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return Message{}, fmt.Errorf("keys: %w", protowire.ParseError(n))
				}
				packed = packed[n:]
				m.Keys = append(m.Keys, uint32(k))
			}

		case typ == protowire.BytesType && num == fieldMods:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Message{}, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			mods, err := unmarshalModifiers(raw)
			if err != nil {
				return Message{}, err
			}
			m.Mods = mods

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Message{}, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, nil
}

func setVarint(m *Message, num protowire.Number, v uint64) {
	sint := int32(protowire.DecodeZigZag(v))
	switch num {
	case fieldClient:
		m.Client = resource.ClientID(v)
	case fieldObject:
		m.Object = uint32(v)
	case fieldSerial:
		m.Serial = uint32(v)
	case fieldTime:
		m.Time = uint32(v)
	case fieldSurface:
		m.Surface = uint32(v)
	case fieldID:
		m.ID = sint
	case fieldX:
		m.X = Fixed(sint)
	case fieldY:
		m.Y = Fixed(sint)
	case fieldButton:
		m.Button = uint32(v)
	case fieldKey:
		m.Key = uint32(v)
	case fieldState:
		m.State = uint32(v)
	case fieldAxis:
		m.Axis = uint32(v)
	case fieldValue:
		m.Value = Fixed(sint)
	case fieldDiscrete:
		m.Discrete = sint
	case fieldSource:
		m.Source = uint32(v)
	case fieldCapabilities:
		m.Capabilities = uint32(v)
	}
}

func unmarshalModifiers(b []byte) (Modifiers, error) {
	var mods Modifiers
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Modifiers{}, fmt.Errorf("modifiers: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Modifiers{}, fmt.Errorf("modifiers: %w", protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return Modifiers{}, fmt.Errorf("modifiers: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldModsDepressed:
			mods.Depressed = uint32(v)
		case fieldModsLatched:
			mods.Latched = uint32(v)
		case fieldModsLocked:
			mods.Locked = uint32(v)
		case fieldModsGroup:
			mods.Group = uint32(v)
		}
	}
	return mods, nil
}

// TraceWriter is a Sink writing each message as a length-prefixed protobuf
// record: a 4-byte big-endian length followed by the encoded message.
// The first write error is kept and later messages are dropped.
type TraceWriter struct {
	w     io.Writer
	count int
	err   error
}

// NewTraceWriter creates a writer on w
func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{w: w}
}

// Send implements Sink
func (t *TraceWriter) Send(m Message) {
	if t.err != nil {
		return
	}
	if err := WriteRecord(t.w, m); err != nil {
		t.err = err
		return
	}
	t.count++
}

// Count returns the number of records written
func (t *TraceWriter) Count() int { return t.count }

// Err returns the first write error
func (t *TraceWriter) Err() error { return t.err }

// WriteRecord writes one length-prefixed record
func WriteRecord(w io.Writer, m Message) error {
	data := Marshal(m)
	if len(data) > MaxRecordSize {
		return fmt.Errorf("%s: %w", m.Op, ErrRecordTooLarge)
	}

	buf := make([]byte, 4, 4+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	buf = append(buf, data...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	if flusher, ok := w.(interface{ Flush() error }); ok {
		_ = flusher.Flush()
	}
	return nil
}

// ReadRecord reads one record. It returns io.EOF at a clean end of stream
// and io.ErrUnexpectedEOF for a truncated record.
func ReadRecord(r io.Reader) (Message, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return Message{}, err
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length > MaxRecordSize {
		return Message{}, ErrRecordTooLarge
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Message{}, err
	}
	return Unmarshal(data)
}

// ReadTrace reads records until the end of r
func ReadTrace(r io.Reader) ([]Message, error) {
	var msgs []Message
	for {
		m, err := ReadRecord(r)
		if errors.Is(err, io.EOF) {
			return msgs, nil
		}
		if err != nil {
			return msgs, fmt.Errorf("record %d: %w", len(msgs), err)
		}
		msgs = append(msgs, m)
	}
}
