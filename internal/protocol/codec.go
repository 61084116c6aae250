package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/annel0/bricklayer/internal/physics"
	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world"
	"github.com/annel0/bricklayer/internal/world/block"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrMalformed кадр не удалось разобрать; соединение следует закрыть
	ErrMalformed = errors.New("protocol: malformed frame")
	// ErrUnknownType неизвестный тип сообщения
	ErrUnknownType = errors.New("protocol: unknown message type")
)

// Способ сжатия тайлов в Init
const (
	compressionNone uint8 = 0
	compressionZstd uint8 = 1
)

// PositionScale координаты и скорости передаются в фиксированной точке
// с шагом 1/PositionScale пикселя (zigzag varint)
const PositionScale = 16

// Encode кодирует сообщение в кадр [тип][полезная нагрузка]
func Encode(msg Message) ([]byte, error) {
	w := &writer{buf: make([]byte, 0, 32)}
	w.u8(uint8(msg.Type()))

	switch m := msg.(type) {
	case Login:
		w.str(TruncateRunes(m.Username, MaxUsernameLength))
		w.color(m.Color)
	case Init:
		if m.Width <= 0 || m.Height <= 0 || m.Width > world.MaxDimension || m.Height > world.MaxDimension {
			return nil, fmt.Errorf("protocol: init size %dx%d out of range", m.Width, m.Height)
		}
		if len(m.Tiles) != m.Width*m.Height*world.LayerCount {
			return nil, fmt.Errorf("protocol: init has %d tiles, want %d", len(m.Tiles), m.Width*m.Height*world.LayerCount)
		}
		w.u16(uint16(m.Width))
		w.u16(uint16(m.Height))
		w.vecFixed(m.Spawn)
		tiles, compression, err := compressTiles(m.Tiles)
		if err != nil {
			return nil, err
		}
		w.u8(compression)
		w.bytes(tiles)
	case PlayerJoin:
		w.str(TruncateRunes(m.Username, MaxUsernameLength))
		w.u8(m.ID)
		w.bool(m.IsSelf)
		w.color(m.Color)
	case PlayerLeave:
		w.u8(m.ID)
	case PlayerState:
		w.u8(m.ID)
		w.vecFixed(m.Position)
		w.vecFixed(m.Velocity)
		w.i8(m.Movement.X)
		w.i8(m.Movement.Y)
		w.bool(m.IsJumping)
	case PlayerSmiley:
		w.u8(m.ID)
		w.u8(uint8(m.Smiley))
	case PlayerMode:
		w.u8(m.ID)
		w.u8(uint8(m.Mode))
	case Block:
		if m.X < 0 || m.Y < 0 || m.X > math.MaxUint16 || m.Y > math.MaxUint16 || m.Layer < 0 || m.Layer > math.MaxUint8 {
			return nil, fmt.Errorf("protocol: block position (%d,%d,%d) out of range", m.X, m.Y, m.Layer)
		}
		w.u16(uint16(m.X))
		w.u16(uint16(m.Y))
		w.u8(uint8(m.Layer))
		w.u8(uint8(m.Block))
	case Chat:
		w.u8(m.ID)
		w.str(TruncateRunes(m.Message, MaxChatLength))
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, msg)
	}

	return w.buf, nil
}

// Decode разбирает кадр. Любая ошибка оборачивает ErrMalformed.
func Decode(frame []byte) (Message, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	t := MsgType(frame[0])
	r := &reader{buf: frame[1:]}

	var msg Message
	switch t {
	case MsgLogin:
		msg = Login{
			Username: TruncateRunes(r.str(), MaxUsernameLength),
			Color:    r.color(),
		}
	case MsgInit:
		m := Init{
			Width:  int(r.u16()),
			Height: int(r.u16()),
			Spawn:  r.vecFixed(),
		}
		compression := r.u8()
		raw := r.bytes()
		if r.err == nil {
			// размер проверяется до распаковки: кадр приходит от недоверенной стороны
			if m.Width == 0 || m.Height == 0 || m.Width > world.MaxDimension || m.Height > world.MaxDimension {
				return nil, fmt.Errorf("%w: init size %dx%d out of range", ErrMalformed, m.Width, m.Height)
			}
			want := m.Width * m.Height * world.LayerCount
			tiles, err := decompressTiles(raw, compression, want)
			if err != nil {
				return nil, fmt.Errorf("%w: init tiles: %v", ErrMalformed, err)
			}
			if len(tiles) != want {
				return nil, fmt.Errorf("%w: init has %d tiles for %dx%d", ErrMalformed, len(tiles), m.Width, m.Height)
			}
			m.Tiles = tiles
		}
		msg = m
	case MsgPlayerJoin:
		msg = PlayerJoin{
			Username: TruncateRunes(r.str(), MaxUsernameLength),
			ID:       r.u8(),
			IsSelf:   r.bool(),
			Color:    r.color(),
		}
	case MsgPlayerLeave:
		msg = PlayerLeave{ID: r.u8()}
	case MsgPlayerState:
		msg = PlayerState{
			ID:        r.u8(),
			Position:  r.vecFixed(),
			Velocity:  r.vecFixed(),
			Movement:  vec.Vec2Float{X: r.i8(), Y: r.i8()},
			IsJumping: r.bool(),
		}
	case MsgPlayerSmiley:
		msg = PlayerSmiley{ID: r.u8(), Smiley: block.SmileyID(r.u8())}
	case MsgPlayerMode:
		msg = PlayerMode{ID: r.u8(), Mode: physics.Mode(r.u8())}
	case MsgBlock:
		msg = Block{
			X:     int(r.u16()),
			Y:     int(r.u16()),
			Layer: int(r.u8()),
			Block: block.BlockID(r.u8()),
		}
	case MsgChat:
		msg = Chat{ID: r.u8(), Message: TruncateRunes(r.str(), MaxChatLength)}
	default:
		return nil, fmt.Errorf("%w: %v type %d", ErrMalformed, ErrUnknownType, frame[0])
	}

	if r.err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, t, r.err)
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("%w: %s: %d trailing bytes", ErrMalformed, t, len(r.buf))
	}
	return msg, nil
}

// writer дописывает поля в буфер, little-endian
type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) i8(v float64) {
	w.u8(uint8(int8(vec.Clamp(math.Round(v), math.MinInt8, math.MaxInt8))))
}

// fixed пишет v·PositionScale, округлённое и ограниченное int32
func (w *writer) fixed(v float64) {
	if math.IsNaN(v) {
		v = 0
	}
	n := int64(vec.Clamp(math.Round(v*PositionScale), math.MinInt32, math.MaxInt32))
	w.buf = protowire.AppendVarint(w.buf, protowire.EncodeZigZag(n))
}

func (w *writer) vecFixed(v vec.Vec2Float) {
	w.fixed(v.X)
	w.fixed(v.Y)
}

func (w *writer) color(c world.Color) {
	w.buf = append(w.buf, c.R, c.G, c.B)
}

func (w *writer) str(s string) { w.buf = protowire.AppendString(w.buf, s) }

func (w *writer) bytes(b []byte) { w.buf = protowire.AppendBytes(w.buf, b) }

// reader читает поля; первая ошибка запоминается, дальнейшие чтения возвращают нули
type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = fmt.Errorf("need %d bytes, have %d", n, len(r.buf))
		return nil
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) bool() bool {
	v := r.u8()
	if v > 1 && r.err == nil {
		r.err = fmt.Errorf("bad bool %d", v)
	}
	return v == 1
}

func (r *reader) i8() float64 {
	return float64(int8(r.u8()))
}

func (r *reader) fixed() float64 {
	if r.err != nil {
		return 0
	}
	v, n := protowire.ConsumeVarint(r.buf)
	if n < 0 {
		r.err = fmt.Errorf("bad varint: %v", protowire.ParseError(n))
		return 0
	}
	r.buf = r.buf[n:]
	x := protowire.DecodeZigZag(v)
	if x < math.MinInt32 || x > math.MaxInt32 {
		r.err = fmt.Errorf("fixed-point value %d out of range", x)
		return 0
	}
	return float64(x) / PositionScale
}

func (r *reader) vecFixed() vec.Vec2Float {
	return vec.Vec2Float{X: r.fixed(), Y: r.fixed()}
}

func (r *reader) color() world.Color {
	return world.Color{R: r.u8(), G: r.u8(), B: r.u8()}
}

func (r *reader) bytes() []byte {
	if r.err != nil {
		return nil
	}
	v, n := protowire.ConsumeBytes(r.buf)
	if n < 0 {
		r.err = fmt.Errorf("bad length prefix: %v", protowire.ParseError(n))
		return nil
	}
	r.buf = r.buf[n:]
	return v
}

func (r *reader) str() string {
	return string(r.bytes())
}
