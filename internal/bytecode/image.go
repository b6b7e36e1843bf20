package bytecode

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/object"
)

// ImageSchema is bumped whenever the on-disk layout changes.
const ImageSchema uint16 = 1

// ErrImageSchema reports an image written by an incompatible version.
var ErrImageSchema = errors.New("incompatible image schema")

type constKind uint8

const (
	constNull constKind = iota
	constBool
	constInt
	constFloat
	constString
	constFunction
)

type constRecord struct {
	Kind     constKind `msgpack:"k"`
	Bool     bool      `msgpack:"b,omitempty"`
	Int      int64     `msgpack:"i,omitempty"`
	Float    float64   `msgpack:"f,omitempty"`
	Str      string    `msgpack:"s,omitempty"`
	Arity    int       `msgpack:"a,omitempty"`
	Offset   int       `msgpack:"o,omitempty"`
	Upvalues int       `msgpack:"u,omitempty"`
}

// Image is the serialised form of a compiled program (.emc).
type Image struct {
	Schema    uint16        `msgpack:"schema"`
	Natives   []string      `msgpack:"natives"`
	Entry     int           `msgpack:"entry"`
	Globals   int           `msgpack:"globals"`
	Code      []byte        `msgpack:"code"`
	Lines     []uint32      `msgpack:"lines"`
	Constants []constRecord `msgpack:"constants"`
}

// EncodeImage writes chunk c (entered at entry) to w. natives lists the names
// bound to the leading global slots; a loader must provide the same set.
func EncodeImage(w io.Writer, c *Chunk, heap *object.Heap, entry int, natives []string) error {
	img := Image{
		Schema:    ImageSchema,
		Natives:   natives,
		Entry:     entry,
		Globals:   len(c.Globals),
		Code:      c.Code,
		Lines:     c.Lines,
		Constants: make([]constRecord, 0, len(c.Constants)),
	}
	for i, v := range c.Constants {
		rec, err := encodeConst(v, heap)
		if err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
		img.Constants = append(img.Constants, rec)
	}
	return msgpack.NewEncoder(w).Encode(&img)
}

func encodeConst(v object.Value, heap *object.Heap) (constRecord, error) {
	switch v.Kind {
	case object.VKNull:
		return constRecord{Kind: constNull}, nil
	case object.VKBool:
		return constRecord{Kind: constBool, Bool: v.Bool}, nil
	case object.VKInt:
		return constRecord{Kind: constInt, Int: v.Int}, nil
	case object.VKFloat:
		return constRecord{Kind: constFloat, Float: v.F}, nil
	case object.VKObj:
		obj := heap.Get(v.H)
		switch obj.Kind {
		case object.KindString:
			return constRecord{Kind: constString, Str: obj.Str}, nil
		case object.KindFunction:
			return constRecord{
				Kind:     constFunction,
				Str:      heap.Str(obj.Name),
				Arity:    obj.Arity,
				Offset:   obj.Offset,
				Upvalues: obj.UpvalueCount,
			}, nil
		default:
			return constRecord{}, fmt.Errorf("cannot serialise %s constant", obj.Kind)
		}
	}
	return constRecord{}, fmt.Errorf("cannot serialise %s constant", v.Kind)
}

// DecodeImage reads an image from r.
func DecodeImage(r io.Reader) (*Image, error) {
	var img Image
	if err := msgpack.NewDecoder(r).Decode(&img); err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Schema != ImageSchema {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrImageSchema, img.Schema, ImageSchema)
	}
	return &img, nil
}

// Materialize appends the image into c, allocating constants in heap, and returns
// the entry offset. natives are the names already bound to c's leading global slots.
func (img *Image) Materialize(c *Chunk, heap *object.Heap, natives []string) (int, error) {
	if !slices.Equal(img.Natives, natives) {
		return 0, fmt.Errorf("image was built against natives %v, runtime has %v", img.Natives, natives)
	}
	if len(c.Code) != 0 {
		return 0, fmt.Errorf("image must be loaded into an empty chunk")
	}
	codeLen, err := safecast.Conv[uint32](len(img.Code))
	if err != nil {
		return 0, fmt.Errorf("image code too large: %w", err)
	}
	if img.Entry < 0 || img.Entry > len(img.Code) {
		return 0, fmt.Errorf("entry %d outside code of %d bytes", img.Entry, len(img.Code))
	}
	for _, bound := range img.Lines {
		if bound > codeLen {
			return 0, fmt.Errorf("line table bound %d beyond code end %d", bound, codeLen)
		}
	}
	if img.Globals < len(c.Globals) {
		return 0, fmt.Errorf("image declares %d globals, fewer than the %d natives", img.Globals, len(c.Globals))
	}

	for i, rec := range img.Constants {
		v, err := materializeConst(rec, heap, len(img.Code))
		if err != nil {
			return 0, fmt.Errorf("constant %d: %w", i, err)
		}
		c.Constants = append(c.Constants, v)
	}
	c.Code = append(c.Code, img.Code...)
	c.Lines = append(c.Lines[:0], img.Lines...)
	for len(c.Globals) < img.Globals {
		c.AddGlobal()
	}
	return img.Entry, nil
}

func materializeConst(rec constRecord, heap *object.Heap, codeLen int) (object.Value, error) {
	switch rec.Kind {
	case constNull:
		return object.Null(), nil
	case constBool:
		return object.Bool(rec.Bool), nil
	case constInt:
		return object.Int(rec.Int), nil
	case constFloat:
		return object.Float(rec.Float), nil
	case constString:
		return object.Obj(heap.InternString(rec.Str)), nil
	case constFunction:
		if rec.Offset < 0 || rec.Offset > codeLen {
			return object.Value{}, fmt.Errorf("function %q offset %d outside code", rec.Str, rec.Offset)
		}
		fn := heap.NewFunction(heap.InternString(rec.Str), rec.Arity)
		obj := heap.Get(fn)
		obj.Offset = rec.Offset
		obj.UpvalueCount = rec.Upvalues
		return object.Obj(fn), nil
	default:
		return object.Value{}, fmt.Errorf("unknown constant kind %d", rec.Kind)
	}
}
