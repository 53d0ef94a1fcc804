package datavalues

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/bitutil"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/arrow/scalar"
)

// boolOperand reads a boolean input eight positions at a time. A constant
// operand stands for a broadcast scalar and is never materialised.
type boolOperand struct {
	values   []byte
	validity []byte // nil means every position is valid
	offset   int

	constant   bool
	constValue bool
	constValid bool
}

func bufferBytes(b *memory.Buffer) []byte {
	if b == nil {
		return nil
	}
	return b.Bytes()
}

func arrayOperand(arr arrow.Array) boolOperand {
	if arr.DataType().ID() == arrow.NULL {
		return boolOperand{constant: true}
	}
	data := arr.Data()
	bufs := data.Buffers()
	op := boolOperand{offset: data.Offset()}
	if len(bufs) > 1 {
		op.values = bufferBytes(bufs[1])
	}
	if arr.NullN() > 0 {
		op.validity = bufferBytes(bufs[0])
	}
	return op
}

func scalarOperand(sc scalar.Scalar) boolOperand {
	op := boolOperand{constant: true, constValid: sc.IsValid()}
	if b, ok := sc.(*scalar.Boolean); ok && b.IsValid() {
		op.constValue = b.Value
	}
	return op
}

func gatherByte(bitmap []byte, offset, i, n int) byte {
	start := offset + i*8
	if start%8 == 0 {
		return bitmap[start/8]
	}
	var out byte
	end := 8
	if rem := n - i*8; rem < end {
		end = rem
	}
	for j := 0; j < end; j++ {
		if bitutil.BitIsSet(bitmap, start+j) {
			out |= 1 << uint(j)
		}
	}
	return out
}

func constByte(b bool) byte {
	if b {
		return 0xFF
	}
	return 0x00
}

// valueByte returns the value bits of positions [8i, 8i+8).
func (o *boolOperand) valueByte(i, n int) byte {
	if o.constant {
		return constByte(o.constValue)
	}
	return gatherByte(o.values, o.offset, i, n)
}

// validByte returns the validity bits of positions [8i, 8i+8).
func (o *boolOperand) validByte(i, n int) byte {
	if o.constant {
		return constByte(o.constValid)
	}
	if o.validity == nil {
		return 0xFF
	}
	return gatherByte(o.validity, o.offset, i, n)
}

// Kleene combinators. v* are value bits, k* are validity ("known") bits. Each
// returns the output value and validity for eight positions; value bits of
// null positions are cleared so equal inputs give bit-identical outputs.

func kleeneAnd(lv, lk, rv, rk byte) (byte, byte) {
	k := (lk & rk) | (lk &^ lv) | (rk &^ rv)
	return lv & rv & k, k
}

func kleeneOr(lv, lk, rv, rk byte) (byte, byte) {
	k := (lk & rk) | (lk & lv) | (rk & rv)
	return ((lv & lk) | (rv & rk)) & k, k
}

func kleeneXor(lv, lk, rv, rk byte) (byte, byte) {
	k := lk & rk
	return (lv ^ rv) & k, k
}

func kleeneNot(v, k byte) (byte, byte) {
	return ^v & k, k
}

type bitmapPair struct {
	values   *memory.Buffer
	validity *memory.Buffer
}

func allocBitmaps(mem memory.Allocator, n int) bitmapPair {
	nbytes := int(bitutil.BytesForBits(int64(n)))
	vals := memory.NewResizableBuffer(mem)
	vals.Resize(nbytes)
	valid := memory.NewResizableBuffer(mem)
	valid.Resize(nbytes)
	return bitmapPair{values: vals, validity: valid}
}

// tailMask clears the bits past n in the last byte.
func tailMask(i, n int) byte {
	rem := n - i*8
	if rem >= 8 {
		return 0xFF
	}
	return byte(1<<uint(rem)) - 1
}

// finish wraps the buffers into a Boolean array, dropping the validity
// bitmap when nothing is null.
func (p bitmapPair) finish(n int) *array.Boolean {
	valid := p.validity.Bytes()
	nulls := n - bitutil.CountSetBits(valid, 0, n)
	validity := p.validity
	if nulls == 0 {
		p.validity.Release()
		validity = nil
	}
	data := array.NewData(arrow.FixedWidthTypes.Boolean, n, []*memory.Buffer{validity, p.values}, nil, nulls, 0)
	defer data.Release()
	p.values.Release()
	if validity != nil {
		validity.Release()
	}
	return array.NewBooleanData(data)
}

func kleeneBinary(mem memory.Allocator, n int, l, r boolOperand, fn func(lv, lk, rv, rk byte) (byte, byte)) *array.Boolean {
	out := allocBitmaps(mem, n)
	vals, valid := out.values.Bytes(), out.validity.Bytes()
	for i := range vals {
		v, k := fn(l.valueByte(i, n), l.validByte(i, n), r.valueByte(i, n), r.validByte(i, n))
		m := tailMask(i, n)
		vals[i], valid[i] = v&m, k&m
	}
	return out.finish(n)
}

func kleeneUnary(mem memory.Allocator, n int, in boolOperand) *array.Boolean {
	out := allocBitmaps(mem, n)
	vals, valid := out.values.Bytes(), out.validity.Bytes()
	for i := range vals {
		v, k := kleeneNot(in.valueByte(i, n), in.validByte(i, n))
		m := tailMask(i, n)
		vals[i], valid[i] = v&m, k&m
	}
	return out.finish(n)
}
