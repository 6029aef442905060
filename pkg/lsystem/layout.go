package lsystem

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/taigrr/sprout/pkg/math3d"
)

// Byte strides of one record in a std430 storage buffer.
const (
	BranchStride = 32 // vec3 p1, float r1, vec3 p2, float r2
	LeafStride   = 64 // vec4 position, vec4 direction, vec4 up, vec4 size
)

// AppendStd430 appends the branch as little-endian float32 in std430 layout.
// Each radius fills the padding word of the vec3 before it.
func (b Branch) AppendStd430(dst []byte) []byte {
	dst = appendVec4(dst, math3d.V4FromV3(b.P1, b.R1))
	return appendVec4(dst, math3d.V4FromV3(b.P2, b.R2))
}

// AppendStd430 appends the leaf as four little-endian float32 vec4s.
// Position has w=1, the two axes have w=0, size is (width, length, 0, 0).
func (l Leaf) AppendStd430(dst []byte) []byte {
	dst = appendVec4(dst, math3d.V4FromV3(l.Position, 1))
	dst = appendVec4(dst, math3d.V4FromV3(l.Direction, 0))
	dst = appendVec4(dst, math3d.V4FromV3(l.Up, 0))
	return appendVec4(dst, math3d.V4(l.Size.X, l.Size.Y, 0, 0))
}

func appendVec4(dst []byte, v math3d.Vec4) []byte {
	for _, c := range v.Array() {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(c)))
	}
	return dst
}

// PackBranches returns all branches as one std430 buffer.
func (b *Buffers) PackBranches() []byte {
	out := make([]byte, 0, len(b.Branches)*BranchStride)
	for _, br := range b.Branches {
		out = br.AppendStd430(out)
	}
	return out
}

// PackLeaves returns all leaves as one std430 buffer.
func (b *Buffers) PackLeaves() []byte {
	out := make([]byte, 0, len(b.Leaves)*LeafStride)
	for _, l := range b.Leaves {
		out = l.AppendStd430(out)
	}
	return out
}

// WriteStd430 streams the branch buffer to branches and the leaf buffer to
// leaves.
func (b *Buffers) WriteStd430(branches, leaves io.Writer) error {
	bw := bufio.NewWriter(branches)
	var rec []byte
	for _, br := range b.Branches {
		rec = br.AppendStd430(rec[:0])
		if _, err := bw.Write(rec); err != nil {
			return fmt.Errorf("write branch buffer: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush branch buffer: %w", err)
	}

	lw := bufio.NewWriter(leaves)
	for _, l := range b.Leaves {
		rec = l.AppendStd430(rec[:0])
		if _, err := lw.Write(rec); err != nil {
			return fmt.Errorf("write leaf buffer: %w", err)
		}
	}
	if err := lw.Flush(); err != nil {
		return fmt.Errorf("flush leaf buffer: %w", err)
	}
	return nil
}
