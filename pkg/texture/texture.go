// Package texture repairs individual texture payloads stored inside a
// DAT archive entry: it trims a mipmap chain down to the power-of-two
// levels actually present and, for DXT5 textures, rewrites every color
// block that uses the ambiguous punch-through palette order into the
// canonical opaque order via pkg/block.
package texture

import (
	"encoding/binary"
	"fmt"

	"github.com/goopsie/dattexfix/pkg/block"
)

// Texture payload types this package knows how to repair. Every other
// type is pass-through.
const (
	TypeHalfByte = 22 // 0.5 bytes/pixel, chain trimming only
	TypeDXT5     = 26 // 1 byte/pixel average, full block repair
)

// HeaderSize is the fixed size of a tex_header: width, height, type,
// mmaps, and three opaque fields preserved verbatim.
const HeaderSize = 14

// BlockSize is the size in bytes of one 4x4 DXT5 block.
const BlockSize = 16

// Header is the 14-byte header every texture payload begins with.
type Header struct {
	Width, Height, Type, MMaps uint16
	U1, U2, U3                 uint16
}

// ParseHeader reads a Header from the first HeaderSize bytes of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("texture: file not large enough")
	}
	return Header{
		Width:  binary.LittleEndian.Uint16(data[0:2]),
		Height: binary.LittleEndian.Uint16(data[2:4]),
		Type:   binary.LittleEndian.Uint16(data[4:6]),
		MMaps:  binary.LittleEndian.Uint16(data[6:8]),
		U1:     binary.LittleEndian.Uint16(data[8:10]),
		U2:     binary.LittleEndian.Uint16(data[10:12]),
		U3:     binary.LittleEndian.Uint16(data[12:14]),
	}, nil
}

func (h Header) encodeInto(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], h.Width)
	binary.LittleEndian.PutUint16(buf[2:4], h.Height)
	binary.LittleEndian.PutUint16(buf[4:6], h.Type)
	binary.LittleEndian.PutUint16(buf[6:8], h.MMaps)
	binary.LittleEndian.PutUint16(buf[8:10], h.U1)
	binary.LittleEndian.PutUint16(buf[10:12], h.U2)
	binary.LittleEndian.PutUint16(buf[12:14], h.U3)
}

// NeedsFixing reports whether payload requires repair: every DXT5
// (type 26) texture does, and a type-22 texture does if its declared
// mipmap chain runs past the levels whose dimensions are actually
// divisible by 4. It returns an error if a dimension is non-power-of-two
// at a level that is still >= 4 in either axis, since such a texture
// cannot terminate its chain cleanly.
func NeedsFixing(payload []byte) (bool, error) {
	h, err := ParseHeader(payload)
	if err != nil {
		return false, err
	}

	switch h.Type {
	case TypeDXT5:
		return true, nil
	case TypeHalfByte:
		if h.Width == 0 || h.Height == 0 {
			return false, nil
		}
		width, height := h.Width, h.Height
		for m := uint16(0); m < h.MMaps; m++ {
			if width&3 != 0 || height&3 != 0 {
				if width >= 4 || height >= 4 {
					return false, fmt.Errorf("texture: unexpected non-power-of-two texture")
				}
				return true, nil
			}
			width /= 2
			height /= 2
		}
	}
	return false, nil
}

// walkChain computes the number of valid (>=4 and 4-aligned in both
// dimensions) mipmap levels actually present, and the total byte size
// those levels occupy including the header. bdiv is 1 for DXT5 (1 byte
// per pixel) and 2 for type-22 textures (0.5 bytes per pixel).
func walkChain(h Header, bdiv int) (levels uint16, total int, err error) {
	total = HeaderSize
	width, height := h.Width, h.Height
	for levels = 0; levels < h.MMaps; levels++ {
		if width&3 != 0 || height&3 != 0 {
			if width >= 4 || height >= 4 {
				return 0, 0, fmt.Errorf("texture: unexpected non-power-of-two texture")
			}
			break
		}
		total += int(width) * int(height) / bdiv
		width /= 2
		height /= 2
	}
	if levels == 0 {
		return 0, 0, fmt.Errorf("texture: contains no valid mipmap levels")
	}
	return levels, total, nil
}

// FixDXT returns changed=false and the original payload slice if
// nothing needed to change. Otherwise it returns changed=true together
// with a new, independently-owned buffer that does not alias payload.
func FixDXT(payload []byte) (changed bool, out []byte, err error) {
	h, err := ParseHeader(payload)
	if err != nil {
		return false, payload, err
	}
	if h.Type != TypeDXT5 && h.Type != TypeHalfByte {
		return false, payload, nil
	}
	if h.Width == 0 || h.Height == 0 {
		return false, payload, nil
	}

	bdiv := 1
	if h.Type == TypeHalfByte {
		bdiv = 2
	}

	levels, total, err := walkChain(h, bdiv)
	if err != nil {
		return false, payload, err
	}

	trimmed := levels != h.MMaps
	if trimmed {
		if len(payload) < total {
			return false, payload, fmt.Errorf("texture: file is not as large as expected")
		}
	} else if len(payload) != total {
		return false, payload, fmt.Errorf("texture: file an invalid size")
	}

	buf := append([]byte(nil), payload[:total]...)
	dirty := false
	if trimmed {
		h.MMaps = levels
		h.encodeInto(buf)
		dirty = true
	}

	if h.Type == TypeDXT5 {
		blocks := (int(h.Width) / 4) * (int(h.Height) / 4)
		offset := HeaderSize
		for level := uint16(0); level < h.MMaps; level++ {
			for i := 0; i < blocks; i++ {
				off := offset + i*BlockSize
				if off+BlockSize > len(buf) {
					return false, payload, fmt.Errorf("texture: file not large enough")
				}

				cs0 := binary.LittleEndian.Uint16(buf[off+8:])
				cs1 := binary.LittleEndian.Uint16(buf[off+10:])
				cv := binary.LittleEndian.Uint32(buf[off+12:])

				var nc block.Chunk
				switch {
				case cs0 < cs1:
					if cv&0xAAAAAAAA == 0 {
						nc = block.Chunk{CS0: cs1, CS1: cs0, CV: cv ^ 0x55555555}
					} else {
						repaired, rerr := block.Repair(block.Chunk{CS0: cs0, CS1: cs1, CV: cv})
						if rerr != nil {
							return false, payload, rerr
						}
						nc = block.Canonicalize(repaired)
					}
				case cs0 == cs1:
					nc = block.Canonicalize(block.Chunk{CS0: cs0, CS1: cs1, CV: cv})
				default:
					continue
				}

				binary.LittleEndian.PutUint16(buf[off+8:], nc.CS0)
				binary.LittleEndian.PutUint16(buf[off+10:], nc.CS1)
				binary.LittleEndian.PutUint32(buf[off+12:], nc.CV)
				dirty = true
			}
			offset += blocks * BlockSize
			blocks /= 4
		}
		if offset != total {
			return false, payload, fmt.Errorf("texture: file not large enough")
		}
	}

	if !dirty {
		return false, payload, nil
	}
	return true, buf, nil
}
