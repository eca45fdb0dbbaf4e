package archive

import "fmt"

// charTable maps 6-bit base64 units to the character set DAT archives
// use for packed names; 0x00 terminates a name and the trailing run of
// 0x2B ('+') slots are unused and treated as invalid.
const charTable = "\x00 #$()-./?0123456789_abcdefghijklmnopqrstuvwxyz~++++++++++++++++"

// base64Unit extracts the i-th 6-bit unit starting at byte offset l
// within names, following the packing used by the original 3-bytes-in,
// 4-units-out base64 scheme.
func base64Unit(names []byte, l, i uint32) (byte, error) {
	k := i / 4
	base := l + 3*k
	switch i & 0x3 {
	case 0:
		if int(base) >= len(names) {
			return 0, fmt.Errorf("archive: name offset out of range")
		}
		return (names[base] & 0x3F) << 0, nil
	case 1:
		if int(base)+1 >= len(names) {
			return 0, fmt.Errorf("archive: name offset out of range")
		}
		return ((names[base+1] & 0x0F) << 2) | (names[base] >> 6), nil
	case 2:
		if int(base)+2 >= len(names) {
			return 0, fmt.Errorf("archive: name offset out of range")
		}
		return ((names[base+2] & 0x03) << 4) | (names[base+1] >> 4), nil
	default: // 3
		if int(base)+2 >= len(names) {
			return 0, fmt.Errorf("archive: name offset out of range")
		}
		return names[base+2] >> 2, nil
	}
}

// decodeBase64Name decodes a packed, delta-prefixed name for entry.
//
// The packed stream may begin with a two-unit delta prefix:
//
//	unit 0: 111 CBA
//	unit 1: 10G FED
//
// whose low bits (0GFE DCBA) give the number of leading characters this
// name shares with the previous one in the table; a name with no
// prefix reuses nothing. Characters are then read one 6-bit unit at a
// time via charTable until a null terminator is hit.
func decodeBase64Name(names []byte, entry Entry, shared []byte) (string, []byte, error) {
	var i uint32
	v, err := base64Unit(names, entry.NameOffset, 0)
	if err != nil {
		return "", nil, err
	}
	if v >= 0x30 {
		t, err := base64Unit(names, entry.NameOffset, 1)
		if err != nil {
			return "", nil, err
		}
		if v&0x78 != 0x38 || t&0x70 != 0x20 {
			return "", nil, fmt.Errorf("archive: invalid delta encoding in base64 name")
		}
		i = 2
		keep := int((v & 0x07) | ((t & 0x0F) << 3))
		if keep > len(shared) {
			return "", nil, fmt.Errorf("archive: delta prefix longer than previous name")
		}
		shared = append([]byte(nil), shared[:keep]...)
	} else {
		shared = shared[:0]
	}

	for {
		v, err := base64Unit(names, entry.NameOffset, i)
		if err != nil {
			return "", nil, err
		}
		i++
		c := charTable[v]
		if c == '+' {
			return "", nil, fmt.Errorf("archive: invalid character in packed name")
		}
		if c == 0 {
			break
		}
		shared = append(shared, c)
	}
	return string(shared), shared, nil
}

// decodePlainName reads a null-terminated ASCII name from names
// starting at entry.NameOffset.
func decodePlainName(names []byte, entry Entry) (string, error) {
	start := int(entry.NameOffset)
	if start >= len(names) {
		return "", fmt.Errorf("archive: name offset out of range")
	}
	end := start
	for end < len(names) && names[end] != 0 {
		end++
	}
	if end >= len(names) {
		return "", fmt.Errorf("archive: unterminated name")
	}
	return string(names[start:end]), nil
}
