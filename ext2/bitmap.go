package ext2

// bitmap is a thin wrapper over one block-sized allocation bitmap (either a
// block bitmap or an inode bitmap), addressed bit-per-resource. This driver
// never holds more than one bitmap block in memory at a time; every access
// goes through a borrowed buffer (see device.go).
type bitmap struct {
	bits []byte
}

func bitmapFromBytes(b []byte) *bitmap {
	bits := make([]byte, len(b))
	copy(bits, b)
	return &bitmap{bits: bits}
}

func (bm *bitmap) toBytes() []byte {
	b := make([]byte, len(bm.bits))
	copy(b, bm.bits)
	return b
}

func (bm *bitmap) checkFree(bit int) (bool, error) {
	const op = "bitmap"
	byteNum, bitNum := bit/8, uint(bit%8)
	if byteNum < 0 || byteNum >= len(bm.bits) {
		return false, boundsErrorf(op, "bit %d out of range for %d-byte bitmap", bit, len(bm.bits))
	}
	mask := byte(1) << bitNum
	return bm.bits[byteNum]&mask == 0, nil
}

func (bm *bitmap) use(bit int) error {
	const op = "bitmap"
	byteNum, bitNum := bit/8, uint(bit%8)
	if byteNum < 0 || byteNum >= len(bm.bits) {
		return boundsErrorf(op, "bit %d out of range for %d-byte bitmap", bit, len(bm.bits))
	}
	bm.bits[byteNum] |= 1 << bitNum
	return nil
}

func (bm *bitmap) free(bit int) error {
	const op = "bitmap"
	byteNum, bitNum := bit/8, uint(bit%8)
	if byteNum < 0 || byteNum >= len(bm.bits) {
		return boundsErrorf(op, "bit %d out of range for %d-byte bitmap", bit, len(bm.bits))
	}
	bm.bits[byteNum] &^= 1 << bitNum
	return nil
}

// findFree scans for the first free bit, reproducing the reference
// implementation's bit-7 skip: within a byte that is not entirely 0xFF, only
// bit positions 0..6 are examined, so bit 7 of any byte can never be
// returned as free even when it is genuinely clear. This is an observable
// quirk of the reference allocator (spec's Open Question, resolved here in
// favor of exact compatibility — see DESIGN.md) rather than a deliberate
// design choice, and it means roughly 1/8 of a bitmap's capacity is
// permanently unusable. findFreeExhaustive below is the straightforward
// scan-all-8-bits alternative, kept for callers that opt out of the quirk.
func (bm *bitmap) findFree() int {
	for i, b := range bm.bits {
		if b == 0xFF {
			continue
		}
		for j := uint(0); j < 7; j++ {
			mask := byte(1) << j
			if b&mask == 0 {
				return 8*i + int(j)
			}
		}
	}
	return -1
}

// findFreeExhaustive scans all 8 bits of every byte, the behavior spec.md's
// Design Notes describe as "probably what was intended." The allocator
// always calls findFree; no Params option selects this scan.
func (bm *bitmap) findFreeExhaustive() int {
	for i, b := range bm.bits {
		if b == 0xFF {
			continue
		}
		for j := uint(0); j < 8; j++ {
			mask := byte(1) << j
			if b&mask == 0 {
				return 8*i + int(j)
			}
		}
	}
	return -1
}
