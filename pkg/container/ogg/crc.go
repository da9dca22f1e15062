package ogg

// Ogg pages use CRC-32 with polynomial 0x04C11DB7, initial value 0, no input
// or output reflection and no final XOR. hash/crc32 implements the reflected
// IEEE variant and cannot produce these values.

var crcTable = func() [256]uint32 {
	const poly = uint32(0x04C11DB7)
	var t [256]uint32
	for i := range t {
		crc := uint32(i) << 24
		for range 8 {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}()

// Checksum returns the Ogg CRC-32 of data. For a page checksum the four
// checksum bytes at offset 22 must be zero in data.
func Checksum(data []byte) uint32 {
	return updateChecksum(0, data)
}

func updateChecksum(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}
