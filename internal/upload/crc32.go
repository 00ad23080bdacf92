package upload

// crc32Poly is the unreflected CRC-32 variant the upload path uses to
// checksum a package before FileTransferInitialize (poly 0x04C11DB7, init
// 0, no input/output reflection, no final xor) — distinct from the
// standard reflected CRC-32 (IEEE 802.3) stdlib's hash/crc32 implements,
// which is why this is hand-rolled rather than wrapped around it, grounded
// in internal/wire/crc.go's table-building pattern for the protocol's other
// custom CRC.
const crc32Poly = 0x04C11DB7

var crc32Table [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for bit := 0; bit < 8; bit++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ crc32Poly
			} else {
				crc <<= 1
			}
		}
		crc32Table[i] = crc
	}
}

// CRC32 checksums data with the unreflected CRC-32 variant the brain
// expects in file-transfer-initialize.
func CRC32(data []byte) uint32 {
	var crc uint32
	for _, b := range data {
		idx := byte(crc>>24) ^ b
		crc = (crc << 8) ^ crc32Table[idx]
	}
	return crc
}
