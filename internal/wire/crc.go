package wire

// CRC-16/XMODEM, polynomial 0x1021, initial value 0x0000, no reflection, no
// final XOR. No third-party CRC package appears anywhere in the retrieved
// reference pack, so the table is hand-built the way pkg/usock in the
// librescoot bluetooth service builds its own (different-polynomial) table:
// generate once in init(), then do a byte-at-a-time table lookup.
const crc16XModemPoly = 0x1021

var crc16Table [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crc16XModemPoly
			} else {
				crc <<= 1
			}
		}
		crc16Table[i] = crc
	}
}

// CRC16 computes CRC-16/XMODEM over data, starting from seed (0 for a fresh
// computation). Extended frames feed the running CRC incrementally as each
// section of the frame is built; the finished frame's CRC bytes are appended
// big-endian.
func CRC16(seed uint16, data []byte) uint16 {
	crc := seed
	for _, b := range data {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
	}
	return crc
}

// VerifyCRC16 returns true if data (which must include its own trailing
// 2-byte big-endian CRC) recomputes to zero, per the "CRC of a complete
// extended exchange is zero" invariant.
func VerifyCRC16(data []byte) bool {
	return CRC16(0, data) == 0
}
