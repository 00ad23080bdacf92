package wire

import "fmt"

// NackCode is the first payload byte of an extended response when the brain
// rejects a request. Any value not in this table is a success status and the
// start of the caller's payload, per the "any other first-byte value is
// treated as a success status" invariant.
type NackCode byte

const (
	NackGeneral             NackCode = 0xFF
	NackInvalidCRC          NackCode = 0xCE
	NackPayloadTooSmall     NackCode = 0xD0
	NackTransferSizeTooBig  NackCode = 0xD1
	NackCRCError            NackCode = 0xD2
	NackProgramFileError    NackCode = 0xD3
	NackUninitializedXfer   NackCode = 0xD4
	NackInvalidInit         NackCode = 0xD5
	NackNonPaddedData       NackCode = 0xD6
	NackUnexpectedAddress   NackCode = 0xD7
	NackLengthMismatch      NackCode = 0xD8
	NackNonexistentDir      NackCode = 0xD9
	NackFileIndexFull       NackCode = 0xDA
	NackFileExists          NackCode = 0xDB
)

var nackNames = map[NackCode]string{
	NackGeneral:            "general failure",
	NackInvalidCRC:         "invalid CRC",
	NackPayloadTooSmall:    "payload too small",
	NackTransferSizeTooBig: "transfer size too large",
	NackCRCError:           "CRC error",
	NackProgramFileError:   "program file error",
	NackUninitializedXfer:  "uninitialized transfer",
	NackInvalidInit:        "invalid initialization",
	NackNonPaddedData:      "non-padded data",
	NackUnexpectedAddress:  "unexpected packet address",
	NackLengthMismatch:     "length mismatch",
	NackNonexistentDir:     "non-existent directory",
	NackFileIndexFull:      "file index full",
	NackFileExists:         "file exists",
}

// IsNack reports whether b is one of the fourteen recognized NACK codes.
func IsNack(b byte) (NackCode, bool) {
	code := NackCode(b)
	_, ok := nackNames[code]
	return code, ok
}

func (c NackCode) String() string {
	if name, ok := nackNames[c]; ok {
		return fmt.Sprintf("%s (0x%02X)", name, byte(c))
	}
	return fmt.Sprintf("unknown nack 0x%02X", byte(c))
}
