package brcode

import (
	"fmt"

	"github.com/sigurn/crc16"
)

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// CRC16 computes CRC-16/CCITT-FALSE: poly 0x1021, init 0xFFFF, no final XOR.
func CRC16(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// Checksum renders the CRC of s as 4 uppercase hex digits.
func Checksum(s string) string {
	return fmt.Sprintf("%04X", CRC16([]byte(s)))
}

// Verify reports whether payload is well-formed TLV in payload format 01,
// ends with the CRC field and carries the checksum of everything before it.
func Verify(payload string) bool {
	fields, err := Parse(payload)
	if err != nil || len(fields) == 0 {
		return false
	}
	if format, _ := Lookup(fields, idPayloadFormat); format != payloadFormat {
		return false
	}
	last := fields[len(fields)-1]
	if last.ID != idCRC || len(last.Value) != 4 {
		return false
	}
	return Checksum(payload[:len(payload)-4]) == last.Value
}
