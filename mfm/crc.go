package mfm

import "github.com/sergev/fdimage/crc"

// crc16CCITTByte and crc16CCITT are the legacy Amiga/IBM-PC codec's CRC
// entry points (reader.go, writer.go), delegating to package crc's
// from-scratch CRC-16/CCITT implementation shared with the System-34
// track engine.
func crc16CCITTByte(sum uint16, b byte) uint16 {
	return crc.Byte(sum, b)
}

func crc16CCITT(sum uint16, data []byte) uint16 {
	return crc.Bytes(sum, data)
}
