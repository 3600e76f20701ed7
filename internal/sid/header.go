package sid

import (
	"bytes"
	"encoding/binary"
)

// header field offsets.
const (
	offsetVersion     = 0x04
	offsetDataOffset  = 0x06
	offsetLoadAddress = 0x08
	offsetInitAddress = 0x0A
	offsetPlayAddress = 0x0C
	offsetSongs       = 0x0E
	offsetStartSong   = 0x10
	offsetSpeed       = 0x12
	offsetName        = 0x16
	offsetAuthor      = 0x36
	offsetReleased    = 0x56
	offsetFlags       = 0x76
	offsetStartPage   = 0x78
	offsetPageLength  = 0x79
	offsetSecondSID   = 0x7A
	offsetThirdSID    = 0x7B

	headerSizeV1 = 0x76
	headerSizeV2 = 0x7C

	textFieldSize = 32
)

// Magic IDs of the supported file formats.
const (
	MagicPSID = "PSID"
	MagicRSID = "RSID"
)

// Header contains the fields of a PSID or RSID file header.
type Header struct {
	Magic       string
	Version     uint16
	DataOffset  uint16
	LoadAddress uint16
	InitAddress uint16
	PlayAddress uint16
	Songs       uint16
	StartSong   uint16
	Speed       uint32
	Name        string
	Author      string
	Released    string
	Flags       uint16
	StartPage   uint8
	PageLength  uint8
	SecondSID   uint8
	ThirdSID    uint8
}

// IsRSID returns whether the header describes a real C64 environment tune.
func (h Header) IsRSID() bool {
	return h.Magic == MagicRSID
}

// IsPAL returns whether the tune is meant for PAL machines. Tunes without
// clock information default to PAL.
func (h Header) IsPAL() bool {
	if h.Version < 2 || h.DataOffset < headerSizeV2 {
		return true
	}
	clock := (h.Flags >> 2) & 0x3
	return clock != 2 // 0 unknown, 1 PAL, 2 NTSC, 3 both
}

func parseHeader(data []byte) Header {
	h := Header{
		Magic:       string(data[:4]),
		Version:     binary.BigEndian.Uint16(data[offsetVersion:]),
		DataOffset:  binary.BigEndian.Uint16(data[offsetDataOffset:]),
		LoadAddress: binary.BigEndian.Uint16(data[offsetLoadAddress:]),
		InitAddress: binary.BigEndian.Uint16(data[offsetInitAddress:]),
		PlayAddress: binary.BigEndian.Uint16(data[offsetPlayAddress:]),
		Songs:       binary.BigEndian.Uint16(data[offsetSongs:]),
		StartSong:   binary.BigEndian.Uint16(data[offsetStartSong:]),
		Speed:       binary.BigEndian.Uint32(data[offsetSpeed:]),
		Name:        parsePaddedString(data[offsetName : offsetName+textFieldSize]),
		Author:      parsePaddedString(data[offsetAuthor : offsetAuthor+textFieldSize]),
		Released:    parsePaddedString(data[offsetReleased : offsetReleased+textFieldSize]),
	}

	if h.Version >= 2 && h.DataOffset >= headerSizeV2 && len(data) >= headerSizeV2 {
		h.Flags = binary.BigEndian.Uint16(data[offsetFlags:])
		h.StartPage = data[offsetStartPage]
		h.PageLength = data[offsetPageLength]
		h.SecondSID = data[offsetSecondSID]
		h.ThirdSID = data[offsetThirdSID]
	}
	return h
}

// encode writes a version 2 header with the given data offset.
func (h Header) encode() []byte {
	buf := make([]byte, headerSizeV2)
	copy(buf, h.Magic)
	binary.BigEndian.PutUint16(buf[offsetVersion:], h.Version)
	binary.BigEndian.PutUint16(buf[offsetDataOffset:], h.DataOffset)
	binary.BigEndian.PutUint16(buf[offsetLoadAddress:], h.LoadAddress)
	binary.BigEndian.PutUint16(buf[offsetInitAddress:], h.InitAddress)
	binary.BigEndian.PutUint16(buf[offsetPlayAddress:], h.PlayAddress)
	binary.BigEndian.PutUint16(buf[offsetSongs:], h.Songs)
	binary.BigEndian.PutUint16(buf[offsetStartSong:], h.StartSong)
	binary.BigEndian.PutUint32(buf[offsetSpeed:], h.Speed)
	putPaddedString(buf[offsetName:offsetName+textFieldSize], h.Name)
	putPaddedString(buf[offsetAuthor:offsetAuthor+textFieldSize], h.Author)
	putPaddedString(buf[offsetReleased:offsetReleased+textFieldSize], h.Released)
	binary.BigEndian.PutUint16(buf[offsetFlags:], h.Flags)
	buf[offsetStartPage] = h.StartPage
	buf[offsetPageLength] = h.PageLength
	buf[offsetSecondSID] = h.SecondSID
	buf[offsetThirdSID] = h.ThirdSID
	return buf
}

func parsePaddedString(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data)
}

// putPaddedString copies the string and keeps at least one terminating zero byte.
func putPaddedString(dst []byte, s string) {
	n := min(len(s), len(dst)-1)
	copy(dst, s[:n])
}
