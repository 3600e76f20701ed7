// Package sid implements loading of C64 music files and the creation of PSID files.
package sid

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const maxAddress = 0x10000

var (
	// ErrInvalidMagic is returned for files that are not PSID or RSID files.
	ErrInvalidMagic = errors.New("invalid magic id")
	// ErrTooSmall is returned for files that are too small to contain a header or data.
	ErrTooSmall = errors.New("file too small")
	// ErrMissingLoadAddress is returned when the embedded load address is missing.
	ErrMissingLoadAddress = errors.New("missing embedded load address")
	// ErrTooLarge is returned when the data does not fit into the address space.
	ErrTooLarge = errors.New("data exceeds address space")
)

// File is a loaded music file.
type File struct {
	Header Header
	Image  *Image
}

// LoadAddress returns the address that the music data is loaded to.
func (f *File) LoadAddress() uint16 {
	return f.Image.Base()
}

// Parse parses a PSID or RSID file. A load address of 0 in the header means
// that the first two data bytes contain the load address.
func Parse(data []byte) (*File, error) {
	if len(data) < headerSizeV1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooSmall, len(data))
	}

	magic := string(data[:4])
	if magic != MagicPSID && magic != MagicRSID {
		return nil, fmt.Errorf("%w '%s'", ErrInvalidMagic, magic)
	}

	header := parseHeader(data)
	dataStart := int(header.DataOffset)
	if dataStart < headerSizeV1 || dataStart > len(data) {
		return nil, fmt.Errorf("%w: data offset $%04X", ErrTooSmall, header.DataOffset)
	}

	if header.LoadAddress == 0 {
		if dataStart+2 > len(data) {
			return nil, ErrMissingLoadAddress
		}
		header.LoadAddress = binary.LittleEndian.Uint16(data[dataStart:])
		dataStart += 2
	}

	image, err := newCheckedImage(header.LoadAddress, data[dataStart:])
	if err != nil {
		return nil, err
	}

	return &File{
		Header: header,
		Image:  image,
	}, nil
}

// LoadPRG loads a C64 program file, its first two bytes contain the load address.
func LoadPRG(data []byte, init, play uint16) (*File, error) {
	if len(data) < 3 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooSmall, len(data))
	}
	load := binary.LittleEndian.Uint16(data)
	return LoadBinary(data[2:], load, init, play)
}

// LoadBinary loads raw music data to the given load address.
func LoadBinary(data []byte, load, init, play uint16) (*File, error) {
	image, err := newCheckedImage(load, data)
	if err != nil {
		return nil, err
	}

	return &File{
		Header: newHeader(load, init, play),
		Image:  image,
	}, nil
}

func newHeader(load, init, play uint16) Header {
	return Header{
		Magic:       MagicPSID,
		Version:     2,
		DataOffset:  headerSizeV2,
		LoadAddress: load,
		InitAddress: init,
		PlayAddress: play,
		Songs:       1,
		StartSong:   1,
	}
}

func newCheckedImage(load uint16, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no music data", ErrTooSmall)
	}
	if int(load)+len(data) > maxAddress {
		return nil, fmt.Errorf("%w: $%04X + %d bytes", ErrTooLarge, load, len(data))
	}
	return NewImage(load, data), nil
}

// Encode creates a PSID version 2 file from an assembled program file whose
// first two bytes contain the load address. Name, author, release and flag
// fields are taken from the given header, init and play address are set to
// the given values.
func Encode(source Header, prg []byte, init, play uint16) ([]byte, error) {
	if len(prg) < 3 {
		return nil, fmt.Errorf("%w: program of %d bytes", ErrTooSmall, len(prg))
	}
	load := binary.LittleEndian.Uint16(prg)
	if int(load)+len(prg)-2 > maxAddress {
		return nil, fmt.Errorf("%w: $%04X + %d bytes", ErrTooLarge, load, len(prg)-2)
	}

	header := newHeader(0, init, play)
	header.Name = source.Name
	header.Author = source.Author
	header.Released = source.Released
	header.Speed = source.Speed
	header.Flags = source.Flags
	if source.Songs > 0 {
		header.Songs = source.Songs
		header.StartSong = max(source.StartSong, 1)
	}

	buf := header.encode()
	buf = append(buf, prg...)
	return buf, nil
}
