package sid

// Image is the immutable as-loaded copy of the music data, before any
// modification done by executing the player.
type Image struct {
	base uint16
	data []byte
}

// NewImage returns a new image of a copy of the given data located at base.
func NewImage(base uint16, data []byte) *Image {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Image{
		base: base,
		data: buf,
	}
}

// Base returns the address of the first byte of the image.
func (i *Image) Base() uint16 {
	return i.base
}

// Len returns the size of the image in bytes.
func (i *Image) Len() int {
	return len(i.data)
}

// End returns the exclusive end address of the image, which can be 0x10000.
func (i *Image) End() int {
	return int(i.base) + len(i.data)
}

// Bytes returns the image content. It must not be modified.
func (i *Image) Bytes() []byte {
	return i.data
}

// Contains returns whether the address is located inside the image.
func (i *Image) Contains(address uint16) bool {
	return address >= i.base && int(address) < i.End()
}

// ByteAt returns the original byte at the given address.
func (i *Image) ByteAt(address uint16) (byte, bool) {
	if !i.Contains(address) {
		return 0, false
	}
	return i.data[address-i.base], true
}
