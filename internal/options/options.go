// Package options contains the program options.
package options

// Parameters contains file path options.
type Parameters struct {
	Input      string
	Output     string
	Batch      string
	RelocTable string // file to write the relocation table to
}

// Flags contains behavior options.
type Flags struct {
	Format       string // input format: sid, prg, bin (default: auto-detect)
	AssembleTest bool   // verify output by reassembling and comparing to input
	Debug        bool
	Quiet        bool
}

// Program options of the relocator.
type Program struct {
	Parameters
	Flags
}

// Disassembler defines options to control the emulation and output generation.
type Disassembler struct {
	Relocate          bool   // relocation address is set
	RelocationAddress uint16 // new load address of the tune

	// overrides of the addresses in the input file, 0 means not set
	LoadAddress uint16
	InitAddress uint16
	PlayAddress uint16

	// overrides of the text fields of the output SID header
	Title     string
	Author    string
	Copyright string

	Song          uint16 // 1 based song number, 0 selects the start song of the file
	Frames        int    // number of frames to play
	CallsPerFrame int    // calls of the play routine per frame

	Generator  string // program name and version written to the output header
	KickAss    string // command to run KickAssembler
	ZeroUnused bool   // output data bytes that were never accessed as zero
}
