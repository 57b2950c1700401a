package cpu

// Simulated virtual address layout. The backing store is a compact,
// documented subset of the 32-bit address space; anything outside it
// is a fatal out-of-bounds access, never a silent wrap.
const (
	MEMORY_SIZE = uint32(0x00040000) // Total simulated memory, in bytes.
	TEXT_BASE   = uint32(0x00004000) // Program text load address.
	DATA_BASE   = uint32(0x00010000) // Program data load address.
	GP_BASE     = uint32(0x00018000) // Preset of the global pointer ($gp).
	STACK_TOP   = uint32(0x0003fffc) // Preset of the stack pointer ($sp).
)
