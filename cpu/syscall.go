package cpu

import (
	"log"
)

// System-call services, selected by register $v0 with the argument in
// register $a0.
const (
	SYSCALL_PRINT_INT  = uint32(1)  // Print $a0 as a decimal integer.
	SYSCALL_PRINT_STR  = uint32(4)  // Print the NUL-terminated string at $a0.
	SYSCALL_READ_INT   = uint32(5)  // Read an integer line into $v0.
	SYSCALL_EXIT       = uint32(10) // Terminate with success status.
	SYSCALL_PRINT_CHAR = uint32(11) // Print the byte in $a0 as a character.
)

// syscall dispatches one system call per the register convention.
// Unrecognized services are no-ops so a simulated program cannot
// crash the simulator through $v0.
func (cpu *Cpu) syscall() (err error) {
	service := cpu.Register[REG_V0]
	arg := cpu.Register[REG_A0]

	switch service {
	case SYSCALL_PRINT_INT:
		err = cpu.Console.PrintInt(int32(arg))
	case SYSCALL_PRINT_STR:
		var text string
		text, err = cpu.stringAt(arg)
		if err != nil {
			return
		}
		err = cpu.Console.PrintString(text)
	case SYSCALL_READ_INT:
		var value int32
		value, err = cpu.Console.ReadInt()
		if err != nil {
			return
		}
		cpu.WriteRegister(REG_V0, uint32(value))
	case SYSCALL_EXIT:
		err = ErrHalt
	case SYSCALL_PRINT_CHAR:
		err = cpu.Console.PrintChar(byte(arg))
	default:
		if cpu.Verbose {
			log.Printf("syscall: unknown service %v", service)
		}
	}

	return
}

// stringAt collects the NUL-terminated string starting at a memory
// address. Memory holds four characters per word, least-significant
// byte first; bytes are single-byte characters, never decoded as
// multi-byte runes. The terminating zero byte is excluded.
func (cpu *Cpu) stringAt(address uint32) (text string, err error) {
	var raw []byte

	for {
		var value uint8
		value, err = cpu.Memory.Byte(address)
		if err != nil {
			return
		}
		if value == 0 {
			break
		}
		raw = append(raw, value)
		address += 1
	}

	text = string(raw)
	return
}
