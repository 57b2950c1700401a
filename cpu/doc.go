// Package cpu implements the processor core and assembler for the
// umips simulator.
//
// The CPU consists of 32 general-purpose 32-bit registers (with $zero
// hardwired to zero), a flat word-addressable memory, and a program
// counter driven by a fetch/decode/execute loop with the delayed-branch
// semantics of the MIPS family: the instruction following a taken
// branch or jump executes before control transfers. A minimal
// system-call ABI over $v0/$a0 provides console I/O and program exit.
//
// The assembler provides a single-pass assembler for the simulator's
// subset of the MIPS instruction set, supporting sections, labels,
// equates, data directives, and compile-time expression evaluation.
package cpu
