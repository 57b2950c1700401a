package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":      "0",
	"MEMORY_SIZE": fmt.Sprintf("%#v", MEMORY_SIZE),
	"TEXT_BASE":   fmt.Sprintf("%#v", TEXT_BASE),
	"DATA_BASE":   fmt.Sprintf("%#v", DATA_BASE),
	"GP_BASE":     fmt.Sprintf("%#v", GP_BASE),
	"STACK_TOP":   fmt.Sprintf("%#v", STACK_TOP),
}

// Assembler is a single pass assembler for the simulator's subset of
// the MIPS instruction set, with `.text`/`.data` sections, labels,
// equates, and compile-time expression evaluation.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string // Predefines
	Label     map[string]uint32 // Map of labels to absolute addresses.
	Equate    map[string]string // Map of equates.

	section   string // Current section, ".text" or ".data".
	dataBytes []byte // Data section accumulator, packed LSB first.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap maps `$name` and `$number` register syntax to register indexes.
var regMap = map[string]int{}

func init() {
	for n, name := range regName {
		regMap["$"+name] = n
		regMap[fmt.Sprintf("$%d", n)] = n
	}
}

// getRegister returns the register index for a word.
func (asm *Assembler) getRegister(word string) (index int, err error) {
	index, ok := regMap[word]
	if !ok {
		err = ErrParseRegister(word)
	}
	return
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word[1 : len(word)-1])
		return
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 > 0xffffffff || v64 < -int64(0x80000000) {
		err = ErrParseNumber(word)
		return
	}

	if v64 < 0 {
		value = uint32(0xffffffff + (v64 + 1))
	} else {
		value = uint32(v64)
	}

	return
}

// imm16Signed checks that a value is a sign-extendable 16-bit immediate.
func imm16Signed(value uint32) bool {
	return value <= 0x7fff || value >= 0xffff8000
}

// imm16Unsigned checks that a value is a zero-extended 16-bit immediate.
func imm16Unsigned(value uint32) bool {
	return value <= 0xffff
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be labels
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value32))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// splitWords splits a line on spaces, tabs, and commas, keeping
// double-quoted strings as single words.
func splitWords(line string) (words []string) {
	var word strings.Builder
	quoted := false
	escaped := false

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	for _, r := range line {
		switch {
		case escaped:
			word.WriteRune(r)
			escaped = false
		case quoted && r == '\\':
			word.WriteRune(r)
			escaped = true
		case r == '"':
			word.WriteRune(r)
			quoted = !quoted
		case !quoted && (r == ' ' || r == '\t' || r == ','):
			flush()
		default:
			word.WriteRune(r)
		}
	}
	flush()

	return
}

// parseLine parses a single line into opcode words.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	line = re.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			switch str[1:] {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "0":
				str = "\x00"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^)]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	// Check for equates next
	for n, word := range words {
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]uint32, 16)
		}

		// Data labels land on word boundaries, so a label and a
		// following .word deposit agree on the address.
		if asm.section == ".data" {
			asm.alignData()
		}
		asm.Label[label] = asm.here()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	return
}

// currentIp gets the current text word index.
func (asm *Assembler) currentIp() int {
	if len(asm.Opcode) == 0 {
		return 0
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Ip + len(last.Ins)
}

// here gets the absolute address of the current section position.
func (asm *Assembler) here() uint32 {
	if asm.section == ".data" {
		return DATA_BASE + uint32(len(asm.dataBytes))
	}

	return TEXT_BASE + uint32(asm.currentIp())*4
}

// alignData pads the data accumulator to a word boundary.
func (asm *Assembler) alignData() {
	for len(asm.dataBytes)%4 != 0 {
		asm.dataBytes = append(asm.dataBytes, 0)
	}
}

// rThreeMap maps three-register operation names.
var rThreeMap = map[string]RFunct{
	"add":  FUNCT_ADD,
	"addu": FUNCT_ADDU,
	"sub":  FUNCT_SUB,
	"and":  FUNCT_AND,
	"or":   FUNCT_OR,
	"xor":  FUNCT_XOR,
	"nor":  FUNCT_NOR,
	"slt":  FUNCT_SLT,
}

// rShiftMap maps shift operation names.
var rShiftMap = map[string]RFunct{
	"sll": FUNCT_SLL,
	"srl": FUNCT_SRL,
	"sra": FUNCT_SRA,
}

// iThreeMap maps immediate operation names to opcodes, with the
// signedness of their immediate range check.
var iThreeMap = map[string]struct {
	op     IOp
	signed bool
}{
	"addi":  {OP_ADDI, true},
	"addiu": {OP_ADDIU, true},
	"slti":  {OP_SLTI, true},
	"andi":  {OP_ANDI, false},
	"ori":   {OP_ORI, false},
}

// iBranchMap maps two-register branch names.
var iBranchMap = map[string]IOp{
	"beq": OP_BEQ,
	"bne": OP_BNE,
}

// iBranchZMap maps compare-to-zero branch names.
var iBranchZMap = map[string]IOp{
	"bgez": OP_BGEZ,
	"blez": OP_BLEZ,
}

// iMemMap maps load/store names.
var iMemMap = map[string]IOp{
	"lb":  OP_LB,
	"lh":  OP_LH,
	"lhu": OP_LHU,
	"lw":  OP_LW,
	"sw":  OP_SW,
}

// jMap maps jump names.
var jMap = map[string]JOp{
	"j":   OP_J,
	"jal": OP_JAL,
}

// memRe matches the `offset($register)` memory operand form.
var memRe = regexp.MustCompile(`^([^()]*)\((\$\w+)\)$`)

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Ins
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(codes) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Ip: asm.currentIp(), Words: initial_words, Ins: codes, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	// Section and data directives.
	switch words[0] {
	case ".text", ".data":
		if len(words) != 1 {
			err = ErrDirectiveSyntax
			return
		}
		asm.section = words[0]
		return
	case ".word":
		if asm.section != ".data" {
			err = ErrDirectiveSection
			return
		}
		if len(words) < 2 {
			err = ErrDirectiveSyntax
			return
		}
		asm.alignData()
		for _, word := range words[1:] {
			var value uint32
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			asm.dataBytes = append(asm.dataBytes,
				byte(value), byte(value>>8), byte(value>>16), byte(value>>24))
		}
		return
	case ".asciiz":
		if asm.section != ".data" {
			err = ErrDirectiveSection
			return
		}
		if len(words) != 2 {
			err = ErrDirectiveSyntax
			return
		}
		var text string
		text, err = strconv.Unquote(words[1])
		if err != nil {
			err = ErrDirectiveSyntax
			return
		}
		asm.dataBytes = append(asm.dataBytes, []byte(text)...)
		asm.dataBytes = append(asm.dataBytes, 0)
		return
	case ".space":
		if asm.section != ".data" {
			err = ErrDirectiveSection
			return
		}
		if len(words) != 2 {
			err = ErrDirectiveSyntax
			return
		}
		var count uint32
		count, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		asm.dataBytes = append(asm.dataBytes, make([]byte, count)...)
		return
	}

	if asm.section == ".data" {
		err = ErrDirectiveSection
		return
	}

	// Alternate syntax substitutions
	switch {
	case len(words) == 1 && words[0] == "nop":
		codes = append(codes, Ins{Word: 0})
		return
	case len(words) == 3 && words[0] == "move":
		// move $d $s => add $d $s $zero
		words = []string{"add", words[1], words[2], "$zero"}
	case len(words) == 2 && words[0] == "b":
		// b TARGET => beq $zero $zero TARGET
		words = []string{"beq", "$zero", "$zero", words[1]}
	case len(words) == 3 && words[0] == "li":
		// li $t VALUE => addi/ori/lui+ori by immediate range
		var value uint32
		value, err = asm.valueOf(words[2])
		if err != nil {
			return
		}
		switch {
		case imm16Signed(value):
			words = []string{"addi", words[1], "$zero", words[2]}
		case imm16Unsigned(value):
			words = []string{"ori", words[1], "$zero", words[2]}
		default:
			var rt int
			rt, err = asm.getRegister(words[1])
			if err != nil {
				return
			}
			codes = append(codes,
				MakeInsI(OP_LUI, 0, rt, uint16(value>>16)),
				MakeInsI(OP_ORI, rt, rt, uint16(value)))
			return
		}
	case len(words) == 3 && words[0] == "la":
		// la $t LABEL => lui $t hi ; ori $t $t lo, linked later
		var rt int
		rt, err = asm.getRegister(words[1])
		if err != nil {
			return
		}
		label = words[2]
		codes = append(codes,
			MakeInsI(OP_LUI, 0, rt, 0),
			MakeInsI(OP_ORI, rt, rt, 0))
		return
	default:
		// unchanged
	}

	// getImm16 parses and range-checks a 16-bit immediate word.
	getImm16 := func(word string, signed bool) (imm uint16, err error) {
		value, err := asm.valueOf(word)
		if err != nil {
			return
		}
		ok := imm16Unsigned(value)
		if signed {
			ok = imm16Signed(value)
		}
		if !ok {
			err = ErrImmediateRange
			return
		}
		imm = uint16(value)
		return
	}

	name := words[0]
	args := words[1:]

	switch {
	case name == "syscall":
		if len(args) != 0 {
			err = ErrOpcodeExtraArgs
			return
		}
		codes = append(codes, MakeInsR(0, 0, 0, 0, FUNCT_SYSCALL))

	case name == "jr":
		if len(args) != 1 {
			err = ErrOpcodeValueMissing
			return
		}
		var rs int
		rs, err = asm.getRegister(args[0])
		if err != nil {
			return
		}
		codes = append(codes, MakeInsR(rs, 0, 0, 0, FUNCT_JR))

	case name == "jalr":
		// jalr [$rd] $rs, with $ra as the default link register.
		rd := REG_RA
		if len(args) == 2 {
			rd, err = asm.getRegister(args[0])
			if err != nil {
				return
			}
			args = args[1:]
		}
		if len(args) != 1 {
			err = ErrOpcodeValueMissing
			return
		}
		var rs int
		rs, err = asm.getRegister(args[0])
		if err != nil {
			return
		}
		codes = append(codes, MakeInsR(rs, 0, rd, 0, FUNCT_JALR))

	case rThreeMap[name] != 0:
		funct := rThreeMap[name]
		if len(args) != 3 {
			err = ErrOpcodeValueMissing
			return
		}
		var rd, rs, rt int
		rd, err = asm.getRegister(args[0])
		if err == nil {
			rs, err = asm.getRegister(args[1])
		}
		if err == nil {
			rt, err = asm.getRegister(args[2])
		}
		if err != nil {
			return
		}
		codes = append(codes, MakeInsR(rs, rt, rd, 0, funct))

	case name == "sll" || name == "srl" || name == "sra":
		funct := rShiftMap[name]
		if len(args) != 3 {
			err = ErrOpcodeValueMissing
			return
		}
		var rd, rt int
		var shamt uint32
		rd, err = asm.getRegister(args[0])
		if err == nil {
			rt, err = asm.getRegister(args[1])
		}
		if err == nil {
			shamt, err = asm.valueOf(args[2])
		}
		if err != nil {
			return
		}
		if shamt > 31 {
			err = ErrImmediateRange
			return
		}
		codes = append(codes, MakeInsR(0, rt, rd, int(shamt), funct))

	case iThreeMap[name].op != 0:
		entry := iThreeMap[name]
		if len(args) != 3 {
			err = ErrOpcodeValueMissing
			return
		}
		var rt, rs int
		var imm uint16
		rt, err = asm.getRegister(args[0])
		if err == nil {
			rs, err = asm.getRegister(args[1])
		}
		if err == nil {
			imm, err = getImm16(args[2], entry.signed)
		}
		if err != nil {
			return
		}
		codes = append(codes, MakeInsI(entry.op, rs, rt, imm))

	case name == "lui":
		if len(args) != 2 {
			err = ErrOpcodeValueMissing
			return
		}
		var rt int
		var imm uint16
		rt, err = asm.getRegister(args[0])
		if err == nil {
			imm, err = getImm16(args[1], false)
		}
		if err != nil {
			return
		}
		codes = append(codes, MakeInsI(OP_LUI, 0, rt, imm))

	case iBranchMap[name] != 0:
		op := iBranchMap[name]
		if len(args) != 3 {
			err = ErrOpcodeValueMissing
			return
		}
		var rs, rt int
		rs, err = asm.getRegister(args[0])
		if err == nil {
			rt, err = asm.getRegister(args[1])
		}
		if err != nil {
			return
		}
		var imm uint16
		value, verr := asm.valueOf(args[2])
		switch {
		case verr != nil:
			// A branch target label, linked later.
			label = args[2]
		case !imm16Signed(value):
			err = ErrBranchRange
			return
		default:
			imm = uint16(value)
		}
		codes = append(codes, MakeInsI(op, rs, rt, imm))

	case iBranchZMap[name] != 0:
		op := iBranchZMap[name]
		if len(args) != 2 {
			err = ErrOpcodeValueMissing
			return
		}
		var rs int
		rs, err = asm.getRegister(args[0])
		if err != nil {
			return
		}
		var imm uint16
		value, verr := asm.valueOf(args[1])
		switch {
		case verr != nil:
			label = args[1]
		case !imm16Signed(value):
			err = ErrBranchRange
			return
		default:
			imm = uint16(value)
		}
		codes = append(codes, MakeInsI(op, rs, 0, imm))

	case iMemMap[name] != 0:
		op := iMemMap[name]
		if len(args) != 2 {
			err = ErrOpcodeValueMissing
			return
		}
		var rt int
		rt, err = asm.getRegister(args[0])
		if err != nil {
			return
		}
		match := memRe.FindStringSubmatch(args[1])
		if match == nil {
			err = ErrOpcodeInvalid
			return
		}
		var rs int
		rs, err = asm.getRegister(match[2])
		if err != nil {
			return
		}
		imm := uint16(0)
		if len(match[1]) != 0 {
			imm, err = getImm16(match[1], true)
			if err != nil {
				return
			}
		}
		codes = append(codes, MakeInsI(op, rs, rt, imm))

	case jMap[name] != 0:
		op := jMap[name]
		if len(args) != 1 {
			err = ErrOpcodeValueMissing
			return
		}
		var target uint32
		target, err = asm.valueOf(args[0])
		if err != nil {
			// A jump target label, linked later.
			err = nil
			label = args[0]
			target = 0
		}
		codes = append(codes, MakeInsJ(op, target>>2))

	default:
		err = ErrOpcodeInvalid
		return
	}

	return
}

// link resolves an opcode's label reference, patching its generated
// instructions in place.
func (asm *Assembler) link(op *Opcode) (err error) {
	address, ok := asm.Label[op.LinkLabel]
	if !ok {
		err = ErrLabelMissing(op.LinkLabel)
		return
	}

	linked := &op.Ins[len(op.Ins)-1]

	if len(op.Ins) == 2 {
		// la pair: lui high half, ori low half.
		_, _, rt, _ := op.Ins[0].IDecode()
		op.Ins[0] = MakeInsI(OP_LUI, 0, rt, uint16(address>>16))
		iop, rs, rt, _ := linked.IDecode()
		*linked = MakeInsI(iop, rs, rt, uint16(address))
		return
	}

	switch linked.Format() {
	case FORMAT_J:
		jop, _ := linked.JDecode()
		*linked = MakeInsJ(jop, address>>2)
	case FORMAT_I:
		// Branch offsets are in words, relative to the branch
		// instruction itself per the delayed-branch convention.
		iop, rs, rt, _ := linked.IDecode()
		here := TEXT_BASE + uint32(op.Ip+len(op.Ins)-1)*4
		offset := (int64(address) - int64(here)) / 4
		if offset < -0x8000 || offset > 0x7fff {
			err = ErrBranchRange
			return
		}
		*linked = MakeInsI(iop, rs, rt, uint16(int16(offset)))
	default:
		err = ErrOpcodeInvalid
	}

	return
}

// Parse parses an input stream into a Program containing opcodes and data.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.dataBytes = asm.dataBytes[:0]
	asm.section = ".text"
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v", lineno, text)
		}

		text_comment := strings.Split(text, "#")
		line = strings.TrimSpace(text_comment[0])

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}
	err = scanner.Err()
	if err != nil {
		return
	}

	// Final linking of branch and jump labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		err = asm.link(op)
		if err != nil {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			return
		}
	}

	// Pack the data section into words, LSB first.
	asm.alignData()
	var data []uint32
	for n := 0; n < len(asm.dataBytes); n += 4 {
		data = append(data, uint32(asm.dataBytes[n])|
			uint32(asm.dataBytes[n+1])<<8|
			uint32(asm.dataBytes[n+2])<<16|
			uint32(asm.dataBytes[n+3])<<24)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
		Data:    data,
	}

	return
}
