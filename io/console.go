package io

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Console provides the character I/O device used by the system-call
// handler. It wraps an io.Reader for standard input and an io.Writer
// for standard output. A Console with a nil Output discards all
// output; a Console with a nil Input reports end-of-input on read.
type Console struct {
	Input  io.Reader
	Output io.Writer

	scanner *bufio.Scanner
}

// PrintInt writes a signed decimal integer, with no framing.
func (con *Console) PrintInt(value int32) (err error) {
	if con.Output == nil {
		return
	}

	_, err = fmt.Fprintf(con.Output, "%d", value)
	return
}

// PrintChar writes a single byte as a character.
func (con *Console) PrintChar(value byte) (err error) {
	if con.Output == nil {
		return
	}

	_, err = con.Output.Write([]byte{value})
	return
}

// PrintString writes a string, with no framing or trailing newline.
func (con *Console) PrintString(text string) (err error) {
	if con.Output == nil {
		return
	}

	_, err = io.WriteString(con.Output, text)
	return
}

// ReadInt reads one line from the input and parses it as a decimal
// integer. A malformed line is an error, not a default value.
func (con *Console) ReadInt() (value int32, err error) {
	if con.Input == nil {
		err = ErrInputClosed
		return
	}

	if con.scanner == nil {
		con.scanner = bufio.NewScanner(con.Input)
	}

	if !con.scanner.Scan() {
		err = con.scanner.Err()
		if err == nil {
			err = ErrInputClosed
		}
		return
	}

	line := strings.TrimSpace(con.scanner.Text())
	v64, err := strconv.ParseInt(line, 10, 32)
	if err != nil {
		err = ErrInputSyntax(line)
		return
	}

	value = int32(v64)
	return
}
