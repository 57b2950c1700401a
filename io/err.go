package io

import (
	"errors"

	"github.com/ezrec/umips/translate"
)

var f = translate.From

var (
	// Console errors
	ErrInputClosed = errors.New(f("input closed"))
)

type ErrInputSyntax string

func (err ErrInputSyntax) Error() string {
	return f("'%v' is not an integer", string(err))
}
