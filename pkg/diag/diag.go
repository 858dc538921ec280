// Package diag renders compile and run-time errors for people.
//
// Every function returns a freshly built string; nothing is cached or shared
// between calls, so rendering is safe from any goroutine.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"evaluator/pkg/compiler"
	"evaluator/pkg/vm"
)

// ErrorToString returns the stable description of a compile error, a
// run-time error, or a bare kind of either. A nil error reads "no error".
func ErrorToString(err error) string {
	if err == nil {
		return vm.NoRuntimeError.String()
	}

	var cerr *compiler.Error
	if errors.As(err, &cerr) {
		return cerr.Kind.String()
	}
	var kind compiler.ErrorKind
	if errors.As(err, &kind) {
		return kind.String()
	}
	var rerr vm.RuntimeError
	if errors.As(err, &rerr) {
		return rerr.String()
	}
	return err.Error()
}

// CompileReport is the console text shown after a failed compile: the error
// kind followed by the source from the failing offset onwards.
func CompileReport(src string, err error) string {
	_, offset := compiler.Position(err)
	if offset > len(src) {
		offset = len(src)
	}
	return fmt.Sprintf("Compile Error:\n%s\nAt:\n%s", ErrorToString(err), src[offset:])
}

// RuntimeReport is the console text shown after a faulting run.
func RuntimeReport(err error) string {
	return "Runtime Error: " + ErrorToString(err)
}

// Caret returns the line of src containing offset with a '^' under it.
func Caret(src string, offset int) string {
	if offset < 0 {
		offset = 0
	}
	if offset > len(src) {
		offset = len(src)
	}

	start := strings.LastIndexByte(src[:offset], '\n') + 1
	end := strings.IndexByte(src[offset:], '\n')
	if end < 0 {
		end = len(src)
	} else {
		end += offset
	}

	line := src[start:end]
	pad := make([]byte, 0, offset-start)
	for i := start; i < offset; i++ {
		if src[i] == '\t' {
			pad = append(pad, '\t')
		} else {
			pad = append(pad, ' ')
		}
	}
	return line + "\n" + string(pad) + "^"
}

// Describe renders any error with context when it is a compile error.
func Describe(src string, err error) string {
	var cerr *compiler.Error
	if errors.As(err, &cerr) {
		return fmt.Sprintf("offset %d: %s\n%s", cerr.Offset, cerr.Kind, Caret(src, cerr.Offset))
	}
	return ErrorToString(err)
}
