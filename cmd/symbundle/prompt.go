package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
)

var errNoRecordFile = errors.New("no record file given, use --records")

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// promptRecordFile asks for the record file path on out and reads one line
// from in.
func promptRecordFile(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Record file: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read record file path")
	}
	path := strings.TrimSpace(line)
	if path == "" {
		return "", errNoRecordFile
	}
	return path, nil
}
