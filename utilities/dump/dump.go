// Package dump writes extracted file contents to a terminal.
package dump

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
)

func isPrintable(value byte) bool {
	return value >= 0x20 && value <= 0x7E
}

// Text writes `data` as text. Printable ASCII bytes are written as-is, every
// other byte (including newlines and tabs) as two lowercase hex digits followed
// by a space. The output always ends with a newline.
func Text(writer io.Writer, data []byte) error {
	bufferedWriter := bufio.NewWriter(writer)

	for _, value := range data {
		var err error
		if isPrintable(value) {
			err = bufferedWriter.WriteByte(value)
		} else {
			_, err = fmt.Fprintf(bufferedWriter, "%02x ", value)
		}
		if err != nil {
			return err
		}
	}

	err := bufferedWriter.WriteByte('\n')
	if err != nil {
		return err
	}
	return bufferedWriter.Flush()
}

// Hex writes `data` as a canonical hex dump: offset, sixteen bytes in hex, and
// their printable characters, one line per sixteen bytes.
func Hex(writer io.Writer, data []byte) error {
	dumper := hex.Dumper(writer)
	_, err := dumper.Write(data)
	if err != nil {
		dumper.Close()
		return err
	}
	return dumper.Close()
}
