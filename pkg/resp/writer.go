package resp

import (
	"fmt"
	"io"

	"streamdb/internal/core/models"
)

// Writer encodes reply Values onto the wire per spec §4.5/§4.6.
type Writer struct {
	wr io.Writer
}

func NewWriter(wr io.Writer) *Writer {
	return &Writer{wr: wr}
}

func (w *Writer) Write(v models.Value) error {
	switch v.Type {
	case "string":
		return w.writeString(v.Str)
	case "error":
		return w.writeError(v.Str)
	case "integer":
		return w.writeInteger(v.Num)
	case "bulk":
		return w.writeBulk(v.Bulk)
	case "null":
		return w.writeNullBulk()
	case "nullarray":
		return w.writeNullArray()
	case "array":
		return w.writeArray(v.Array)
	default:
		return fmt.Errorf("unknown type: %s", v.Type)
	}
}

func (w *Writer) writeString(s string) error {
	_, err := fmt.Fprintf(w.wr, "+%s\r\n", s)
	return err
}

func (w *Writer) writeError(s string) error {
	_, err := fmt.Fprintf(w.wr, "-%s\r\n", s)
	return err
}

func (w *Writer) writeInteger(i int) error {
	_, err := fmt.Fprintf(w.wr, ":%d\r\n", i)
	return err
}

func (w *Writer) writeBulk(s string) error {
	_, err := fmt.Fprintf(w.wr, "$%d\r\n%s\r\n", len(s), s)
	return err
}

// writeNullBulk writes the null bulk string ("$-1\r\n"), used where a
// single value is absent (e.g. no such key).
func (w *Writer) writeNullBulk() error {
	_, err := fmt.Fprint(w.wr, "$-1\r\n")
	return err
}

// writeNullArray writes the null array ("*-1\r\n"), used where a whole
// collection reply is absent — distinct from an empty array ("*0\r\n"),
// per spec §9.
func (w *Writer) writeNullArray() error {
	_, err := fmt.Fprint(w.wr, "*-1\r\n")
	return err
}

func (w *Writer) writeArray(array []models.Value) error {
	if _, err := fmt.Fprintf(w.wr, "*%d\r\n", len(array)); err != nil {
		return err
	}
	for _, value := range array {
		if err := w.Write(value); err != nil {
			return err
		}
	}
	return nil
}
