package export

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/printjob"
)

// Header is the first line of every export.
const Header = `"Printer Name","Timestamp","Status","Pages","Document Size","Color Mode","Duplex Setting","Paper Size","User Account","Job ID"`

// Columns is the number of fields per row.
const Columns = 10

// EscapeField quotes s, doubling any embedded quote.
func EscapeField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// WriteCSV writes the header and one row per record. String fields are
// always quoted; page count and document size never are.
func WriteCSV(w io.Writer, records []printjob.Record) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(Header)
	bw.WriteByte('\n')

	for i := range records {
		writeRow(bw, &records[i])
	}

	return bw.Flush()
}

func writeRow(bw *bufio.Writer, r *printjob.Record) {
	fields := [...]string{
		EscapeField(r.PrinterName),
		EscapeField(r.Timestamp()),
		EscapeField(r.Status.String()),
		strconv.Itoa(r.Pages),
		strconv.FormatInt(r.DocumentSizeBytes, 10),
		EscapeField(r.ColorMode.String()),
		EscapeField(r.DuplexMode.String()),
		EscapeField(r.PaperSize.String()),
		EscapeField(r.UserAccount),
		EscapeField(r.JobID),
	}

	for i, f := range fields {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(f)
	}
	bw.WriteByte('\n')
}

// ParseRow splits one exported line back into unescaped fields.
func ParseRow(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1

	fields, err := r.Read()
	if err != nil {
		return nil, errors.New().Wrap(ErrParseRow, err)
	}
	return fields, nil
}

// ReadAll parses a whole export, header included.
func ReadAll(rd io.Reader) ([][]string, error) {
	r := csv.NewReader(rd)
	r.FieldsPerRecord = Columns

	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.New().Wrap(ErrParseRow, err)
	}
	return rows, nil
}
