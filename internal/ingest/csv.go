package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"flujo/internal/core"
)

const (
	bom       = "\ufeff"
	delimiter = ';'
)

// Encodings tried by ImportCSV, in order.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"
)

// ReadCSV parses semicolon-delimited UTF-8 text into raw records keyed by
// header. A leading byte order mark is ignored.
func ReadCSV(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	table, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return FromTable(table), nil
}

// ImportCSV decodes and normalizes a CSV upload. UTF-8 is tried first; the
// bytes are re-read as ISO-8859-1 when they are not valid UTF-8 or when the
// UTF-8 pass accepts no row. ErrNoValidRows is returned when neither pass
// yields a movement.
func ImportCSV(data []byte, fm FieldMapping) (Result, error) {
	var firstErr error
	if utf8.Valid(data) {
		res, err := importDecoded(data, fm)
		if err == nil && res.Accepted() > 0 {
			res.Encoding = EncodingUTF8
			return res, nil
		}
		firstErr = err
	}

	latin, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", EncodingLatin1, err)
	}
	res, err := importDecoded(latin, fm)
	if err != nil {
		if firstErr != nil {
			return Result{}, firstErr
		}
		return Result{}, err
	}
	if res.Accepted() == 0 {
		return Result{Rejected: res.Rejected}, ErrNoValidRows
	}
	res.Encoding = EncodingLatin1
	return res, nil
}

func importDecoded(data []byte, fm FieldMapping) (Result, error) {
	rows, err := ReadCSV(bytes.NewReader(data))
	if err != nil {
		return Result{}, err
	}
	return fm.NormalizeAll(rows), nil
}

// WriteCSV writes movements in the mapping's column layout: a byte order
// mark, a header row, every value double-quoted and ';' separated.
func WriteCSV(w io.Writer, fm FieldMapping, rows []core.Movement) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bom + strings.Join(fm.Headers(), string(delimiter))); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, m := range rows {
		rec := fm.Record(m)
		for i, v := range rec {
			rec[i] = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
		}
		if _, err := bw.WriteString("\n" + strings.Join(rec, string(delimiter))); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	return bw.Flush()
}
