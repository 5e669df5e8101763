package app

import (
	"bufio"
	"encoding/csv"
	"os"
	"strconv"

	"github.com/overfly42/found-gems/internal/field"
)

// fieldDump rewrites one CSV file with the latest composed field, one board
// row per line, values separated by ';'.
type fieldDump struct {
	file *os.File
}

func openFieldDump(path string) (*fieldDump, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &fieldDump{file: f}, nil
}

func (d *fieldDump) Write(g field.Grid) error {
	if g.Empty() {
		return nil
	}
	if err := d.file.Truncate(0); err != nil {
		return err
	}
	if _, err := d.file.Seek(0, 0); err != nil {
		return err
	}
	buf := bufio.NewWriter(d.file)
	w := csv.NewWriter(buf)
	w.Comma = ';'
	for _, row := range g.Rows() {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', 6, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

func (d *fieldDump) Close() error {
	return d.file.Close()
}
