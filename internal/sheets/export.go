package sheets

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"
)

// Export writes the rows of sh, under header, as a single-worksheet .xlsx
// document.
func Export(ctx context.Context, sh Sheet, header []string, w io.Writer) error {
	rows, err := sh.Rows(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	name := sh.Title()
	if err := f.SetSheetName(defaultSheet, name); err != nil {
		return err
	}

	hdr := append([]string(nil), header...)
	if err := f.SetSheetRow(name, "A1", &hdr); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		vals := append([]string(nil), r.Values...)
		if err := f.SetSheetRow(name, cell, &vals); err != nil {
			return err
		}
	}
	return f.Write(w)
}
