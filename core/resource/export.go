package resource

import (
	"context"
	"encoding/csv"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/ocwc/oeweek2022/core"
)

const (
	exportSheet      = "Resources"
	exportDateFormat = "dd/mm/yyyy hh:mm"
	exportDateColumn = 9
)

var exportHeader = []string{
	"ID", "Resource Type", "Title", "Organization", "Contact name", "Email", "OEW URL", "Resources URL",
	"Event Type", "Date and Time", "Country", "City", "Language", "Twitter", "Tags",
}

// column widths in characters, the first three columns are narrower
var exportWidths = map[int]float64{1: 8, 2: 23, 3: 23}

const exportDefaultWidth = 31

// Export writes the published resources of the current edition as an xlsx workbook.
func (svc *Service) Export(ctx context.Context, w io.Writer) error {
	resources, err := svc.exportResources(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err = f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	cellStyle, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return errors.Wrap(err, "creating cell style")
	}
	dateFormat := exportDateFormat
	dateStyle, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: &dateFormat,
		Alignment:    &excelize.Alignment{Vertical: "top"},
	})
	if err != nil {
		return errors.Wrap(err, "creating date style")
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return errors.Wrap(err, "opening sheet")
	}
	for col := 1; col <= len(exportHeader); col++ {
		width, ok := exportWidths[col]
		if !ok {
			width = exportDefaultWidth
		}
		if err = sw.SetColWidth(col, col, width); err != nil {
			return errors.Wrap(err, "setting column width")
		}
	}

	header := make([]interface{}, len(exportHeader))
	for i, title := range exportHeader {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: title}
	}
	if err = sw.SetRow("A1", header); err != nil {
		return errors.Wrap(err, "writing header")
	}

	for i, r := range resources {
		values := svc.exportRow(r)
		row := make([]interface{}, len(values))
		for col, v := range values {
			row[col] = excelize.Cell{StyleID: cellStyle, Value: v}
		}
		if ts, ok := r.EventTimeUTC(); ok {
			// shown in UTC
			row[exportDateColumn] = excelize.Cell{StyleID: dateStyle, Value: ts}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrapf(err, "locating resource #%d", r.ID)
		}
		if err = sw.SetRow(cell, row); err != nil {
			return errors.Wrapf(err, "writing resource #%d", r.ID)
		}
	}
	if err = sw.Flush(); err != nil {
		return errors.Wrap(err, "flushing sheet")
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}

// ExportCSV writes the same rows as Export in CSV.
func (svc *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	resources, err := svc.exportResources(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err = cw.Write(exportHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, r := range resources {
		if err = cw.Write(svc.exportRow(r)); err != nil {
			return errors.Wrapf(err, "writing resource #%d", r.ID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

func (svc *Service) exportResources(ctx context.Context) ([]Resource, error) {
	resources, err := svc.repo.QueryResources(ctx, QueryFilter{
		PostStatuses: []PostStatus{PostStatusPublish},
		Year:         svc.week.Year,
	}, []core.DBOrdering{{Field: "id", Ascending: true}})
	return resources, errors.Wrap(err, "querying resources")
}

func (svc *Service) exportRow(r Resource) []string {
	title, err := url.PathUnescape(r.Title)
	if err != nil {
		title = r.Title
	}
	var eventTime string
	if ts, ok := r.EventTimeUTC(); ok {
		eventTime = ts.Format("02/01/2006 15:04")
	}
	return []string{
		strconv.Itoa(r.PostID),
		string(r.PostType),
		title,
		r.Institution,
		r.Contact,
		r.Email,
		r.FullURL(svc.publicSiteURL),
		r.Link,
		r.EventType,
		eventTime,
		r.Country,
		r.City,
		r.FormLanguage,
		r.Twitter,
		strings.Join(r.OpenTags, ", "),
	}
}
