// Package report renders the daily sales workbook and mails it.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MikeMC777/canteen/internal/order"
)

const (
	sheetOrders = "Orders"
	sheetItems  = "Items"
	pageSize    = 200
)

// Source is the slice of the order service a report reads. Both calls are
// admin-only, so the caller is passed through.
type Source interface {
	Dashboard(ctx context.Context, c order.Caller, day time.Time, topN int) (*order.Stats, error)
	List(ctx context.Context, c order.Caller, f order.Filter) ([]order.Order, error)
}

type Daily struct {
	Day    time.Time
	Stats  *order.Stats
	Orders []order.Order
}

func (d *Daily) Filename() string {
	return "sales-" + d.Day.Format("2006-01-02") + ".xlsx"
}

// Collect gathers everything a daily report needs for the business day
// containing day.
func Collect(ctx context.Context, src Source, c order.Caller, day time.Time) (*Daily, error) {
	st, err := src.Dashboard(ctx, c, day, 0)
	if err != nil {
		return nil, err
	}
	d := &Daily{Day: st.From, Stats: st}
	for offset := 0; ; offset += pageSize {
		page, err := src.List(ctx, c, order.Filter{From: st.From, To: st.To, Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		d.Orders = append(d.Orders, page...)
		if len(page) < pageSize {
			break
		}
	}
	return d, nil
}

// Workbook renders d as an xlsx file with an orders sheet and an item summary.
func Workbook(d *Daily) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetOrders); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(sheetItems); err != nil {
		f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	loc := d.Day.Location()
	rows := [][]any{{"Invoice", "Time", "Customer", "Channel", "Method", "Status", "Total"}}
	for _, o := range d.Orders {
		channel, customer := "online", ""
		if o.WalkIn {
			channel, customer = "walk-in", o.CustomerName
		}
		total, _ := o.Total.Float64()
		rows = append(rows, []any{
			o.InvoiceNo,
			o.CreatedAt.In(loc).Format("15:04"),
			customer,
			channel,
			string(o.PaymentMethod),
			string(o.Status),
			total,
		})
	}
	rows = append(rows,
		[]any{},
		[]any{"Orders", d.Stats.Orders},
		[]any{"Pending", d.Stats.Pending},
		[]any{"Cancelled", d.Stats.Cancelled},
		[]any{"Revenue", d.Stats.Revenue.StringFixed(2)},
	)
	if err := writeRows(f, sheetOrders, rows); err != nil {
		f.Close()
		return nil, err
	}

	items := [][]any{{"Item", "Quantity", "Revenue"}}
	for _, s := range d.Stats.TopItems {
		rev, _ := s.Revenue.Float64()
		items = append(items, []any{s.Name, s.Quantity, rev})
	}
	if err := writeRows(f, sheetItems, items); err != nil {
		f.Close()
		return nil, err
	}

	for _, sh := range []string{sheetOrders, sheetItems} {
		if err := f.SetRowStyle(sh, 1, 1, bold); err != nil {
			f.Close()
			return nil, err
		}
	}
	_ = f.SetColWidth(sheetOrders, "A", "A", 22)
	_ = f.SetColWidth(sheetItems, "A", "A", 28)
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// Bytes renders d and returns the xlsx file contents.
func Bytes(d *Daily) ([]byte, error) {
	f, err := Workbook(d)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
