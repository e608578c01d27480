package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	netmail "net/mail"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wneessen/go-mail"
	"github.com/xuri/excelize/v2"

	"github.com/MikeMC777/canteen/internal/order"
	"github.com/MikeMC777/canteen/internal/settings"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type fakeSource struct {
	orders []order.Order
	calls  int
}

func (f *fakeSource) Dashboard(_ context.Context, c order.Caller, day time.Time, topN int) (*order.Stats, error) {
	if !c.IsAdmin {
		return nil, order.ErrForbidden
	}
	from := order.BusinessDay(day, ist)
	return &order.Stats{
		From: from, To: from.AddDate(0, 0, 1),
		Orders: len(f.orders), Revenue: decimal.RequireFromString("150.50"),
		TopItems: []order.ItemSales{{Name: "Masala Dosa", Quantity: 3, Revenue: decimal.NewFromInt(150)}},
	}, nil
}

func (f *fakeSource) List(_ context.Context, _ order.Caller, fl order.Filter) ([]order.Order, error) {
	f.calls++
	if fl.Offset >= len(f.orders) {
		return nil, nil
	}
	end := fl.Offset + fl.Limit
	if end > len(f.orders) {
		end = len(f.orders)
	}
	return f.orders[fl.Offset:end], nil
}

func sampleOrders(n int) []order.Order {
	base := time.Date(2026, 10, 18, 4, 0, 0, 0, time.UTC)
	out := make([]order.Order, n)
	for i := range out {
		out[i] = order.Order{
			ID:            fmt.Sprintf("o-%d", i),
			InvoiceNo:     fmt.Sprintf("CAN-20261018-%04d", i+1),
			PaymentMethod: order.MethodUPI,
			Status:        order.StatusPaid,
			Total:         decimal.NewFromInt(50),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
	}
	out[0].WalkIn, out[0].CustomerName, out[0].PaymentMethod = true, "Table 4", order.MethodCash
	return out
}

func TestCollect_Paginates(t *testing.T) {
	src := &fakeSource{orders: sampleOrders(450)}
	admin := order.Caller{UserID: "a", IsAdmin: true}

	d, err := Collect(context.Background(), src, admin, time.Date(2026, 10, 18, 12, 0, 0, 0, ist))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(d.Orders) != 450 || src.calls != 3 {
		t.Fatalf("orders=%d calls=%d", len(d.Orders), src.calls)
	}
	if d.Filename() != "sales-2026-10-18.xlsx" {
		t.Fatalf("filename=%s", d.Filename())
	}

	if _, err := Collect(context.Background(), src, order.Caller{UserID: "c"}, time.Now()); !errors.Is(err, order.ErrForbidden) {
		t.Fatalf("customer err=%v", err)
	}
}

func TestWorkbook(t *testing.T) {
	src := &fakeSource{orders: sampleOrders(2)}
	d, err := Collect(context.Background(), src, order.Caller{UserID: "a", IsAdmin: true}, time.Date(2026, 10, 18, 12, 0, 0, 0, ist))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	raw, err := Bytes(d)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != sheetOrders || got[1] != sheetItems {
		t.Fatalf("sheets=%v", got)
	}
	rows, err := f.GetRows(sheetOrders)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if rows[0][0] != "Invoice" || rows[1][0] != "CAN-20261018-0001" {
		t.Fatalf("orders sheet rows=%v", rows[:2])
	}
	// 04:00 UTC is 09:30 in IST
	if rows[1][1] != "09:30" || rows[1][2] != "Table 4" || rows[1][3] != "walk-in" {
		t.Fatalf("walk-in row=%v", rows[1])
	}
	if last := rows[len(rows)-1]; last[0] != "Revenue" || last[1] != "150.50" {
		t.Fatalf("summary row=%v", last)
	}

	items, _ := f.GetRows(sheetItems)
	if len(items) != 2 || items[1][0] != "Masala Dosa" || items[1][1] != "3" {
		t.Fatalf("items sheet=%v", items)
	}
}

func TestSendDaily(t *testing.T) {
	vals := settings.Values{
		settings.KeySMTPHost:        "smtp.example.com",
		settings.KeySMTPPort:        "2525",
		settings.KeySMTPUser:        "reports@example.com",
		settings.KeySMTPPassword:    "pw",
		settings.KeyReportRecipient: "owner@example.com, manager@example.com",
	}
	cfg := MailConfigFrom(vals)
	if cfg.From != "reports@example.com" {
		t.Fatalf("from should default to the smtp user, got %q", cfg.From)
	}

	var gotCfg MailConfig
	var sent []*mail.Msg
	m := NewMailer()
	m.now = func() time.Time { return time.Date(2026, 10, 18, 21, 0, 0, 0, ist) }
	m.send = func(_ context.Context, c MailConfig, msgs ...*mail.Msg) error {
		gotCfg, sent = c, msgs
		return nil
	}

	d := &Daily{
		Day:   time.Date(2026, 10, 18, 0, 0, 0, 0, ist),
		Stats: &order.Stats{Orders: 4, Revenue: decimal.NewFromInt(200)},
	}
	xlsx := bytes.Repeat([]byte{0x50, 0x4b}, 100)
	if err := m.SendDaily(context.Background(), cfg, d, xlsx); err != nil {
		t.Fatalf("SendDaily: %v", err)
	}
	if gotCfg.Host != "smtp.example.com" || gotCfg.Port != 2525 || len(sent) != 1 {
		t.Fatalf("cfg=%+v messages=%d", gotCfg, len(sent))
	}
	to, err := sent[0].GetRecipients()
	if err != nil || len(to) != 2 || to[1] != "manager@example.com" {
		t.Fatalf("recipients=%v err=%v", to, err)
	}

	var raw bytes.Buffer
	if _, err := sent[0].WriteTo(&raw); err != nil {
		t.Fatalf("render message: %v", err)
	}
	msg, err := netmail.ReadMessage(&raw)
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	if subj := msg.Header.Get("Subject"); subj != "Daily sales 18 Oct 2026" {
		t.Fatalf("subject=%q", subj)
	}
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/mixed" {
		t.Fatalf("content type=%q err=%v", mediaType, err)
	}
	mr := multipart.NewReader(msg.Body, params["boundary"])

	text, err := mr.NextPart()
	if err != nil {
		t.Fatalf("text part: %v", err)
	}
	body, _ := io.ReadAll(text)
	if !strings.Contains(string(body), "Revenue: 200.00") {
		t.Fatalf("body=%q", body)
	}

	att, err := mr.NextPart()
	if err != nil {
		t.Fatalf("attachment part: %v", err)
	}
	if att.FileName() != "sales-2026-10-18.xlsx" {
		t.Fatalf("attachment name=%q", att.FileName())
	}
	enc, _ := io.ReadAll(att)
	dec, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(string(enc)), ""))
	if err != nil || !bytes.Equal(dec, xlsx) {
		t.Fatalf("attachment does not round-trip: err=%v", err)
	}
}

func TestSendDaily_BadRecipient(t *testing.T) {
	m := NewMailer()
	m.send = func(context.Context, MailConfig, ...*mail.Msg) error {
		t.Fatalf("send called with an invalid recipient")
		return nil
	}
	cfg := MailConfig{Host: "smtp.example.com", Port: 587, From: "reports@example.com", To: "not an address"}
	d := &Daily{Day: time.Now(), Stats: &order.Stats{Revenue: decimal.Zero}}
	if err := m.SendDaily(context.Background(), cfg, d, nil); !errors.Is(err, ErrMailNotConfigured) {
		t.Fatalf("err=%v", err)
	}
}

func TestSendDaily_NotConfigured(t *testing.T) {
	m := NewMailer()
	m.send = func(context.Context, MailConfig, ...*mail.Msg) error {
		t.Fatalf("send called without configuration")
		return nil
	}
	d := &Daily{Day: time.Now(), Stats: &order.Stats{}}
	if err := m.SendDaily(context.Background(), MailConfigFrom(settings.Values{}), d, nil); !errors.Is(err, ErrMailNotConfigured) {
		t.Fatalf("err=%v", err)
	}
}
