// Package payment builds UPI payment links and renders them as QR codes.
package payment

import (
	"errors"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/MikeMC777/canteen/internal/settings"
)

var ErrNotConfigured = errors.New("upi payee is not configured")

// Config is the payee side of a UPI link, taken from settings per request.
type Config struct {
	PayeeID   string
	PayeeName string
}

func ConfigFrom(v settings.Values) Config {
	return Config{
		PayeeID:   strings.TrimSpace(v.Get(settings.KeyUPIID, "")),
		PayeeName: v.Get(settings.KeyPayeeName, "Canteen"),
	}
}

// Payload is what a client needs to collect a UPI payment.
type Payload struct {
	Method string `json:"method"`
	URI    string `json:"uri,omitempty"`
	QRPath string `json:"qr_path,omitempty"`
	Amount string `json:"amount"`
	Note   string `json:"note"`
}

// UPIURI returns upi://pay?pa=..&pn=..&am=..&tn=..&cu=INR. The invoice number
// travels as the transaction note so the payment can be matched to the order.
func UPIURI(cfg Config, amount decimal.Decimal, note string) (string, error) {
	if cfg.PayeeID == "" {
		return "", ErrNotConfigured
	}
	q := url.Values{}
	q.Set("pa", cfg.PayeeID)
	q.Set("pn", cfg.PayeeName)
	q.Set("am", amount.StringFixed(2))
	q.Set("tn", note)
	q.Set("cu", "INR")
	return "upi://pay?" + q.Encode(), nil
}

// QRPNG renders uri as a PNG image of size x size pixels.
func QRPNG(uri string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(uri, qrcode.Medium, size)
}
