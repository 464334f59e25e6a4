package main

import (
	"fmt"
	"strconv"
	"strings"

	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/pricing"
)

// parseAction reads one line of display input:
//
//	tip 20 | tip $5.00 | tip none | proceed
//	receipt printed | receipt none | receipt email a@b.c | receipt text 5551234
//	sign x1,y1 x2,y2 ... | clear
//
// Blank lines return a nil action.
func parseAction(line string) (*d.CustomerAction, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	switch strings.ToLower(fields[0]) {
	case "proceed":
		return &d.CustomerAction{Type: d.ActionProceed}, nil
	case "clear":
		return &d.CustomerAction{Type: d.ActionClearSign}, nil
	case "tip":
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: tip <percent>|$<amount>|none")
		}
		tip, err := parseTip(fields[1])
		if err != nil {
			return nil, err
		}
		return &d.CustomerAction{Type: d.ActionSelectTip, Tip: &tip}, nil
	case "receipt":
		if len(fields) < 2 {
			return nil, fmt.Errorf("usage: receipt printed|none|email <address>|text <phone>")
		}
		pref := d.ReceiptPreference{Type: d.ReceiptType(strings.ToLower(fields[1]))}
		if len(fields) > 2 {
			switch pref.Type {
			case d.ReceiptEmail:
				pref.Email = fields[2]
			case d.ReceiptText:
				pref.Phone = fields[2]
			}
		}
		return &d.CustomerAction{Type: d.ActionChooseReceipt, Receipt: &pref}, nil
	case "sign":
		stroke, err := parseStroke(fields[1:])
		if err != nil {
			return nil, err
		}
		return &d.CustomerAction{Type: d.ActionSignature, Strokes: []d.Stroke{stroke}}, nil
	default:
		return nil, fmt.Errorf("unknown display input %q", fields[0])
	}
}

func parseTip(s string) (d.TipChoice, error) {
	if strings.EqualFold(s, "none") {
		return d.NoTip(), nil
	}
	if strings.HasPrefix(s, "$") {
		amount, err := pricing.ParseAmount(s)
		if err != nil {
			return d.TipChoice{}, fmt.Errorf("invalid tip amount: %w", err)
		}
		return d.AmountTip(amount), nil
	}
	pct, err := strconv.ParseInt(strings.TrimSuffix(s, "%"), 10, 64)
	if err != nil {
		return d.TipChoice{}, fmt.Errorf("invalid tip percent %q: %w", s, err)
	}
	return d.PercentTip(pct), nil
}

func parseStroke(points []string) (d.Stroke, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("a stroke needs at least two points")
	}
	stroke := make(d.Stroke, 0, len(points))
	for _, p := range points {
		xs, ys, ok := strings.Cut(p, ",")
		if !ok {
			return nil, fmt.Errorf("invalid point %q", p)
		}
		x, errX := strconv.ParseFloat(xs, 64)
		y, errY := strconv.ParseFloat(ys, 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("invalid point %q", p)
		}
		stroke = append(stroke, d.Point{X: x, Y: y})
	}
	return stroke, nil
}
