// Package report turns pixel-domain vessel measurements into a calibrated,
// export-ready metrics report.
package report

import (
	"math"
	"strconv"
)

// DefaultSigDigits is the significant-digit precision used for every numeric
// cell in the exported tables.
const DefaultSigDigits = 4

// FormatSig renders x with the given number of significant digits, the
// shared formatting contract for report values. NaN renders as the literal
// "nan". The function is total over float64; it never fails.
func FormatSig(x float64, sig int) string {
	if math.IsNaN(x) {
		return "nan"
	}
	return strconv.FormatFloat(x, 'g', sig, 64)
}

// Row is one line of the summary metrics table.
type Row struct {
	Metric string
	Value  string
	Unit   string
}
