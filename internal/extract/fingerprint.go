package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mergertracker/dealcrawl/internal/pipeline"
)

// Fingerprint derives a stable identity for a deal so the same deal
// reported by multiple sources collapses to one record. Values round to
// the nearest million before hashing so "$1.2 billion" and
// "$1,200 million" agree.
func Fingerprint(d *pipeline.CandidateDeal) string {
	var valuePart string
	if d.Value != nil {
		valuePart = fmt.Sprintf("%.0f", *d.Value/1e6)
	}
	var datePart string
	if !d.Announced.IsZero() {
		datePart = d.Announced.Format(time.DateOnly)
	}
	key := strings.Join([]string{
		normalizeCompanyName(d.Acquirer),
		normalizeCompanyName(d.Target),
		string(d.Shape),
		valuePart,
		datePart,
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}
