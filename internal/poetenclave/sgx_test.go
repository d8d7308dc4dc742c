package poetenclave

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSgxQuoteRoundTrip(t *testing.T) {
	digest := sha256.Sum256([]byte("round-trip-report-data"))

	var q SgxQuote
	copy(q.Basename.Name[:], validBasename)
	copy(q.ReportBody.MrEnclave.M[:], validMeasurement)
	q.ReportBody.IsvProdID = 7
	q.ReportBody.IsvSvn = 3
	q.ReportBody.ReportData = NewSgxReportData(digest[:])

	encoded := q.Serialize()
	require.Len(t, encoded, SgxQuoteSize)

	got, err := ParseSgxQuote(encoded)
	require.NoError(t, err)
	assert.Equal(t, q, got)
}

func TestParseSgxQuoteTooShort(t *testing.T) {
	_, err := ParseSgxQuote(make([]byte, SgxQuoteSize-1))
	assert.Error(t, err)
}

func TestParseSgxReportBodyTooShort(t *testing.T) {
	_, err := ParseSgxReportBody(make([]byte, SgxReportBodySize-1))
	assert.Error(t, err)
}

func TestNewSgxReportDataZeroPadsTail(t *testing.T) {
	digest := sha256.Sum256([]byte("x"))
	rd := NewSgxReportData(digest[:])

	assert.Equal(t, digest[:], rd.D[:len(digest)])
	for _, b := range rd.D[len(digest):] {
		assert.Equal(t, byte(0), b)
	}
}

func TestSgxReportBodySizeMatchesRealLayout(t *testing.T) {
	assert.Equal(t, 384, SgxReportBodySize)
	assert.Equal(t, 416, SgxQuoteSize)
}

// TestValidBasenameAndMeasurementMatchDocumentedConstants pins validBasename
// and validMeasurement to the wire-exact hex strings so any interoperating
// enclave simulator accepts the same quotes. A self-consistency check isn't
// enough here: the enclave only ever validates quotes against these same
// package vars, so a wrong-but-internally-consistent value would otherwise
// pass every other test in this package.
func TestValidBasenameAndMeasurementMatchDocumentedConstants(t *testing.T) {
	wantBasename, err := hex.DecodeString(
		"b785c58b77152cbe7fd55ee3851c499000000000000000000000000000000000")
	require.NoError(t, err)
	wantMeasurement, err := hex.DecodeString(
		"c99f21955e38dbb03d2ca838d3af6e43ef438926ed02db4cc729380c8c7a174e")
	require.NoError(t, err)

	assert.Equal(t, wantBasename, validBasename)
	assert.Equal(t, wantMeasurement, validMeasurement)
}
