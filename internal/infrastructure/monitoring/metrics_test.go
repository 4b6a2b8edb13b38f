package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordLoanCommand(t *testing.T) {
	Ledger.CommandsTotal.Reset()

	RecordLoanCommand("MAKE_REPAYMENT", "success", 10*time.Millisecond)
	RecordLoanCommand("MAKE_REPAYMENT", "success", 5*time.Millisecond)
	RecordLoanCommand("DISBURSE", "rejected", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(Ledger.CommandsTotal.WithLabelValues("MAKE_REPAYMENT", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(Ledger.CommandsTotal.WithLabelValues("DISBURSE", "rejected")))
}

func TestRecordSummaryCacheLookup(t *testing.T) {
	Ledger.SummaryCacheLookups.Reset()

	RecordSummaryCacheLookup(true)
	RecordSummaryCacheLookup(false)
	RecordSummaryCacheLookup(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(Ledger.SummaryCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(Ledger.SummaryCacheLookups.WithLabelValues("miss")))
}

func TestRecordArrearsRun(t *testing.T) {
	Batch.LoansInArrear.Set(0)

	RecordArrearsRun("success", time.Second, 4)
	assert.Equal(t, 4.0, testutil.ToFloat64(Batch.LoansInArrear))

	RecordArrearsRun("failure", time.Second, 9)
	assert.Equal(t, 4.0, testutil.ToFloat64(Batch.LoansInArrear))
}
