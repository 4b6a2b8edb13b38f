package loan

import (
	"loan-engine/internal/pkg/money"
	"sort"
	"time"
)

type Disbursement struct {
	ExpectedDate       time.Time   `json:"expectedDate"`
	ActualDate         time.Time   `json:"actualDate,omitempty"`
	Principal          money.Money `json:"principal"`
	NetDisbursalAmount money.Money `json:"netDisbursalAmount"`
}

// DisbursementDate is the actual date once disbursed, the expected date before.
func (d Disbursement) DisbursementDate() time.Time {
	if !d.ActualDate.IsZero() {
		return d.ActualDate
	}
	return d.ExpectedDate
}

func sortDisbursements(ds []Disbursement) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].ExpectedDate.Before(ds[j].ExpectedDate)
	})
}
