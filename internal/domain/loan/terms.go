package loan

import (
	"encoding/json"
	"loan-engine/internal/pkg/money"
	"time"

	"github.com/shopspring/decimal"
)

type InterestMethod string

const (
	InterestFlat             InterestMethod = "FLAT"
	InterestDecliningBalance InterestMethod = "DECLINING_BALANCE"
)

type InterestCalculationPeriodMethod string

const (
	InterestPeriodDaily           InterestCalculationPeriodMethod = "DAILY"
	InterestPeriodSameAsRepayment InterestCalculationPeriodMethod = "SAME_AS_REPAYMENT_PERIOD"
)

type AmortizationMethod string

const (
	AmortizationEqualInstallments AmortizationMethod = "EQUAL_INSTALLMENTS"
	AmortizationEqualPrincipal    AmortizationMethod = "EQUAL_PRINCIPAL"
)

type Frequency string

const (
	FrequencyDays   Frequency = "DAYS"
	FrequencyWeeks  Frequency = "WEEKS"
	FrequencyMonths Frequency = "MONTHS"
	FrequencyYears  Frequency = "YEARS"
)

const DefaultDaysInYear = 365

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Terms is the loan contract a schedule is generated from. Rates are
// percentages, so 12 means 12%.
type Terms struct {
	Currency                        money.Currency                  `json:"currency"`
	Principal                       money.Money                     `json:"principal"`
	NominalInterestRatePerPeriod    decimal.Decimal                 `json:"nominalInterestRatePerPeriod"`
	InterestRateFrequency           Frequency                       `json:"interestRateFrequency"`
	InterestMethod                  InterestMethod                  `json:"interestMethod"`
	InterestCalculationPeriodMethod InterestCalculationPeriodMethod `json:"interestCalculationPeriodMethod"`
	AmortizationMethod              AmortizationMethod              `json:"amortizationMethod"`
	RepayEvery                      int                             `json:"repayEvery"`
	RepaymentFrequency              Frequency                       `json:"repaymentFrequency"`
	NumberOfRepayments              int                             `json:"numberOfRepayments"`
	InArrearsTolerance              money.Money                     `json:"inArrearsTolerance"`
	DaysInYear                      int                             `json:"daysInYear,omitempty"`
	DownPaymentPercentage           decimal.Decimal                 `json:"downPaymentPercentage"`
	MultiDisburse                   bool                            `json:"multiDisburse,omitempty"`
	ExpectedDisbursementDate        time.Time                       `json:"expectedDisbursementDate"`
}

func (t Terms) Validate() error {
	if t.Currency.Code == "" {
		return newTermsError("currency", t.Currency.Code, "currency is required")
	}
	if t.Principal.Currency().Code != t.Currency.Code {
		return newTermsError("principal", t.Principal.String(), "principal currency differs from loan currency")
	}
	if !t.Principal.IsGreaterThanZero() {
		return newTermsError("principal", t.Principal.StringFixed(), "must be greater than zero")
	}
	if t.NumberOfRepayments < 1 {
		return newTermsError("numberOfRepayments", t.NumberOfRepayments, "must be at least 1")
	}
	if t.RepayEvery < 1 {
		return newTermsError("repayEvery", t.RepayEvery, "must be at least 1")
	}
	if t.NominalInterestRatePerPeriod.IsNegative() {
		return newTermsError("nominalInterestRatePerPeriod", t.NominalInterestRatePerPeriod.String(), "must not be negative")
	}
	if !t.InterestRateFrequency.valid() {
		return newTermsError("interestRateFrequency", t.InterestRateFrequency, "unsupported frequency")
	}
	if !t.RepaymentFrequency.valid() {
		return newTermsError("repaymentFrequency", t.RepaymentFrequency, "unsupported frequency")
	}
	switch t.InterestMethod {
	case InterestFlat, InterestDecliningBalance:
	default:
		return newTermsError("interestMethod", t.InterestMethod, "unsupported interest method")
	}
	switch t.InterestCalculationPeriodMethod {
	case InterestPeriodDaily, InterestPeriodSameAsRepayment:
	default:
		return newTermsError("interestCalculationPeriodMethod", t.InterestCalculationPeriodMethod, "unsupported interest calculation period method")
	}
	switch t.AmortizationMethod {
	case AmortizationEqualInstallments, AmortizationEqualPrincipal:
	default:
		return newTermsError("amortizationMethod", t.AmortizationMethod, "unsupported amortization method")
	}
	if t.InterestMethod == InterestFlat && t.InterestCalculationPeriodMethod == InterestPeriodDaily {
		return newTermsError("interestCalculationPeriodMethod", t.InterestCalculationPeriodMethod, "daily interest calculation cannot be combined with flat interest")
	}
	if code := t.InArrearsTolerance.Currency().Code; code != "" && code != t.Currency.Code {
		return newTermsError("inArrearsTolerance", t.InArrearsTolerance.String(), "tolerance currency differs from loan currency")
	}
	if t.InArrearsTolerance.IsLessThanZero() {
		return newTermsError("inArrearsTolerance", t.InArrearsTolerance.StringFixed(), "must not be negative")
	}
	switch t.DaysInYear {
	case 0, 360, 364, 365:
	default:
		return newTermsError("daysInYear", t.DaysInYear, "must be 360, 364 or 365")
	}
	if t.DownPaymentPercentage.IsNegative() || t.DownPaymentPercentage.GreaterThanOrEqual(hundred) {
		return newTermsError("downPaymentPercentage", t.DownPaymentPercentage.String(), "must be between 0 and 100")
	}
	if t.ExpectedDisbursementDate.IsZero() {
		return newTermsError("expectedDisbursementDate", "", "is required")
	}
	return nil
}

func (t Terms) daysInYear() int {
	if t.DaysInYear == 0 {
		return DefaultDaysInYear
	}
	return t.DaysInYear
}

// AnnualNominalInterestRate annualizes the per-period nominal rate.
func (t Terms) AnnualNominalInterestRate() decimal.Decimal {
	return t.NominalInterestRatePerPeriod.Mul(t.periodsPerYear(t.InterestRateFrequency))
}

// PeriodicInterestRate is the fractional rate for one repayment period.
func (t Terms) PeriodicInterestRate() decimal.Decimal {
	perYear := t.periodsPerYear(t.RepaymentFrequency)
	return t.AnnualNominalInterestRate().
		Mul(decimal.NewFromInt(int64(t.RepayEvery))).
		DivRound(hundred.Mul(perYear), calcPrecision)
}

// DailyInterestRate is the fractional rate for one day under the configured
// days-in-year convention.
func (t Terms) DailyInterestRate() decimal.Decimal {
	return t.AnnualNominalInterestRate().DivRound(hundred.Mul(decimal.NewFromInt(int64(t.daysInYear()))), calcPrecision)
}

func (t Terms) periodsPerYear(f Frequency) decimal.Decimal {
	switch f {
	case FrequencyDays:
		return decimal.NewFromInt(int64(t.daysInYear()))
	case FrequencyWeeks:
		return decimal.NewFromInt(52)
	case FrequencyMonths:
		return decimal.NewFromInt(12)
	default:
		return one
	}
}

// Equal compares terms by value, ignoring decimal representation.
func (t Terms) Equal(o Terms) bool {
	return t.Currency == o.Currency &&
		t.Principal.IsEqualTo(o.Principal) &&
		t.NominalInterestRatePerPeriod.Equal(o.NominalInterestRatePerPeriod) &&
		t.InterestRateFrequency == o.InterestRateFrequency &&
		t.InterestMethod == o.InterestMethod &&
		t.InterestCalculationPeriodMethod == o.InterestCalculationPeriodMethod &&
		t.AmortizationMethod == o.AmortizationMethod &&
		t.RepayEvery == o.RepayEvery &&
		t.RepaymentFrequency == o.RepaymentFrequency &&
		t.NumberOfRepayments == o.NumberOfRepayments &&
		t.InArrearsTolerance.IsEqualTo(o.InArrearsTolerance) &&
		t.daysInYear() == o.daysInYear() &&
		t.DownPaymentPercentage.Equal(o.DownPaymentPercentage) &&
		t.MultiDisburse == o.MultiDisburse &&
		t.ExpectedDisbursementDate.Equal(o.ExpectedDisbursementDate)
}

func (f Frequency) valid() bool {
	switch f {
	case FrequencyDays, FrequencyWeeks, FrequencyMonths, FrequencyYears:
		return true
	}
	return false
}

// UnmarshalJSON decodes stored terms and binds the amounts to the currency.
func (t *Terms) UnmarshalJSON(b []byte) error {
	type plain Terms
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	p.Principal = p.Principal.In(p.Currency)
	p.InArrearsTolerance = p.InArrearsTolerance.In(p.Currency)
	*t = Terms(p)
	return nil
}
