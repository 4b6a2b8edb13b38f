package loan

type Outcome string

const (
	OutcomeChanged   Outcome = "CHANGED"
	OutcomeNoChanges Outcome = "NO_CHANGES"
)

// Changes maps changed field names to their new values for audit output.
type Changes map[string]any

// Result is what every command returns on success. When Outcome is
// OutcomeNoChanges, Loan is the unmodified input.
type Result struct {
	Outcome      Outcome
	Operation    Operation
	Loan         Loan
	Changes      Changes
	Transactions []Transaction
}

func (r Result) Changed() bool {
	return r.Outcome == OutcomeChanged
}

func noChanges(l Loan, op Operation) Result {
	return Result{Outcome: OutcomeNoChanges, Operation: op, Loan: l, Changes: Changes{}}
}
