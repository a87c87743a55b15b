package lambdaaws

import "time"

// lInput is the Lambda invocation payload. RunAt overrides the reference
// time of the run; an empty payload means "now".
type lInput struct {
	RunAt time.Time `json:"run_at,omitempty"`
}

// lOutput summarizes the run for the invoker.
type lOutput struct {
	Owners         int `json:"owners"`
	Sent           int `json:"sent"`
	Failed         int `json:"failed"`
	SkippedRecords int `json:"skipped_records"`
}
