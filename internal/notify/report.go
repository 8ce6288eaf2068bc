package notify

// DispatchFailure records one recipient that could not be reached.
type DispatchFailure struct {
	Address string
	Reason  string
}

// DispatchReport aggregates the outcome of a batched dispatch. Failures
// are collected and reported; they never abort the remaining batch.
type DispatchReport struct {
	Sent   []string
	Failed []DispatchFailure
}

// RecordSent appends a successful delivery.
func (r *DispatchReport) RecordSent(address string) {
	r.Sent = append(r.Sent, address)
}

// RecordFailure appends a failed delivery.
func (r *DispatchReport) RecordFailure(address string, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	r.Failed = append(r.Failed, DispatchFailure{Address: address, Reason: reason})
}

// AllFailed reports whether nothing was delivered at all.
func (r *DispatchReport) AllFailed() bool {
	return len(r.Sent) == 0 && len(r.Failed) > 0
}
