package models

// LoginRequest carries operator credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token
type LoginResponse struct {
	Token string `json:"token"`
}

// ActionSheet is the current week's ledger as shown to collectors
type ActionSheet struct {
	Week    string       `json:"week"`
	Version string       `json:"version"`
	Entries []ActionView `json:"entries"`
}

// SubmissionItem is one row of a submitted action form
type SubmissionItem struct {
	LoanKey   LoanKey `json:"loan_key"`
	Contacted bool    `json:"contacted"`
	Note      string  `json:"note"`
}

// RecordRequest is a batch of collector updates for one week. Version, when
// set, must match the ledger the form was rendered from.
type RecordRequest struct {
	Version string           `json:"version"`
	Entries []SubmissionItem `json:"entries"`
}

// Submissions indexes the request by canonical loan key, in row order, so a
// later row for the same loan wins even when its key is spelled differently.
func (r RecordRequest) Submissions() map[LoanKey]Submission {
	out := make(map[LoanKey]Submission, len(r.Entries))
	for _, item := range r.Entries {
		out[item.LoanKey.Canonical()] = Submission{Contacted: item.Contacted, Note: item.Note}
	}
	return out
}
