package ir

// Run is the journal header of one engine run.
type Run struct {
	ID             string `json:"id"`
	Model          string `json:"model"`
	SpecDigest     string `json:"spec_digest"`
	KernelVersion  string `json:"kernel_version"`
	IRVersion      string `json:"ir_version"`
	StepsRequested int64  `json:"steps_requested"`
	StartSeq       int64  `json:"start_seq"`

	// Set when the run finishes.
	StepsRun    int64  `json:"steps_run"`
	StopReason  string `json:"stop_reason,omitempty"`
	FinalDigest string `json:"final_digest,omitempty"`
}

// StepRecord summarises one journalled step.
type StepRecord struct {
	RunID     string `json:"run_id"`
	Step      int64  `json:"step"`
	Seq       int64  `json:"seq"`
	Evaluated int    `json:"evaluated"`
	Executed  int    `json:"executed"`
	Applied   int    `json:"applied"`
	Dropped   int    `json:"dropped"`
	Entities  int    `json:"entities"`
	Relations int    `json:"relations"`
	Digest    string `json:"digest"`
}

// CommandRecord is one collected command with the outcome of applying it.
// Payload is the canonical JSON encoding of the command's arguments.
type CommandRecord struct {
	RunID     string `json:"run_id"`
	Step      int64  `json:"step"`
	Seq       int64  `json:"seq"`
	Kind      string `json:"kind"`
	Target    string `json:"target"`
	Origin    string `json:"origin"`
	Process   string `json:"process"`
	Outcome   string `json:"outcome"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
	Created   string `json:"created,omitempty"`
	Payload   string `json:"payload"`
}

// Command outcomes recorded in the journal.
const (
	OutcomeApplied = "applied"
	OutcomeDropped = "dropped"
)
