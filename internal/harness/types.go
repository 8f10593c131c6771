package harness

// Trace outcomes other than an error kind.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step       int    `json:"step"`
	Op         string `json:"op,omitempty"`
	Type       string `json:"type,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Rows       int    `json:"rows,omitempty"`

	// Outcome is "ok", a fixture error kind such as "unexpected_entity",
	// or "error" for failures outside the fixture error kinds.
	Outcome string `json:"outcome"`

	// Error is the error message when the step failed.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as declared and every count matched.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Failures holds one entry per message in Errors, locating it.
	Failures []Failure `json:"failures,omitempty"`

	// Counts maps each counted type to its committed entity count.
	Counts map[string]int `json:"counts,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Counts: make(map[string]int),
	}
}

// Failure locates one check that did not hold.
type Failure struct {
	Step     int    `json:"step,omitempty"`     // 1-based; 0 for count and golden checks
	Row      int    `json:"row,omitempty"`      // 1-based table row, when the error names one
	Kind     string `json:"kind,omitempty"`     // fixture error kind the step produced
	Expected string `json:"expected,omitempty"` // error kind the step declared
	Message  string `json:"message"`
}

// AddError adds an unlocated failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.AddFailure(Failure{Message: err})
}

// AddFailure adds a failure and marks the result as failed.
func (r *Result) AddFailure(f Failure) {
	r.Errors = append(r.Errors, f.Message)
	r.Failures = append(r.Failures, f)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
