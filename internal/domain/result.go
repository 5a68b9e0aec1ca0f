package domain

// Result summarizes one sync run: how many stories imported, how many
// failed, and a bounded list of per-story error messages.
type Result struct {
	Success int      `json:"success_count"`
	Failed  int      `json:"failed_count"`
	Errors  []string `json:"errors,omitempty"`
}
