// Package notice carries user-facing messages from one request to the next
// render. Operations return Notices explicitly; the web layer stores them in
// the session across a redirect and clears them once rendered.
package notice

// Notices collects confirmations, errors and captured package-manager output.
type Notices struct {
	Confirmations []string `json:"confirmations,omitempty"`
	Errors        []string `json:"errors,omitempty"`
	Output        string   `json:"output,omitempty"`
}

func (n *Notices) Confirm(msg string) { n.Confirmations = append(n.Confirmations, msg) }

func (n *Notices) Error(msg string) { n.Errors = append(n.Errors, msg) }

// ClearErrors drops errors left over from earlier operations.
func (n *Notices) ClearErrors() { n.Errors = nil }

// AppendOutput adds captured output.
func (n *Notices) AppendOutput(out string) { n.Output += out }

// Merge appends other to n.
func (n *Notices) Merge(other Notices) {
	n.Confirmations = append(n.Confirmations, other.Confirmations...)
	n.Errors = append(n.Errors, other.Errors...)
	n.Output += other.Output
}

func (n Notices) Empty() bool {
	return len(n.Confirmations) == 0 && len(n.Errors) == 0 && n.Output == ""
}
