package types

// Event is the canonical wire form of a state-transition notification. Every
// mutating operation appends at most a handful of these to the journal; the
// attributes are flat strings so observers can index them without knowing the
// producing module.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
