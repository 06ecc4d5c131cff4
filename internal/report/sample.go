package report

import (
	_ "embed"
	"encoding/json"
)

//go:embed sample_preparation.json
var samplePreparation []byte

// SamplePreparation returns the built-in demo preparation (Acme Corp, Senior
// Product Manager) in the wrapped shape.
func SamplePreparation() json.RawMessage {
	return append(json.RawMessage(nil), samplePreparation...)
}
