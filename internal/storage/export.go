package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	Run     RunMetadata   `json:"run"`
	Samples int           `json:"samples"`
	Times   []float64     `json:"times"`
	Dts     []float64     `json:"dts"`
	States  []ExportState `json:"states"`
}

// ExportJSON writes a stored run and its trajectory as one JSON document.
func ExportJSON(w io.Writer, meta *RunMetadata, tr *Trajectory) error {
	data := ExportData{
		Run:     *meta,
		Samples: len(tr.Times),
		Times:   tr.Times,
		Dts:     tr.Dts,
		States:  make([]ExportState, len(tr.States)),
	}
	for i, x := range tr.States {
		data.States[i] = exportState(x)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
