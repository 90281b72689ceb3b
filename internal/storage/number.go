package storage

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/san-kum/dpend/internal/pendulum"
)

// Number is a float64 that survives JSON when it is not finite. NaN and
// the infinities are written as the strings "NaN", "+Inf" and "-Inf" so a
// diverged run can still be stored and read back.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte(strconv.Quote(strconv.FormatFloat(v, 'g', -1, 64))), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = unquoted
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// ExportState is pendulum.State with JSON-safe components.
type ExportState struct {
	Phi    Number `json:"phi"`
	Psi    Number `json:"psi"`
	PhiDot Number `json:"phi_dot"`
	PsiDot Number `json:"psi_dot"`
}

func exportState(s pendulum.State) ExportState {
	return ExportState{Number(s.Phi), Number(s.Psi), Number(s.PhiDot), Number(s.PsiDot)}
}

func (s ExportState) State() pendulum.State {
	return pendulum.State{
		Phi:    float64(s.Phi),
		Psi:    float64(s.Psi),
		PhiDot: float64(s.PhiDot),
		PsiDot: float64(s.PsiDot),
	}
}

// runMetadataJSON is the on-disk form of RunMetadata.
type runMetadataJSON struct {
	ID          string            `json:"id"`
	Preset      string            `json:"preset"`
	Timestamp   time.Time         `json:"timestamp"`
	Dt          Number            `json:"dt"`
	Duration    Number            `json:"duration"`
	Gravity     Number            `json:"gravity"`
	ArmLength   Number            `json:"arm_length"`
	Damping     Number            `json:"damping"`
	InitState   ExportState       `json:"init_state"`
	Steps       int               `json:"steps"`
	EnergyDrift Number            `json:"energy_drift"`
	Metrics     map[string]Number `json:"metrics"`
}

func (m RunMetadata) MarshalJSON() ([]byte, error) {
	w := runMetadataJSON{
		ID:          m.ID,
		Preset:      m.Preset,
		Timestamp:   m.Timestamp,
		Dt:          Number(m.Dt),
		Duration:    Number(m.Duration),
		Gravity:     Number(m.Gravity),
		ArmLength:   Number(m.ArmLength),
		Damping:     Number(m.Damping),
		InitState:   exportState(m.InitState),
		Steps:       m.Steps,
		EnergyDrift: Number(m.EnergyDrift),
	}
	if m.Metrics != nil {
		w.Metrics = make(map[string]Number, len(m.Metrics))
		for k, v := range m.Metrics {
			w.Metrics[k] = Number(v)
		}
	}
	return json.Marshal(w)
}

func (m *RunMetadata) UnmarshalJSON(data []byte) error {
	var w runMetadataJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = RunMetadata{
		ID:          w.ID,
		Preset:      w.Preset,
		Timestamp:   w.Timestamp,
		Dt:          float64(w.Dt),
		Duration:    float64(w.Duration),
		Gravity:     float64(w.Gravity),
		ArmLength:   float64(w.ArmLength),
		Damping:     float64(w.Damping),
		InitState:   w.InitState.State(),
		Steps:       w.Steps,
		EnergyDrift: float64(w.EnergyDrift),
	}
	if w.Metrics != nil {
		m.Metrics = make(map[string]float64, len(w.Metrics))
		for k, v := range w.Metrics {
			m.Metrics[k] = float64(v)
		}
	}
	return nil
}
