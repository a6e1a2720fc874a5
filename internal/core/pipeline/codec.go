package pipeline

import (
	"encoding/json"

	perr "churnlearn/internal/platform/errors"
)

// EnvelopeVersion is bumped when the persisted layout changes
const EnvelopeVersion = 1

// Factory builds an unfit step of a given kind
type Factory func() Step

// Registry maps step kinds to factories for decoding
type Registry map[string]Factory

type envelope struct {
	Version int         `json:"version"`
	Steps   []stepState `json:"steps"`
}

type stepState struct {
	Name  string          `json:"name"`
	Kind  string          `json:"kind"`
	State json.RawMessage `json:"state"`
}

// Marshal encodes the pipeline with every step's state
func Marshal(p *Pipeline) ([]byte, error) {
	env := envelope{Version: EnvelopeVersion}
	for _, s := range p.steps {
		b, err := s.Step.MarshalJSON()
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "pipeline: encode step %q", s.Name)
		}
		env.Steps = append(env.Steps, stepState{Name: s.Name, Kind: s.Step.Kind(), State: b})
	}
	return json.Marshal(env)
}

// Unmarshal rebuilds a pipeline, creating each step from the registry
func (r Registry) Unmarshal(b []byte) (*Pipeline, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "pipeline: decode envelope")
	}
	if env.Version != EnvelopeVersion {
		return nil, perr.InvalidArgf("pipeline: envelope version %d, want %d", env.Version, EnvelopeVersion)
	}
	steps := make([]Named, 0, len(env.Steps))
	for _, st := range env.Steps {
		mk, ok := r[st.Kind]
		if !ok {
			return nil, perr.InvalidArgf("pipeline: unknown step kind %q", st.Kind)
		}
		step := mk()
		if err := step.UnmarshalJSON(st.State); err != nil {
			return nil, perr.WithOp(err, "decode "+st.Name)
		}
		steps = append(steps, Named{Name: st.Name, Step: step})
	}
	return New(steps...)
}
