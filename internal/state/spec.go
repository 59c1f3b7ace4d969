package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"pyrediff/internal/command"
	"pyrediff/internal/pyre"
)

// Spec file format: a single specification object or an array of them.
//
//	{
//	  "name": "sandbox-rename",
//	  "old_state": {"kind": "local", "path": "/repos/base"},
//	  "new_state": {"kind": "file", "changes": {"a.py": "x: int = 1\n"}},
//	  "pyre_check_pyre_options": "--strict",
//	  "pyre_start_options": "--store-type-check-resolution"
//	}
//
// Option fields are strings for compatibility with hand-written specs; they
// are split with shell-style quoting rules before use.

type rawSpecification struct {
	Name     string          `json:"name"`
	OldState json.RawMessage `json:"old_state"`
	NewState json.RawMessage `json:"new_state"`

	Client           string `json:"pyre_client"`
	BinaryOverride   string `json:"pyre_binary"`
	TypeshedOverride string `json:"typeshed"`

	CheckPyreOptions       string `json:"pyre_check_pyre_options"`
	CheckOptions           string `json:"pyre_check_options"`
	StartPyreOptions       string `json:"pyre_start_pyre_options"`
	StartOptions           string `json:"pyre_start_options"`
	IncrementalPyreOptions string `json:"pyre_incremental_pyre_options"`
	IncrementalOptions     string `json:"pyre_incremental_options"`
}

type kindProbe struct {
	Kind string `json:"kind"`
}

// Load parses one or many specifications from r.
func Load(r io.Reader) ([]pyre.Specification, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var raws []rawSpecification
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("[")) {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("parsing specification list: %w", err)
		}
	} else {
		var raw rawSpecification
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing specification: %w", err)
		}
		raws = []rawSpecification{raw}
	}

	specs := make([]pyre.Specification, 0, len(raws))
	for i, raw := range raws {
		spec, err := raw.toSpecification()
		if err != nil {
			return nil, fmt.Errorf("specification %d: %w", i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// LoadFile reads specifications from a JSON file.
func LoadFile(path string) ([]pyre.Specification, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	specs, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specs, nil
}

func (raw rawSpecification) toSpecification() (pyre.Specification, error) {
	oldState, err := parseState(raw.OldState)
	if err != nil {
		return pyre.Specification{}, fmt.Errorf("old_state: %w", err)
	}
	newState, err := parseUpdate(raw.NewState)
	if err != nil {
		return pyre.Specification{}, fmt.Errorf("new_state: %w", err)
	}

	spec := pyre.Specification{
		Name:             raw.Name,
		OldState:         oldState,
		NewState:         newState,
		Client:           raw.Client,
		BinaryOverride:   raw.BinaryOverride,
		TypeshedOverride: raw.TypeshedOverride,
	}

	options := []struct {
		name string
		src  string
		dst  *[]string
	}{
		{"pyre_check_pyre_options", raw.CheckPyreOptions, &spec.CheckPyreOptions},
		{"pyre_check_options", raw.CheckOptions, &spec.CheckOptions},
		{"pyre_start_pyre_options", raw.StartPyreOptions, &spec.StartPyreOptions},
		{"pyre_start_options", raw.StartOptions, &spec.StartOptions},
		{"pyre_incremental_pyre_options", raw.IncrementalPyreOptions, &spec.IncrementalPyreOptions},
		{"pyre_incremental_options", raw.IncrementalOptions, &spec.IncrementalOptions},
	}
	for _, opt := range options {
		words, err := command.SplitOptions(opt.src)
		if err != nil {
			return pyre.Specification{}, fmt.Errorf("%s: %w", opt.name, err)
		}
		*opt.dst = words
	}
	return spec, nil
}

func parseState(raw json.RawMessage) (pyre.RepositoryState, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing")
	}
	var probe kindProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	switch probe.Kind {
	case "local":
		var s struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if s.Path == "" {
			return nil, fmt.Errorf("local state requires a path")
		}
		return LocalState{Path: s.Path}, nil
	case "github":
		var s struct {
			Owner      string `json:"owner"`
			Repository string `json:"repository"`
			Ref        string `json:"ref"`
			Token      string `json:"token"`
		}
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return GitHubState(s), nil
	default:
		return nil, fmt.Errorf("unknown state kind %q", probe.Kind)
	}
}

func parseUpdate(raw json.RawMessage) (pyre.RepositoryUpdate, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing")
	}
	var probe kindProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	switch probe.Kind {
	case "file":
		var u struct {
			Changes  map[string]string `json:"changes"`
			Removals []string          `json:"removals"`
		}
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, err
		}
		return FileUpdate(u), nil
	case "batch":
		var u struct {
			Updates []json.RawMessage `json:"updates"`
		}
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, err
		}
		batch := BatchUpdate{}
		for i, sub := range u.Updates {
			parsed, err := parseUpdate(sub)
			if err != nil {
				return nil, fmt.Errorf("batch update %d: %w", i, err)
			}
			batch.Updates = append(batch.Updates, parsed)
		}
		return batch, nil
	case "command":
		var u struct {
			Argv          []string `json:"argv"`
			ExpectedCodes []int    `json:"expected_codes"`
		}
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, err
		}
		if len(u.Argv) == 0 {
			return nil, fmt.Errorf("command update requires argv")
		}
		return CommandUpdate(u), nil
	default:
		return nil, fmt.Errorf("unknown update kind %q", probe.Kind)
	}
}
