package driver

import (
	"encoding/json"
	"fmt"

	"molten/internal/diag"
	"molten/internal/observ"
	"molten/internal/source"
)

// unitTimings is the JSON note attached to a unit's timing diagnostic.
type unitTimings struct {
	Unit    string               `json:"unit"`
	Path    string               `json:"path,omitempty"`
	Library bool                 `json:"library,omitempty"`
	Lowered bool                 `json:"lowered"`
	TotalMS float64              `json:"total_ms"`
	Slowest string               `json:"slowest,omitempty"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// reportTimings adds the phase timings of unit to bag as an info
// diagnostic. The timing note is added even when bag is full.
func reportTimings(bag *diag.Bag, unit *Unit, opts Options, rep observ.Report) {
	if bag == nil {
		return
	}
	payload := unitTimings{
		Unit:    unit.Name,
		Path:    unit.Path,
		Library: opts.Library,
		Lowered: !opts.CheckOnly && phaseRan(rep, PhaseLower),
		TotalMS: rep.TotalMS,
		Phases:  rep.Phases,
	}
	msg := fmt.Sprintf("timings of unit %s: %d phases in %.2f ms", unit.Name, len(rep.Phases), rep.TotalMS)
	if slowest, ok := rep.Slowest(); ok {
		payload.Slowest = slowest.Name
		msg = fmt.Sprintf("%s, slowest %s", msg, slowest.Name)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	entry := diag.New(diag.SevInfo, diag.ObsTimings, unit.pos(), msg).WithNote(source.Pos{}, string(data))
	if bag.Add(entry) {
		return
	}
	overflow := diag.NewBag(1)
	overflow.Add(entry)
	bag.Merge(overflow)
}

func phaseRan(rep observ.Report, name string) bool {
	for _, p := range rep.Phases {
		if p.Name == name && !p.Failed {
			return true
		}
	}
	return false
}
