package ast

// Stage is a pipeline phase, in pipeline order.
type Stage uint8

const (
	StageVertex Stage = iota
	StageHull
	StageHullConstant
	StageDomain
	StageGeometry
	StagePixel
	StageCompute
	StageCount
)

var stageInfo = [StageCount]struct {
	name  string
	entry string
	short string
}{
	StageVertex:       {"vertex", "VSMain", "VS"},
	StageHull:         {"hull", "HSMain", "HS"},
	StageHullConstant: {"hullconstant", "HSConstantMain", "HSConstant"},
	StageDomain:       {"domain", "DSMain", "DS"},
	StageGeometry:     {"geometry", "GSMain", "GS"},
	StagePixel:        {"pixel", "PSMain", "PS"},
	StageCompute:      {"compute", "CSMain", "CS"},
}

func (s Stage) String() string {
	if s < StageCount {
		return stageInfo[s].name
	}
	return "stage?"
}

// EntryName is the conventional entry point method name of the stage.
func (s Stage) EntryName() string {
	if s < StageCount {
		return stageInfo[s].entry
	}
	return ""
}

// Prefix is used to name synthesized stage records (`VS_INPUT`, `PS_STREAMS`).
func (s Stage) Prefix() string {
	if s < StageCount {
		return stageInfo[s].short
	}
	return ""
}

// StageOfEntry maps an entry point name back to its stage.
func StageOfEntry(name string) (Stage, bool) {
	for s := range StageCount {
		if stageInfo[s].entry == name {
			return s, true
		}
	}
	return 0, false
}

// Stages lists every stage in pipeline order.
func Stages() []Stage {
	out := make([]Stage, 0, StageCount)
	for s := range StageCount {
		out = append(out, s)
	}
	return out
}
