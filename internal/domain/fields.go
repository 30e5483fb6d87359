package domain

// Layer identifies one analysis pass and the group of fields it produces.
type Layer string

const (
	LayerSurface   Layer = "surface"
	LayerStructure Layer = "structure"
)

// Layers lists the analysis layers in execution order.
var Layers = []Layer{LayerSurface, LayerStructure}

func ValidLayer(l string) bool {
	switch Layer(l) {
	case LayerSurface, LayerStructure:
		return true
	}
	return false
}

// FieldMap holds analysis field values keyed by their signal_* name.
type FieldMap map[string]any

// Keys returns the map's keys in canonical field order.
func (m FieldMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for _, f := range AllFields() {
		if _, ok := m[f]; ok {
			keys = append(keys, f)
		}
	}
	return keys
}

// Surface layer: what was observed.
const (
	FieldTitle       = "signal_title"
	FieldSummary     = "signal_summary"
	FieldEnvironment = "signal_environment"
	FieldTemperature = "signal_temperature"
	FieldDensity     = "signal_density"
	FieldActions     = "signal_actions"
	FieldEntities    = "signal_entities"
	FieldTags        = "signal_tags"
)

// Structure layer: the underlying pattern.
const (
	FieldEnergy            = "signal_energy"
	FieldState             = "signal_state"
	FieldOrientation       = "signal_orientation"
	FieldSubstrate         = "signal_substrate"
	FieldOntologicalStates = "signal_ontological_states"
	FieldSymbolicElements  = "signal_symbolic_elements"
	FieldSubsystems        = "signal_subsystems"
	FieldDominantLanguage  = "signal_dominant_language"
)

type fieldSpec struct {
	name  string
	key   string // question key and provider response key
	layer Layer
}

var fieldSpecs = []fieldSpec{
	{FieldTitle, "title", LayerSurface},
	{FieldSummary, "summary", LayerSurface},
	{FieldEnvironment, "environment", LayerSurface},
	{FieldTemperature, "temperature", LayerSurface},
	{FieldDensity, "density", LayerSurface},
	{FieldActions, "actions", LayerSurface},
	{FieldEntities, "entities", LayerSurface},
	{FieldTags, "tags", LayerSurface},
	{FieldEnergy, "energy", LayerStructure},
	{FieldState, "state", LayerStructure},
	{FieldOrientation, "orientation", LayerStructure},
	{FieldSubstrate, "substrate", LayerStructure},
	{FieldOntologicalStates, "ontological_states", LayerStructure},
	{FieldSymbolicElements, "symbolic_elements", LayerStructure},
	{FieldSubsystems, "subsystems", LayerStructure},
	{FieldDominantLanguage, "dominant_language", LayerStructure},
}

var (
	specByName = map[string]fieldSpec{}
	specByKey  = map[Layer]map[string]fieldSpec{}
)

func init() {
	for _, s := range fieldSpecs {
		specByName[s.name] = s
		if specByKey[s.layer] == nil {
			specByKey[s.layer] = map[string]fieldSpec{}
		}
		specByKey[s.layer][s.key] = s
	}
}

// AllFields returns every analysis field name in canonical order.
func AllFields() []string {
	out := make([]string, len(fieldSpecs))
	for i, s := range fieldSpecs {
		out[i] = s.name
	}
	return out
}

// LayerFields returns the field names produced by a layer, in canonical order.
func LayerFields(l Layer) []string {
	var out []string
	for _, s := range fieldSpecs {
		if s.layer == l {
			out = append(out, s.name)
		}
	}
	return out
}

// LayerOf reports which layer produces the named field.
func LayerOf(field string) (Layer, bool) {
	s, ok := specByName[field]
	return s.layer, ok
}

// QuestionKey maps a field name to its question key (signal_title -> title).
func QuestionKey(field string) (string, bool) {
	s, ok := specByName[field]
	return s.key, ok
}

// FieldForKey maps a provider response key back to a field name within a layer.
func FieldForKey(l Layer, key string) (string, bool) {
	s, ok := specByKey[l][key]
	return s.name, ok
}

func ValidField(field string) bool {
	_, ok := specByName[field]
	return ok
}

// UnknownFields returns the requested names that are not analysis fields.
func UnknownFields(fields []string) []string {
	var out []string
	for _, f := range fields {
		if !ValidField(f) {
			out = append(out, f)
		}
	}
	return out
}

// LayersFor returns the layers that must run to produce the requested fields,
// in execution order. Unknown names are ignored.
func LayersFor(fields []string) []Layer {
	need := map[Layer]bool{}
	for _, f := range fields {
		if l, ok := LayerOf(f); ok {
			need[l] = true
		}
	}
	var out []Layer
	for _, l := range Layers {
		if need[l] {
			out = append(out, l)
		}
	}
	return out
}
