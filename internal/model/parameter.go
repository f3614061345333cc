package model

// ParameterMeta holds display metadata and the default threshold for one
// measured parameter. The portal carries this as an explicit mapping from
// column name to metadata; the engine itself is parameter-name-agnostic.
type ParameterMeta struct {
	Name             string   `json:"name" yaml:"name"`
	DisplayName      string   `json:"display_name" yaml:"display_name"`
	Unit             string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	DefaultThreshold *float64 `json:"default_threshold,omitempty" yaml:"default_threshold,omitempty"`
}

// DefaultParameters returns the PhilOCA monitoring parameters used when no
// parameters file is configured.
func DefaultParameters() []ParameterMeta {
	return []ParameterMeta{
		{Name: "pco2", DisplayName: "pCO₂", Unit: "µatm"},
		{Name: "o2conc", DisplayName: "O₂ Concentration", Unit: "µmol/kg"},
		{Name: "temp_ctd", DisplayName: "Temperature (CTD)", Unit: "°C"},
		{Name: "temp_o2", DisplayName: "Temperature (O₂)", Unit: "°C"},
	}
}
