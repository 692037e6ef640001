package config

// Presets reproduce the configurations of past concatenation runs.
var Presets = map[string]*Config{
	"s12": {
		Run: "concat_stir_snec",
		Profiles: ProfileConfig{
			Dir: "data/snec/mass13/Data", Variables: []string{"temp", "rho", "radius", "ye"},
			MassUnit: "g", TimeEnd: 20.0, Dt: 0.01,
		},
		Tracers: TracerConfig{
			Dir: "data/traj_s12.0_1024", Run: "stir2_oct8_s12.0_alpha1.25",
			Prefix: "_tracer", Extension: ".dat", HeaderLines: 2, MassColumn: 3, Count: 100,
		},
		Join:   JoinConfig{Skip: 1, Extrapolation: "reject", Verify: true},
		Output: OutputConfig{Dir: "data/concat", Template: "{run}_tracer{index}.dat"},
	},
	"s12_coarse": {
		Run: "concat_stir_snec_coarse",
		Profiles: ProfileConfig{
			Dir: "data/snec/mass13/Data", Variables: []string{"temp", "rho"},
			MassUnit: "g", TimeEnd: 20.0, Dt: 0.1,
		},
		Tracers: TracerConfig{
			Dir: "data/traj_s12.0_1024", Run: "stir2_oct8_s12.0_alpha1.25",
			Prefix: "_tracer", Extension: ".dat", HeaderLines: 2, MassColumn: 3, Count: 100,
		},
		Join:   JoinConfig{Skip: 1, Extrapolation: "reject", Verify: true},
		Output: OutputConfig{Dir: "data/concat_coarse", Template: "{run}_tracer{index}.dat"},
	},
	"s12_quicklook": {
		Run: "quicklook",
		Profiles: ProfileConfig{
			Dir: "data/snec/mass13/Data", Variables: []string{"temp"},
			MassUnit: "g", TimeEnd: 2.0, Dt: 0.05,
		},
		Tracers: TracerConfig{
			Dir: "data/traj_s12.0_1024", Run: "stir2_oct8_s12.0_alpha1.25",
			Prefix: "_tracer", Extension: ".dat", HeaderLines: 2, MassColumn: 3, Count: 10,
		},
		Join:   JoinConfig{Skip: 1, Extrapolation: "clamp", Verify: true},
		Output: OutputConfig{Dir: "data/quicklook", Template: "{run}/tracer{index}.dat"},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	cfg.Profiles.Variables = append([]string(nil), p.Profiles.Variables...)
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
