// Package units converts mass coordinates between the unit systems used by
// the two datasets.
package units

import (
	"fmt"
	"strings"
)

// SolarMassGrams is the nominal solar mass in grams (IAU 2015, as tabulated
// by astropy).
const SolarMassGrams = 1.988409870698051e33

// GramToSolarMass converts a mass in grams to solar masses.
const GramToSolarMass = 1 / SolarMassGrams

// grams per unit
var table = map[string]float64{
	"g":    1,
	"kg":   1e3,
	"msun": SolarMassGrams,
}

// Factor returns the multiplier taking a value in unit from to unit to.
// Unit names are case-insensitive.
func Factor(from, to string) (float64, error) {
	f, ok := table[strings.ToLower(from)]
	if !ok {
		return 0, fmt.Errorf("unknown mass unit: %s (known: %s)", from, strings.Join(Known(), ", "))
	}
	t, ok := table[strings.ToLower(to)]
	if !ok {
		return 0, fmt.Errorf("unknown mass unit: %s (known: %s)", to, strings.Join(Known(), ", "))
	}
	if f == t {
		return 1, nil
	}
	return f / t, nil
}

// Known lists the supported unit names.
func Known() []string {
	return []string{"g", "kg", "msun"}
}
