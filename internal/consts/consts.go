package consts

const (
	CHARGE    = 1.6021918e-19 // Elementary charge (C)
	BOLTZMANN = 1.3806226e-23 // Boltzmann constant (J/K)
	KELVIN    = 273.15        // Kelvin temperature (K)
)

// Default simulation temperatures in degC, the values every tutorial passes
// to the simulator.
const (
	DefaultTemp    = 25.0
	DefaultTnom    = 25.0
	DefaultGmin    = 1e-12
	GroundNode     = "0"
	GroundNodeName = "gnd"
)

// ToKelvin converts a temperature in degC to K.
func ToKelvin(celsius float64) float64 {
	return celsius + KELVIN
}

// ThermalVoltage returns kT/q at the given absolute temperature.
func ThermalVoltage(kelvin float64) float64 {
	if kelvin <= 0 {
		kelvin = ToKelvin(DefaultTemp)
	}
	return BOLTZMANN * kelvin / CHARGE
}
