package control

import "controlling_fermenter/internal/models"

// Decide returns the desired heater state for one tick.
//
// HEATING always asks for heat. HOLDING applies the deadband around target:
// on below target-band/2, off above target+band/2, otherwise keep heaterOn.
// Every other state keeps the heater off.
func Decide(tempC, targetC, band float64, heaterOn bool, state models.ControlState) bool {
	switch state {
	case models.StateHeating:
		return true
	case models.StateHolding:
		half := band / 2
		switch {
		case tempC < targetC-half:
			return true
		case tempC > targetC+half:
			return false
		default:
			return heaterOn
		}
	default:
		return false
	}
}

// holdReached reports whether heating has brought tempC into the upper part of the band.
func holdReached(tempC, targetC, band float64) bool {
	return tempC >= targetC-band/2
}
