// Package units converts between the speed units the tracker reports.
package units

// MPSToMPHFactor converts metres per second to miles per hour.
const MPSToMPHFactor = 2.237

// MPSToMPH converts metres per second to miles per hour.
func MPSToMPH(mps float64) float64 {
	return mps * MPSToMPHFactor
}

// MPHToMPS converts miles per hour to metres per second.
func MPHToMPS(mph float64) float64 {
	return mph / MPSToMPHFactor
}

// MPSToKPH converts metres per second to kilometres per hour.
func MPSToKPH(mps float64) float64 {
	return mps * 3.6
}
