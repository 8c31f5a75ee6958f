// Package priority computes the weighted priority score of a task.
package priority

const (
	MinInput = 1
	MaxInput = 5
)

// Calculate returns urgency*2 + importance*3 - effort with every input
// clamped to [MinInput, MaxInput]. The result lies in [-3, 22].
func Calculate(urgency, importance, effort int) int {
	return Clamp(urgency)*2 + Clamp(importance)*3 - Clamp(effort)
}

// Clamp bounds v to the accepted input range.
func Clamp(v int) int {
	if v < MinInput {
		return MinInput
	}
	if v > MaxInput {
		return MaxInput
	}
	return v
}
