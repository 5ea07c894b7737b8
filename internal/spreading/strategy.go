package spreading

// PropagationStrategy computes how much activation a node passes to each of
// its parents.
type PropagationStrategy interface {
	Amount(upscale, totalActivation float64) float64
}

// UpscaleStrategy passes on a fixed fraction of the node's total activation.
type UpscaleStrategy struct{}

// Amount returns upscale × totalActivation.
func (UpscaleStrategy) Amount(upscale, totalActivation float64) float64 {
	return upscale * totalActivation
}
