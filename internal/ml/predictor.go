// Package ml provides the classifier boundary used by the ML-gated
// strategies. Model training and threshold search happen offline; the bot
// only loads the exported artifacts and asks for probabilities.
package ml

// Predictor scores a feature vector and returns the probability of a
// profitable breakout.
type Predictor interface {
	Predict(features []float32) (float32, error)
}
