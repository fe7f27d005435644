package ai

import (
	"context"
	"errors"
	"math"
	"sync"

	gonnx "github.com/advancedclimatesystems/gonnx"
	"gorgonia.org/tensor"
)

// policyOrders is the fixed output head of the policy network: index i of
// the logit vector corresponds to policyOrders[i]. The list must match the
// training-time ordering exactly.
var policyOrders = []string{
	"train_worker",
	"train_soldier",
	"train_tank",
	"train_air",
	"construct_barracks",
	"construct_factory",
	"construct_airpad",
	"construct_lab",
	"construct_base",
	"research",
	"attack",
	"defend",
}

// numFeatures is the width of the situation feature vector fed to the model.
const numFeatures = 12

// OnnxAdvisor runs a trained policy network (pure-Go ONNX runtime) over the
// situation summary and offers the argmax order with its softmax probability
// as confidence. Inference is deterministic, but the advisor still goes
// through the same validation gate as any other: the model has no notion of
// what is currently affordable.
type OnnxAdvisor struct {
	model *gonnx.Model
	mu    sync.Mutex
}

// NewOnnxAdvisor loads the policy model from the given file.
func NewOnnxAdvisor(path string) (*OnnxAdvisor, error) {
	model, err := gonnx.NewModelFromFile(path)
	if err != nil {
		return nil, err
	}
	return &OnnxAdvisor{model: model}, nil
}

// Suggest encodes the situation, runs the policy, and returns the top order.
func (a *OnnxAdvisor) Suggest(ctx context.Context, sit Situation) (*Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features := encodeSituation(sit)
	in := tensor.New(
		tensor.WithShape(1, numFeatures),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(features),
	)

	a.mu.Lock()
	outputs, err := a.model.Run(gonnx.Tensors{"situation": in})
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out, ok := outputs["order_logits"]
	if !ok {
		return nil, errors.New("ai/onnx: output 'order_logits' not found")
	}
	logits, ok := out.Data().([]float32)
	if !ok || len(logits) < len(policyOrders) {
		return nil, errors.New("ai/onnx: unexpected logit shape")
	}

	best, conf := argmaxSoftmax(logits[:len(policyOrders)])
	return &Suggestion{
		Order:      policyOrders[best],
		Reason:     "policy network",
		Confidence: conf,
	}, nil
}

// encodeSituation flattens a Situation into the model's input layout.
func encodeSituation(sit Situation) []float32 {
	return []float32{
		float32(sit.Tick) / 108000.0, // normalized against a 30-minute match
		float32(sit.Minerals) / 1000.0,
		float32(sit.Gas) / 1000.0,
		float32(sit.Workers) / 24.0,
		float32(sit.Army) / 30.0,
		float32(sit.EnemyArmy) / 30.0,
		float32(sit.Bases) / 4.0,
		float32(sit.EnemyBases) / 4.0,
		float32(sit.ThreatLevel),
		float32(sit.EconomicSat),
		float32(sit.MilitaryAdvantage),
		float32(sit.TechAdvantage),
	}
}

// argmaxSoftmax returns the index of the largest logit and its softmax
// probability.
func argmaxSoftmax(logits []float32) (int, float64) {
	best := 0
	for i := range logits {
		if logits[i] > logits[best] {
			best = i
		}
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v - logits[best]))
	}
	return best, 1.0 / sum
}
