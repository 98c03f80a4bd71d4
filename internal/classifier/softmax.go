package classifier

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"quantshield/internal/domain"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

// softmaxClassifier fits a multinomial logistic regression by batch
// gradient descent. Weights are seeded from a fixed source, so a fit over
// the same examples with the same options reproduces exactly.
type softmaxClassifier struct {
	seed         int64
	learningRate float64
	iterations   int
	l2Penalty    float64
}

func newSoftmaxClassifier(opts Options) *softmaxClassifier {
	c := &softmaxClassifier{
		seed:         opts.Seed,
		learningRate: opts.LearningRate,
		iterations:   opts.Iterations,
		l2Penalty:    opts.L2Penalty,
	}
	if c.learningRate <= 0 {
		c.learningRate = 0.1
	}
	if c.iterations <= 0 {
		c.iterations = 2000
	}
	return c
}

// softmaxParams is the opaque parameter blob stored inside the artifact.
// Means/Stdevs fold the feature standardization into the model so the
// serving path never needs the training data.
type softmaxParams struct {
	Weights []float64 `msgpack:"weights"` // (numFeatures+1) x numClasses, row major
	Rows    int       `msgpack:"rows"`
	Cols    int       `msgpack:"cols"`
	Means   []float64 `msgpack:"means"`
	Stdevs  []float64 `msgpack:"stdevs"`
}

func (c *softmaxClassifier) Fit(examples []domain.LabeledExample) (*TrainedModel, error) {
	encoding := labelEncoding()
	if err := checkLabelCoverage(examples, encoding); err != nil {
		return nil, err
	}

	numFeatures := len(domain.FeatureNames())
	numClasses := len(encoding)
	n := len(examples)

	means, stdevs := standardization(examples, numFeatures)

	// design matrix with a trailing bias column
	x := mat.NewDense(n, numFeatures+1, nil)
	y := mat.NewDense(n, numClasses, nil)
	for i, ex := range examples {
		values := ex.Features.Values()
		for j := 0; j < numFeatures; j++ {
			x.Set(i, j, (values[j]-means[j])/stdevs[j])
		}
		x.Set(i, numFeatures, 1)
		y.Set(i, encoding[ex.Label], 1)
	}

	rng := rand.New(rand.NewSource(c.seed))
	w := mat.NewDense(numFeatures+1, numClasses, nil)
	for i := 0; i < numFeatures+1; i++ {
		for j := 0; j < numClasses; j++ {
			w.Set(i, j, rng.NormFloat64()*0.01)
		}
	}

	var logits, probs, diff, grad mat.Dense
	for iter := 0; iter < c.iterations; iter++ {
		logits.Mul(x, w)
		softmaxRows(&probs, &logits)

		diff.Sub(&probs, y)
		grad.Mul(x.T(), &diff)
		grad.Scale(1/float64(n), &grad)

		if c.l2Penalty > 0 {
			// keep the bias row out of the penalty
			for i := 0; i < numFeatures; i++ {
				for j := 0; j < numClasses; j++ {
					grad.Set(i, j, grad.At(i, j)+c.l2Penalty*w.At(i, j))
				}
			}
		}

		grad.Scale(c.learningRate, &grad)
		w.Sub(w, &grad)
	}

	params := softmaxParams{
		Weights: append([]float64{}, w.RawMatrix().Data...),
		Rows:    numFeatures + 1,
		Cols:    numClasses,
		Means:   means,
		Stdevs:  stdevs,
	}
	blob, err := msgpack.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode classifier parameters: %w", err)
	}

	return &TrainedModel{
		SchemaVersion: SchemaVersion,
		Algorithm:     AlgorithmSoftmax,
		FeatureNames:  domain.FeatureNames(),
		LabelEncoding: encoding,
		Parameters:    blob,
	}, nil
}

func (c *softmaxClassifier) Predict(model *TrainedModel, features domain.FeatureVector) (*domain.PredictionResult, error) {
	if err := checkSchema(model); err != nil {
		return nil, err
	}
	if model.Algorithm != AlgorithmSoftmax {
		return nil, fmt.Errorf("model algorithm %q cannot be served by a softmax classifier", model.Algorithm)
	}

	var params softmaxParams
	if err := msgpack.Unmarshal(model.Parameters, &params); err != nil {
		return nil, fmt.Errorf("failed to decode classifier parameters: %w", err)
	}

	values := features.Values()
	logits := make([]float64, params.Cols)
	for j := 0; j < params.Cols; j++ {
		z := params.Weights[(params.Rows-1)*params.Cols+j] // bias row
		for i := 0; i < params.Rows-1; i++ {
			standardized := (values[i] - params.Means[i]) / params.Stdevs[i]
			z += params.Weights[i*params.Cols+j] * standardized
		}
		logits[j] = z
	}

	probs := softmaxVector(logits)

	// invert the stored encoding so we report classes by name
	byCode := make([]domain.RiskClass, len(model.LabelEncoding))
	for class, code := range model.LabelEncoding {
		byCode[code] = class
	}

	best := 0
	probabilities := map[domain.RiskClass]float64{}
	for code, p := range probs {
		probabilities[byCode[code]] = p
		if p > probs[best] {
			best = code
		}
	}

	return &domain.PredictionResult{
		Class:         byCode[best],
		Features:      features,
		Probabilities: probabilities,
	}, nil
}

func checkLabelCoverage(examples []domain.LabeledExample, encoding map[domain.RiskClass]int) error {
	seen := map[domain.RiskClass]bool{}
	for _, ex := range examples {
		seen[ex.Label] = true
	}

	classes := make([]domain.RiskClass, 0, len(encoding))
	for class := range encoding {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		return encoding[classes[i]] < encoding[classes[j]]
	})

	for _, class := range classes {
		if !seen[class] {
			return domain.InsufficientLabelsError{MissingClass: class}
		}
	}
	return nil
}

func standardization(examples []domain.LabeledExample, numFeatures int) (means, stdevs []float64) {
	n := float64(len(examples))
	means = make([]float64, numFeatures)
	stdevs = make([]float64, numFeatures)

	for _, ex := range examples {
		for j, v := range ex.Features.Values() {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, ex := range examples {
		for j, v := range ex.Features.Values() {
			stdevs[j] += (v - means[j]) * (v - means[j])
		}
	}
	for j := range stdevs {
		stdevs[j] = math.Sqrt(stdevs[j] / n)
		if stdevs[j] == 0 {
			stdevs[j] = 1
		}
	}
	return means, stdevs
}

func softmaxRows(dst, src *mat.Dense) {
	rows, cols := src.Dims()
	dst.CloneFrom(src)
	for i := 0; i < rows; i++ {
		maxLogit := math.Inf(-1)
		for j := 0; j < cols; j++ {
			if src.At(i, j) > maxLogit {
				maxLogit = src.At(i, j)
			}
		}
		sum := 0.0
		for j := 0; j < cols; j++ {
			e := math.Exp(src.At(i, j) - maxLogit)
			dst.Set(i, j, e)
			sum += e
		}
		for j := 0; j < cols; j++ {
			dst.Set(i, j, dst.At(i, j)/sum)
		}
	}
}

func softmaxVector(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, z := range logits {
		if z > maxLogit {
			maxLogit = z
		}
	}
	sum := 0.0
	out := make([]float64, len(logits))
	for i, z := range logits {
		out[i] = math.Exp(z - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
