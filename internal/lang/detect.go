package lang

import (
	"strings"

	"github.com/pemistahl/lingua-go"

	"recoagent/internal/config"
)

// Detector guesses the dominant language of a user message. The top guess is
// accepted only above the configured confidence threshold; below it the
// default language applies, and when the classifier cannot score the input at
// all the failure language applies instead.
type Detector struct {
	inner       lingua.LanguageDetector
	threshold   float64
	defaultLang string
	failureLang string
}

// candidateLanguages bounds the classifier to the languages the agent is
// expected to serve; scoring all of lingua's languages is slow and noisier
// on short inputs.
var candidateLanguages = []lingua.Language{
	lingua.English,
	lingua.French,
	lingua.Spanish,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Arabic,
}

// NewDetector builds a detector from the detection configuration.
func NewDetector(cfg config.DetectionConfig) *Detector {
	inner := lingua.NewLanguageDetectorBuilder().
		FromLanguages(candidateLanguages...).
		Build()
	return &Detector{
		inner:       inner,
		threshold:   cfg.ConfidenceThreshold,
		defaultLang: cfg.DefaultLanguage,
		failureLang: cfg.FailureLanguage,
	}
}

// Detect returns the ISO 639-1 code of the dominant language of text.
func (d *Detector) Detect(text string) string {
	values := d.inner.ComputeLanguageConfidenceValues(text)
	return d.pick(values)
}

func (d *Detector) pick(values []lingua.ConfidenceValue) string {
	if len(values) == 0 || values[0].Value() <= 0 {
		return d.failureLang
	}
	top := values[0]
	if top.Value() > d.threshold {
		return strings.ToLower(top.Language().IsoCode639_1().String())
	}
	return d.defaultLang
}
