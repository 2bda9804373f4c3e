// Package clip implements the local zero-shot detector backend on the two
// CLIP towers exported to ONNX. Text embeddings for the whole phrase
// vocabulary are computed once at construction; each Detect call only runs
// the image tower.
package clip

import (
	"context"
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"go.uber.org/zap"

	"github.com/fieldstash/toolscout/internal/domain/detect"
)

const backendName = "clip"

// Adapter is a Detector backed by local CLIP inference.
type Adapter struct {
	towers     *towers
	textEmbeds [][]float32
	threshold  float64
	logger     *zap.Logger
}

// New loads the tower sessions and the tokenizer from modelDir and
// precomputes the phrase embeddings. Construction is the expensive part;
// if it fails the backend should be left out entirely rather than retried.
func New(modelDir, tokenizerPath string, threshold float64, logger *zap.Logger) (*Adapter, error) {
	t, err := newTowers(modelDir)
	if err != nil {
		return nil, fmt.Errorf("clip: %w", err)
	}

	tk, err := pretrained.FromFile(tokenizerPath)
	if err != nil {
		t.close()
		return nil, fmt.Errorf("clip: load tokenizer: %w", err)
	}

	phrases := allPhrases()
	inputIDs, attentionMask, err := encodePhrases(tk, phrases)
	if err != nil {
		t.close()
		return nil, fmt.Errorf("clip: %w", err)
	}

	embeds, err := t.embedText(inputIDs, attentionMask, int64(len(phrases)))
	if err != nil {
		t.close()
		return nil, fmt.Errorf("clip: embed vocabulary: %w", err)
	}

	logger.Info("clip backend ready",
		zap.Int("labels", len(toolVocabulary)),
		zap.Int("phrases", len(phrases)))

	return &Adapter{
		towers:     t,
		textEmbeds: embeds,
		threshold:  threshold,
		logger:     logger,
	}, nil
}

// Name implements detect.Detector.
func (a *Adapter) Name() string { return backendName }

// Available implements detect.Detector.
func (a *Adapter) Available() bool { return a != nil && a.towers != nil }

// Detect scores the image against the phrase vocabulary. Inference itself
// is not interruptible, so cancellation is checked before the session run.
func (a *Adapter) Detect(ctx context.Context, image []byte) detect.Outcome {
	if err := ctx.Err(); err != nil {
		return detect.DegradedOutcome(backendName, "cancelled before inference")
	}

	pixels, err := preprocess(image)
	if err != nil {
		return detect.DegradedOutcome(backendName, fmt.Sprintf("preprocess: %v", err))
	}

	imageVec, err := a.towers.embedImage(pixels)
	if err != nil {
		a.logger.Warn("clip image inference failed", zap.Error(err))
		return detect.DegradedOutcome(backendName, "image inference failed")
	}

	scores := make([]float64, len(a.textEmbeds))
	for i, textVec := range a.textEmbeds {
		scores[i] = logitScale * cosine(imageVec, textVec)
	}
	labels, confidences := reduceToLabels(
		softmax(scores), toolVocabulary, len(phrasingTemplates), a.threshold)

	observations := make([]detect.Observation, 0, len(labels))
	for i, label := range labels {
		obs, err := detect.NewObservation(label, confidences[i])
		if err != nil {
			continue
		}
		observations = append(observations, obs)
	}
	return detect.NewOutcome(backendName, observations)
}

// Close releases the ONNX sessions.
func (a *Adapter) Close() {
	if a.towers != nil {
		a.towers.close()
	}
}

func allPhrases() []string {
	phrases := make([]string, 0, len(toolVocabulary)*len(phrasingTemplates))
	for _, label := range toolVocabulary {
		for _, tmpl := range phrasingTemplates {
			phrases = append(phrases, fmt.Sprintf(tmpl, label))
		}
	}
	return phrases
}

// encodePhrases tokenizes every phrase and packs the ids into flat slices
// padded to the fixed CLIP context length.
func encodePhrases(tk *tokenizer.Tokenizer, phrases []string) (inputIDs, attentionMask []int64, err error) {
	n := len(phrases)
	inputIDs = make([]int64, n*contextLength)
	attentionMask = make([]int64, n*contextLength)

	for i, phrase := range phrases {
		enc, err := tk.EncodeSingle(phrase, true)
		if err != nil {
			return nil, nil, fmt.Errorf("tokenize %q: %w", phrase, err)
		}
		ids := enc.Ids
		if len(ids) > contextLength {
			ids = ids[:contextLength]
		}
		offset := i * contextLength
		for j, id := range ids {
			inputIDs[offset+j] = int64(id)
			attentionMask[offset+j] = 1
		}
	}
	return inputIDs, attentionMask, nil
}
