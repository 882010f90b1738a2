package classify

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/edufilter/internal/classify/validate"
	"github.com/vietddude/edufilter/internal/core/domain"
	"github.com/vietddude/edufilter/internal/metrics"
)

// VideoClassifier classifies one video.
type VideoClassifier interface {
	Classify(ctx context.Context, meta domain.VideoMetadata) domain.ClassificationRecord
}

// outcomeClassifier is implemented by classifiers that can tell a model
// answer from a default record.
type outcomeClassifier interface {
	ClassifyOutcome(ctx context.Context, meta domain.VideoMetadata) (domain.ClassificationRecord, bool)
}

// BatchClassifier fans a batch out to one goroutine per video.
type BatchClassifier struct {
	classifier VideoClassifier
	fallback   validate.Validator
	log        *slog.Logger
}

// NewBatchClassifier creates a batch classifier. fallback supplies the
// default record for a video whose classification panics.
func NewBatchClassifier(classifier VideoClassifier, fallback validate.Validator) *BatchClassifier {
	return &BatchClassifier{
		classifier: classifier,
		fallback:   fallback,
		log:        slog.Default().With("component", "batch_classifier"),
	}
}

// ClassifyBatch classifies every video concurrently and waits for all of
// them. The result has exactly one entry per distinct input id; when an id
// repeats, the later occurrence wins.
func (b *BatchClassifier) ClassifyBatch(ctx context.Context, videos []domain.VideoRequest) map[string]domain.ClassificationRecord {
	metrics.BatchSize.Observe(float64(len(videos)))

	records := make([]domain.ClassificationRecord, len(videos))
	answered := make([]bool, len(videos))

	// Per-video failures never abort siblings, so no errgroup context.
	var g errgroup.Group
	for i, v := range videos {
		g.Go(func() error {
			records[i], answered[i] = b.classifyOne(ctx, v)
			return nil
		})
	}
	_ = g.Wait()

	last := make(map[string]int, len(videos))
	for i, v := range videos {
		last[v.VideoID] = i
	}

	out := make(map[string]domain.ClassificationRecord, len(last))
	for id, i := range last {
		out[id] = records[i]
		outcome := "ok"
		if !answered[i] {
			outcome = "default"
		}
		metrics.ClassificationsTotal.WithLabelValues(string(records[i].Label), outcome).Inc()
	}

	b.log.Debug("Classified batch", "videos", len(videos), "distinct", len(out))
	return out
}

// classifyOne reports answered=false when the record is a default record.
// Classifiers without ClassifyOutcome are trusted.
func (b *BatchClassifier) classifyOne(ctx context.Context, v domain.VideoRequest) (rec domain.ClassificationRecord, answered bool) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Classification panicked", "videoId", v.VideoID, "panic", fmt.Sprint(r))
			rec, answered = b.fallback.Default(ReasonProcessing), false
		}
	}()
	if oc, ok := b.classifier.(outcomeClassifier); ok {
		return oc.ClassifyOutcome(ctx, v.VideoMetadata)
	}
	return b.classifier.Classify(ctx, v.VideoMetadata), true
}
