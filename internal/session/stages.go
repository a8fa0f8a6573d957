package session

import (
	"context"
	"time"
)

// DefaultStageLabels is the cosmetic sequence shown while processing runs.
// The labels do not reflect backend progress.
var DefaultStageLabels = []string{
	"Parsing file",
	"Cleaning data",
	"Analyzing patterns",
	"Detecting anomalies",
	"Generating visualizations",
}

// DefaultStageDelay is the pause between cosmetic stage labels.
const DefaultStageDelay = 800 * time.Millisecond

// Stages is a decorative label sequence, independent of any request.
type Stages struct {
	Labels []string
	Delay  time.Duration
}

// Play emits each label in order, waiting Delay between them, and then holds
// the last label until ctx is done. It returns early when ctx is cancelled.
func (s Stages) Play(ctx context.Context, emit func(label string)) error {
	for i, label := range s.Labels {
		if ctx.Err() != nil {
			return nil
		}
		emit(label)
		if i == len(s.Labels)-1 {
			break
		}
		t := time.NewTimer(s.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
	<-ctx.Done()
	return nil
}
