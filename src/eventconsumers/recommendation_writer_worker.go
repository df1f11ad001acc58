package eventconsumers

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"option-screener/src/eventmodels"
	"option-screener/src/eventpubsub"
	"option-screener/src/eventservices"
)

// RecommendationWriterWorker accumulates recommendation records off the bus
// and writes the CSV/JSON reports when the run ends.
type RecommendationWriterWorker struct {
	wg     *sync.WaitGroup
	store  *eventmodels.RecommendationStore
	outDir string
	files  []string
}

func NewRecommendationWriterWorker(wg *sync.WaitGroup, outDir string) *RecommendationWriterWorker {
	return &RecommendationWriterWorker{
		wg:     wg,
		store:  eventmodels.NewRecommendationStore(),
		outDir: outDir,
	}
}

func (w *RecommendationWriterWorker) Store() *eventmodels.RecommendationStore {
	return w.store
}

func (w *RecommendationWriterWorker) handleRecommendation(record *eventmodels.RecommendationRecord) {
	w.store.Add(record)

	fmt.Println(record.String())
}

func (w *RecommendationWriterWorker) handleTerminal(event *eventmodels.TaskTerminalEvent) {
	if event.State == eventmodels.TaskStateCompleted {
		return
	}

	log.Infof("RecommendationWriterWorker: %s ended without recommendation: %s (%s)", event.Symbol, event.State, event.Reason)
}

// Flush writes every accumulated record. Call after the supervisor reports
// all tasks terminal and the bus has drained.
func (w *RecommendationWriterWorker) Flush() error {
	records := w.store.All()
	if len(records) == 0 {
		log.Info("RecommendationWriterWorker: nothing to export")
		return nil
	}

	files, err := eventservices.ExportRecommendations(records, w.outDir)
	if err != nil {
		return fmt.Errorf("RecommendationWriterWorker:Flush(): failed to export recommendations: %w", err)
	}

	for _, f := range files {
		log.Infof("RecommendationWriterWorker: wrote %s", f)
	}

	w.files = files

	return nil
}

// Files lists the report paths written by the last Flush.
func (w *RecommendationWriterWorker) Files() []string {
	return w.files
}

func (w *RecommendationWriterWorker) Start(ctx context.Context) {
	w.wg.Add(1)

	if err := eventpubsub.Subscribe("RecommendationWriterWorker", eventpubsub.RecommendationCompletedEvent, w.handleRecommendation); err != nil {
		log.Errorf("RecommendationWriterWorker: failed to subscribe: %v", err)
	}

	if err := eventpubsub.Subscribe("RecommendationWriterWorker", eventpubsub.TaskTerminalEvent, w.handleTerminal); err != nil {
		log.Errorf("RecommendationWriterWorker: failed to subscribe: %v", err)
	}

	go func() {
		defer w.wg.Done()

		<-ctx.Done()

		if err := eventpubsub.Unsubscribe(eventpubsub.RecommendationCompletedEvent, w.handleRecommendation); err != nil {
			log.Errorf("RecommendationWriterWorker: failed to unsubscribe from %s: %v", eventpubsub.RecommendationCompletedEvent, err)
		}

		if err := eventpubsub.Unsubscribe(eventpubsub.TaskTerminalEvent, w.handleTerminal); err != nil {
			log.Errorf("RecommendationWriterWorker: failed to unsubscribe from %s: %v", eventpubsub.TaskTerminalEvent, err)
		}

		log.Info("stopping RecommendationWriterWorker consumer")
	}()
}
