package screener

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"

	"option-screener/src/eventmodels"
	"option-screener/src/eventpubsub"
	"option-screener/src/marketdata"
)

// Supervisor owns the evaluation run: it staggers task starts, ticks every
// live task on a fixed interval so timeouts and readiness checks advance,
// and reports terminal states. Task failures never abort siblings; the
// supervisor just stops ticking a terminal task.
type Supervisor struct {
	wg      *sync.WaitGroup
	cfg     *eventmodels.ScreenerConfigYAML
	gateway *marketdata.Gateway

	mu       sync.Mutex
	tasks    []*SymbolTask
	reported map[*SymbolTask]bool

	done chan struct{}
}

func NewSupervisor(wg *sync.WaitGroup, gateway *marketdata.Gateway, cfg *eventmodels.ScreenerConfigYAML) *Supervisor {
	return &Supervisor{
		wg:       wg,
		cfg:      cfg,
		gateway:  gateway,
		reported: make(map[*SymbolTask]bool),
		done:     make(chan struct{}),
	}
}

// AddSymbol registers a task for one underlying. Must be called before
// Start.
func (s *Supervisor) AddSymbol(symbol eventmodels.StockSymbol, expiry string, noTradingHours bool) *SymbolTask {
	task := NewSymbolTask(symbol, s.gateway, s.cfg, expiry, noTradingHours)

	task.SetOnComplete(func(record *eventmodels.RecommendationRecord) {
		eventpubsub.Publish("Supervisor", eventpubsub.RecommendationCompletedEvent, record)
	})

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	return task
}

func (s *Supervisor) Tasks() []*SymbolTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*SymbolTask, len(s.tasks))
	copy(out, s.tasks)

	return out
}

// Done closes when every task has reached a terminal state.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) Start(ctx context.Context) {
	s.wg.Add(1)

	go s.run(ctx)
}

func (s *Supervisor) run(ctx context.Context) {
	defer s.wg.Done()

	tasks := s.Tasks()
	if len(tasks) == 0 {
		log.Warn("Supervisor: no tasks to run")
		close(s.done)
		return
	}

	// stagger starts so a long watchlist does not burst the service; a
	// courtesy policy, not a correctness requirement
	nextStart := 0
	lastStart := time.Time{}

	ticker := time.NewTicker(s.cfg.TickInterval.ToDuration())
	defer ticker.Stop()

	progressEvery := 10
	tickCount := 0

	for {
		select {
		case <-ticker.C:
			now := time.Now().UTC()

			for nextStart < len(tasks) && now.Sub(lastStart) >= s.cfg.StartStagger.ToDuration() {
				tasks[nextStart].Start(now)
				lastStart = now
				nextStart++
			}

			live := 0
			for _, task := range tasks {
				task.Tick(now)

				state := task.State()
				if state.IsTerminal() {
					s.reportTerminal(task, state, now)
				} else {
					live++
				}
			}

			tickCount++
			if tickCount%progressEvery == 0 {
				log.Infof("Supervisor: %d/%d tasks live, %d quotes active (%d queued), %d lookups active (%d queued)",
					live, len(tasks),
					s.gateway.ActiveCount(eventmodels.RequestKindQuoteSubscription),
					s.gateway.QueuedCount(eventmodels.RequestKindQuoteSubscription),
					s.gateway.ActiveCount(eventmodels.RequestKindContractLookup),
					s.gateway.QueuedCount(eventmodels.RequestKindContractLookup))

				if oldest, ok := s.gateway.OldestActive(); ok {
					log.Infof("Supervisor: oldest in-flight request %d (%s %s), outstanding %s",
						oldest.ID, oldest.Kind, oldest.Target.Description(), now.Sub(oldest.SubmittedAt).Round(time.Millisecond))
				}
			}

			if live == 0 && nextStart == len(tasks) {
				log.Info("Supervisor: all tasks terminal")
				log.Info("\n" + s.StatusTable())
				close(s.done)
				return
			}

		case <-ctx.Done():
			log.Info("Supervisor: context cancelled, releasing all tasks")
			for _, task := range tasks {
				task.Cancel()
			}
			close(s.done)
			return
		}
	}
}

func (s *Supervisor) reportTerminal(task *SymbolTask, state eventmodels.TaskState, now time.Time) {
	// keyed by task identity: a rerun or watchlist duplicate of the same
	// symbol still gets its own terminal event
	s.mu.Lock()
	alreadyReported := s.reported[task]
	s.reported[task] = true
	s.mu.Unlock()

	if alreadyReported {
		return
	}

	log.Infof("Supervisor: task %s terminal: %s", task.Symbol(), state)

	eventpubsub.Publish("Supervisor", eventpubsub.TaskTerminalEvent, &eventmodels.TaskTerminalEvent{
		Symbol: task.Symbol(),
		State:  state,
		Reason: task.FailureReason(),
		At:     now,
	})
}

// StatusTable renders the per-task end state for the console report.
func (s *Supervisor) StatusTable() string {
	display := &strings.Builder{}

	table := tablewriter.NewWriter(display)
	table.SetHeader([]string{"Symbol", "State", "Reason"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, task := range s.Tasks() {
		reason := task.FailureReason()
		if task.State() == eventmodels.TaskStateCompleted {
			record := task.Recommendation()
			reason = fmt.Sprintf("%.2f ... %.2f", record.LowerBoundary, record.UpperBoundary)
		}

		table.Append([]string{task.Symbol().String(), task.State().String(), reason})
	}

	table.Render()

	return display.String()
}
