package monitor

import (
	"context"
	"time"

	"duewatch/internal/models"
	"duewatch/internal/store"
	"duewatch/internal/timeutil"

	"go.uber.org/zap"
)

// Source is the external data-source collaborator. All three reads may block
// or fail independently per card; the monitor isolates those faults.
type Source interface {
	FetchAllCards(ctx context.Context) ([]models.TrelloCard, error)
	FetchDueChangeInstant(ctx context.Context, cardID string) (*time.Time, error)
	FetchComments(ctx context.Context, cardID string) ([]models.TrelloComment, error)
	FetchListName(ctx context.Context, listID string) (string, error)
}

// Config is the explicit configuration handed to the monitor so the core
// stays testable without environment coupling.
type Config struct {
	BoardID      string
	PollInterval time.Duration
}

// Monitor runs the reconciliation loop: one sequential pass over the board's
// cards per tick, comparing observed due dates against stored state and
// appending to the reminder ledger.
type Monitor struct {
	source    Source
	cards     *store.CardStore
	comments  *store.CommentStore
	reminders *store.ReminderStore
	cfg       Config
	kick      chan struct{}

	// now is swappable so cycle wall-clock fallbacks are testable.
	now func() time.Time
}

func New(source Source, cards *store.CardStore, comments *store.CommentStore, reminders *store.ReminderStore, cfg Config) *Monitor {
	return &Monitor{
		source:    source,
		cards:     cards,
		comments:  comments,
		reminders: reminders,
		cfg:       cfg,
		kick:      make(chan struct{}, 1),
		now:       time.Now,
	}
}

// Start launches the polling loop. It runs one immediate cycle, then ticks on
// the configured interval until the context is cancelled. The interval itself
// is the backoff after a failed cycle.
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

// Kick requests an immediate cycle (the dashboard's manual sync). Non-blocking;
// a cycle already pending absorbs the request.
func (m *Monitor) Kick() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	zap.L().Info("Starting board monitor",
		zap.String("boardID", m.cfg.BoardID),
		zap.Duration("interval", m.cfg.PollInterval))

	m.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Board monitor stopped")
			return
		case <-ticker.C:
			m.cycle(ctx)
		case <-m.kick:
			m.cycle(ctx)
		}
	}
}

func (m *Monitor) cycle(ctx context.Context) {
	if err := m.RunCycle(ctx); err != nil {
		zap.L().Warn("Reconciliation cycle failed; retrying on next interval", zap.Error(err))
	}
}

// RunCycle performs one full reconciliation pass. A failure fetching the
// board snapshot aborts the cycle; a failure on a single card is logged and
// skipped so it never blocks the rest of the board.
func (m *Monitor) RunCycle(ctx context.Context) error {
	cards, err := m.source.FetchAllCards(ctx)
	if err != nil {
		return err
	}
	zap.L().Debug("Fetched board snapshot", zap.Int("cards", len(cards)))

	for _, card := range cards {
		if err := m.processCard(ctx, card); err != nil {
			zap.L().Warn("Skipping card after fault",
				zap.String("cardID", card.ID),
				zap.String("cardName", card.Name),
				zap.Error(err))
		}
	}
	return nil
}

func (m *Monitor) processCard(ctx context.Context, card models.TrelloCard) error {
	observed, err := timeutil.ParseOptional(card.Due)
	if err != nil {
		// Unparsable due date: skip this card, never fabricate a transition.
		return err
	}

	stored, err := m.cards.Get(card.ID)
	if err != nil {
		return err
	}

	verdict := Classify(stored, observed)

	state := models.CardDueState{
		CardID:      card.ID,
		CardName:    card.Name,
		Description: card.Description,
		URL:         card.URL,
		ListName:    m.lookupListName(ctx, card.ListID, stored),
	}

	if !verdict.IsTransition() {
		// Name/detail-only refresh: due date and change instant untouched.
		if stored != nil {
			state.DueDate = stored.DueDate
			state.DueChangedAt = stored.DueChangedAt
		}
		if err := m.cards.Upsert(&state); err != nil {
			return err
		}
		m.refreshComments(ctx, card.ID, state.DueChangedAt)
		return nil
	}

	changedAt, authoritative := m.resolveChangeInstant(ctx, card.ID)

	latestComment := m.refreshComments(ctx, card.ID, &changedAt)
	suppressed := ShouldSuppress(latestComment, changedAt)

	var oldDue *time.Time
	if stored != nil {
		oldDue = stored.DueDate
	}
	event := models.ReminderEvent{
		CardID:    card.ID,
		CardName:  card.Name,
		OldDue:    oldDue,
		NewDue:    observed,
		CreatedAt: m.now().UTC(),
		IsRead:    suppressed,
	}
	id, err := m.reminders.Append(&event)
	if err != nil {
		return err
	}

	state.DueDate = observed
	state.DueChangedAt = &changedAt
	if err := m.cards.Upsert(&state); err != nil {
		return err
	}

	zap.L().Info("Due date transition recorded",
		zap.String("cardID", card.ID),
		zap.String("cardName", card.Name),
		zap.String("verdict", verdict.String()),
		zap.Uint("reminderID", id),
		zap.Bool("suppressed", suppressed),
		zap.Bool("authoritativeInstant", authoritative))
	return nil
}

// resolveChangeInstant prefers the remote system's own record of when the
// edit happened. When that lookup fails or has nothing, the cycle wall clock
// stands in: precision is traded for availability, and the returned flag
// tells callers which source won.
func (m *Monitor) resolveChangeInstant(ctx context.Context, cardID string) (time.Time, bool) {
	instant, err := m.source.FetchDueChangeInstant(ctx, cardID)
	if err != nil {
		zap.L().Warn("Change-history lookup failed; falling back to wall clock",
			zap.String("cardID", cardID), zap.Error(err))
		return m.now().UTC(), false
	}
	if instant == nil {
		return m.now().UTC(), false
	}
	return instant.UTC(), true
}

// refreshComments pulls the card's comment stream, ingests each comment
// against the given due-date epoch, and returns the latest parseable comment
// instant. Fetch or parse faults degrade to "no comment activity" so a
// reminder is delivered rather than silently dropped.
func (m *Monitor) refreshComments(ctx context.Context, cardID string, dueChangedAt *time.Time) *time.Time {
	comments, err := m.source.FetchComments(ctx, cardID)
	if err != nil {
		zap.L().Warn("Comment lookup failed; treating as no activity",
			zap.String("cardID", cardID), zap.Error(err))
		return nil
	}

	var latest *time.Time
	for _, c := range comments {
		createdAt, err := timeutil.Parse(c.CreatedAt)
		if err != nil {
			zap.L().Warn("Skipping comment with malformed timestamp",
				zap.String("commentID", c.CommentID), zap.Error(err))
			continue
		}
		if err := m.comments.Ingest(cardID, c.CommentID, c.Text, createdAt, dueChangedAt); err != nil {
			zap.L().Warn("Failed to persist comment",
				zap.String("commentID", c.CommentID), zap.Error(err))
			continue
		}
		if latest == nil || createdAt.After(*latest) {
			t := createdAt
			latest = &t
		}
	}
	return latest
}

func (m *Monitor) lookupListName(ctx context.Context, listID string, stored *models.CardDueState) string {
	if listID == "" {
		return "Unknown"
	}
	name, err := m.source.FetchListName(ctx, listID)
	if err != nil {
		// Keep whatever we knew before rather than blanking the column.
		if stored != nil && stored.ListName != "" {
			return stored.ListName
		}
		return "Unknown"
	}
	return name
}
