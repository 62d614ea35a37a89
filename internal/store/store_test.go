package store

import (
	"path/filepath"
	"testing"
	"time"

	"duewatch/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.CardDueState{},
		&models.CommentRecord{},
		&models.ReminderEvent{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func instant(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad test instant %q: %v", s, err)
	}
	return parsed.UTC()
}

func TestCardStore_GetNeverSeenReturnsNil(t *testing.T) {
	cards := NewCardStore(openTestDB(t))

	state, err := cards.Get("card-x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state != nil {
		t.Fatalf("expected nil for never-seen card, got %+v", state)
	}
}

func TestCardStore_UpsertOverwrites(t *testing.T) {
	cards := NewCardStore(openTestDB(t))

	due := instant(t, "2024-06-01T00:00:00Z")
	changed := instant(t, "2024-05-20T10:00:00Z")
	if err := cards.Upsert(&models.CardDueState{
		CardID:       "card-1",
		CardName:     "Write report",
		DueDate:      &due,
		DueChangedAt: &changed,
		ListName:     "Doing",
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	newDue := instant(t, "2024-06-05T00:00:00Z")
	newChanged := instant(t, "2024-05-25T10:00:00Z")
	if err := cards.Upsert(&models.CardDueState{
		CardID:       "card-1",
		CardName:     "Write final report",
		DueDate:      &newDue,
		DueChangedAt: &newChanged,
		ListName:     "Done",
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	state, err := cards.Get("card-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state == nil {
		t.Fatal("expected stored state")
	}
	if state.CardName != "Write final report" || state.ListName != "Done" {
		t.Fatalf("details not overwritten: %+v", state)
	}
	if state.DueDate == nil || !state.DueDate.Equal(newDue) {
		t.Fatalf("due date not overwritten: %v", state.DueDate)
	}
	if state.DueChangedAt == nil || !state.DueChangedAt.Equal(newChanged) {
		t.Fatalf("change instant not overwritten: %v", state.DueChangedAt)
	}
}

func TestCommentStore_SuppressionFlagFrozenAtIngestion(t *testing.T) {
	comments := NewCommentStore(openTestDB(t))

	changedAt := instant(t, "2024-06-01T10:00:00Z")
	before := instant(t, "2024-06-01T09:59:00Z")
	after := instant(t, "2024-06-01T10:01:00Z")

	if err := comments.Ingest("card-1", "c-before", "checking", before, &changedAt); err != nil {
		t.Fatalf("ingest before: %v", err)
	}
	if err := comments.Ingest("card-1", "c-after", "ack, moved it", after, &changedAt); err != nil {
		t.Fatalf("ingest after: %v", err)
	}

	// Re-ingesting c-after against a later epoch must not recompute the flag.
	laterEpoch := instant(t, "2024-06-02T00:00:00Z")
	if err := comments.Ingest("card-1", "c-after", "ack, moved it", after, &laterEpoch); err != nil {
		t.Fatalf("re-ingest: %v", err)
	}

	records, err := comments.ForCard("card-1")
	if err != nil {
		t.Fatalf("ForCard: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(records))
	}
	// Newest first.
	if records[0].CommentID != "c-after" || !records[0].SuppressedNotification {
		t.Fatalf("comment after change should be suppressing: %+v", records[0])
	}
	if records[1].CommentID != "c-before" || records[1].SuppressedNotification {
		t.Fatalf("comment before change should not be suppressing: %+v", records[1])
	}
}

func TestCommentStore_NoEpochMeansNoSuppression(t *testing.T) {
	comments := NewCommentStore(openTestDB(t))

	at := instant(t, "2024-06-01T10:00:00Z")
	if err := comments.Ingest("card-1", "c-1", "hello", at, nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	records, err := comments.ForCard("card-1")
	if err != nil {
		t.Fatalf("ForCard: %v", err)
	}
	if records[0].SuppressedNotification {
		t.Fatal("comment on a card with no change epoch must not be suppressing")
	}
}

func TestReminderStore_MarkReadIdempotentAndNotFound(t *testing.T) {
	reminders := NewReminderStore(openTestDB(t))

	id, err := reminders.Append(&models.ReminderEvent{
		CardID:   "card-1",
		CardName: "Write report",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := reminders.MarkRead(id); err != nil {
		t.Fatalf("first MarkRead: %v", err)
	}
	if err := reminders.MarkRead(id); err != nil {
		t.Fatalf("second MarkRead should be a no-op: %v", err)
	}

	unread := true
	count, err := reminders.Count(&unread)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no unread reminders, got %d", count)
	}

	if err := reminders.MarkRead(id + 100); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound for never-existed id, got %v", err)
	}
}

func TestReminderStore_ListPaginationAndFilter(t *testing.T) {
	reminders := NewReminderStore(openTestDB(t))

	var readID uint
	for i := 0; i < 15; i++ {
		event := models.ReminderEvent{
			CardID:   "card-1",
			CardName: "Write report",
			IsRead:   i%3 == 0, // 5 suppressed, 10 live
		}
		id, err := reminders.Append(&event)
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if event.IsRead {
			readID = id
		}
	}

	unread := true
	page, err := reminders.List(&unread, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("expected 10 unread reminders, got %d", len(page))
	}
	for _, event := range page {
		if event.IsRead {
			t.Fatalf("unread_only page contains read event %d", event.ID)
		}
		if event.ID == readID {
			t.Fatalf("read event %d leaked into unread page", readID)
		}
	}

	count, err := reminders.Count(&unread)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 10 {
		t.Fatalf("expected unread count 10, got %d", count)
	}

	// Full unbounded range matches the unfiltered count.
	all, err := reminders.List(nil, 100, 0)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	total, err := reminders.Count(nil)
	if err != nil {
		t.Fatalf("Count all: %v", err)
	}
	if int64(len(all)) != total || total != 15 {
		t.Fatalf("count %d does not match list size %d", total, len(all))
	}

	// Newest first: ids descend.
	for i := 1; i < len(all); i++ {
		if all[i-1].ID < all[i].ID {
			t.Fatalf("list not newest first at index %d", i)
		}
	}

	// Offset walks the same ordering without overlap.
	first, err := reminders.List(nil, 5, 0)
	if err != nil {
		t.Fatalf("List page 1: %v", err)
	}
	second, err := reminders.List(nil, 5, 5)
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if first[len(first)-1].ID <= second[0].ID {
		t.Fatalf("pages overlap: %d then %d", first[len(first)-1].ID, second[0].ID)
	}
}
