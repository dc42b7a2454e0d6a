package config

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/studyflash-backend/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenDatabase("file:"+filepath.Join(t.TempDir(), "test.db"), logger.Silent)
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestSQLiteDSN(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{"", "file:dev.db?_foreign_keys=on&_busy_timeout=5000"},
		{"dev.db", "file:dev.db?_foreign_keys=on&_busy_timeout=5000"},
		{"file:dev.db", "file:dev.db?_foreign_keys=on&_busy_timeout=5000"},
		{"file:dev.db?cache=shared", "file:dev.db?cache=shared&_foreign_keys=on&_busy_timeout=5000"},
		{"file:dev.db?_foreign_keys=off", "file:dev.db?_foreign_keys=off&_busy_timeout=5000"},
		{":memory:", ":memory:?_foreign_keys=on&_busy_timeout=5000"},
	}
	for _, tc := range testCases {
		if got := SQLiteDSN(tc.in); got != tc.expected {
			t.Errorf("SQLiteDSN(%q) = %q, expected %q", tc.in, got, tc.expected)
		}
	}
}

func TestMigrateCreatesAllTables(t *testing.T) {
	db := newTestDB(t)
	tables := []string{
		"user", "session", "account", "verification",
		"topics", "syllabi", "flashcards", "user_flashcard_progress", "review_history",
	}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			t.Errorf("expected table %q to exist", table)
		}
	}
}

type fixture struct {
	user      models.User
	topic     models.Topic
	syllabus  models.Syllabus
	flashcard models.Flashcard
	progress  models.UserFlashcardProgress
	review    models.ReviewHistory
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	var f fixture
	f.user = models.User{Name: "Ada", Email: "ada@example.com"}
	mustCreate(t, db, &f.user)
	f.topic = models.Topic{UserID: f.user.ID, Title: "Go"}
	mustCreate(t, db, &f.topic)
	f.syllabus = models.Syllabus{TopicID: f.topic.ID, Content: "# Go"}
	mustCreate(t, db, &f.syllabus)
	f.flashcard = models.Flashcard{
		SyllabusID: f.syllabus.ID,
		SubtopicID: "goroutines",
		Type:       models.FlashcardInfo,
		Question:   "What starts a goroutine?",
		Difficulty: models.DifficultyEasy,
		DueDate:    time.Now().UTC(),
	}
	mustCreate(t, db, &f.flashcard)
	f.progress = models.UserFlashcardProgress{UserID: f.user.ID, FlashcardID: f.flashcard.ID}
	mustCreate(t, db, &f.progress)
	f.review = models.ReviewHistory{
		UserFlashcardProgressID: f.progress.ID,
		Timestamp:               time.Now().UTC(),
		Performance:             models.PerformanceGood,
		TimeTaken:               1200,
		IsCorrect:               true,
	}
	mustCreate(t, db, &f.review)
	return f
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func TestCheckConstraintsRejectUnknownValues(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)

	badType := models.Flashcard{SyllabusID: f.syllabus.ID, SubtopicID: "s", Type: "essay", Question: "q", Difficulty: models.DifficultyEasy, DueDate: time.Now().UTC()}
	if err := db.Create(&badType).Error; err == nil {
		t.Error("expected flashcard with type 'essay' to be rejected")
	}

	badDifficulty := models.Flashcard{SyllabusID: f.syllabus.ID, SubtopicID: "s", Type: models.FlashcardInfo, Question: "q", Difficulty: "extreme", DueDate: time.Now().UTC()}
	if err := db.Create(&badDifficulty).Error; err == nil {
		t.Error("expected flashcard with difficulty 'extreme' to be rejected")
	}

	badPerformance := models.ReviewHistory{UserFlashcardProgressID: f.progress.ID, Timestamp: time.Now().UTC(), Performance: "perfect", TimeTaken: 10}
	if err := db.Create(&badPerformance).Error; err == nil {
		t.Error("expected review with performance 'perfect' to be rejected")
	}

	if n := count(t, db, &models.Flashcard{}); n != 1 {
		t.Errorf("expected 1 flashcard, got %d", n)
	}
	if n := count(t, db, &models.ReviewHistory{}); n != 1 {
		t.Errorf("expected 1 review, got %d", n)
	}
}

func TestProgressIsUniquePerUserAndFlashcard(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)

	dup := models.UserFlashcardProgress{UserID: f.user.ID, FlashcardID: f.flashcard.ID}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatal("expected duplicate (user_id, flashcard_id) to be rejected")
	}

	other := models.User{Name: "Grace", Email: "grace@example.com"}
	mustCreate(t, db, &other)
	mustCreate(t, db, &models.UserFlashcardProgress{UserID: other.ID, FlashcardID: f.flashcard.ID})
}

func TestForeignKeysAreEnforced(t *testing.T) {
	db := newTestDB(t)

	orphan := models.Topic{UserID: "missing-user", Title: "Orphan"}
	if err := db.Create(&orphan).Error; err == nil {
		t.Fatal("expected topic referencing a missing user to be rejected")
	}
}

func TestDeletingTopicCascades(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)

	if err := db.Delete(&models.Topic{}, "id = ?", f.topic.ID).Error; err != nil {
		t.Fatalf("delete topic: %v", err)
	}

	for _, model := range []interface{}{&models.Syllabus{}, &models.Flashcard{}, &models.UserFlashcardProgress{}, &models.ReviewHistory{}} {
		if n := count(t, db, model); n != 0 {
			t.Errorf("expected %T rows to cascade, %d left", model, n)
		}
	}
	if n := count(t, db, &models.User{}); n != 1 {
		t.Errorf("user must survive topic deletion, got %d", n)
	}
}

func TestDeletingUserCascades(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	mustCreate(t, db, &models.Session{UserID: f.user.ID, Token: "tok", ExpiresAt: time.Now().UTC().Add(time.Hour)})
	mustCreate(t, db, &models.Account{UserID: f.user.ID, AccountID: "1", ProviderID: "github"})

	if err := db.Delete(&models.User{}, "id = ?", f.user.ID).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}

	for _, model := range models.All() {
		if n := count(t, db, model); n != 0 {
			t.Errorf("expected no %T rows after deleting the user, got %d", model, n)
		}
	}
}

func TestColumnDefaults(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)

	err := db.Exec(
		"INSERT INTO flashcards (id, syllabus_id, subtopic_id, type, question, difficulty) VALUES (?, ?, ?, ?, ?, ?)",
		"raw-card", f.syllabus.ID, "defaults", "mcq", "Pick one", "medium",
	).Error
	if err != nil {
		t.Fatalf("raw insert: %v", err)
	}

	var card models.Flashcard
	if err := db.First(&card, "id = ?", "raw-card").Error; err != nil {
		t.Fatalf("load card: %v", err)
	}
	if card.Interval != 1 || card.EaseFactor != 2.5 || card.Stage != 0 {
		t.Errorf("unexpected schedule defaults: interval=%v ease=%v stage=%d", card.Interval, card.EaseFactor, card.Stage)
	}
	if card.DueDate.IsZero() || card.CreatedAt.IsZero() {
		t.Errorf("expected timestamps to default, got due=%v created=%v", card.DueDate, card.CreatedAt)
	}
	if card.Options != nil || card.Answer != nil || card.CorrectOption != nil {
		t.Errorf("expected optional columns to be NULL")
	}

	var topic models.Topic
	if err := db.First(&topic, "id = ?", f.topic.ID).Error; err != nil {
		t.Fatalf("load topic: %v", err)
	}
	if topic.ProficiencyScore != 0 || topic.LastStudied != nil {
		t.Errorf("unexpected topic defaults: %+v", topic)
	}

	var progress models.UserFlashcardProgress
	if err := db.First(&progress, "id = ?", f.progress.ID).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if progress.CorrectCount != 0 || progress.IncorrectCount != 0 || progress.Confidence != 0 || progress.Mastered {
		t.Errorf("unexpected progress defaults: %+v", progress)
	}
}

func TestFlashcardOptionsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)

	correct := 1
	card := models.Flashcard{
		SyllabusID:    f.syllabus.ID,
		SubtopicID:    "channels",
		Type:          models.FlashcardMCQ,
		Question:      "Which keyword sends on a channel?",
		Difficulty:    models.DifficultyMedium,
		CorrectOption: &correct,
		DueDate:       time.Now().UTC(),
	}
	opts := datatypes.JSONSlice[string]{"go", "<-", "chan"}
	card.Options = &opts
	mustCreate(t, db, &card)

	var loaded models.Flashcard
	if err := db.First(&loaded, "id = ?", card.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Options == nil || len(*loaded.Options) != 3 || (*loaded.Options)[1] != "<-" {
		t.Fatalf("unexpected options %v", loaded.Options)
	}
}
