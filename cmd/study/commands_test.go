package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/studyflash-backend/config"
	"github.com/vnkhanh/studyflash-backend/models"
	"github.com/vnkhanh/studyflash-backend/services"
)

type cliFixture struct {
	db       *gorm.DB
	svc      *services.StudyService
	user     models.User
	topic    *models.Topic
	syllabus *models.Syllabus
	info     *models.Flashcard
	mcq      *models.Flashcard
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	db, err := config.OpenDatabase("file:"+filepath.Join(t.TempDir(), "test.db"), logger.Silent)
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &cliFixture{db: db, svc: services.NewStudyService(db)}
	f.user = models.User{Name: "Ada", Email: "ada@example.com"}
	if err := db.Create(&f.user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	ctx := context.Background()
	if f.topic, err = f.svc.CreateTopic(ctx, services.CreateTopicInput{UserID: f.user.ID, Title: "Go"}); err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	if f.syllabus, err = f.svc.CreateSyllabus(ctx, services.CreateSyllabusInput{TopicID: f.topic.ID, Content: "# Go"}); err != nil {
		t.Fatalf("CreateSyllabus: %v", err)
	}
	answer := "The go keyword"
	f.info, err = f.svc.CreateFlashcard(ctx, services.CreateFlashcardInput{
		SyllabusID: f.syllabus.ID, SubtopicID: "goroutines", Type: "info",
		Question: "How do you start a goroutine?", Answer: &answer, Difficulty: "easy",
	})
	if err != nil {
		t.Fatalf("CreateFlashcard info: %v", err)
	}
	correct := 1
	f.mcq, err = f.svc.CreateFlashcard(ctx, services.CreateFlashcardInput{
		SyllabusID: f.syllabus.ID, SubtopicID: "channels", Type: "mcq",
		Question: "Which operator sends on a channel?", Options: []string{"->", "<-"}, CorrectOption: &correct, Difficulty: "medium",
	})
	if err != nil {
		t.Fatalf("CreateFlashcard mcq: %v", err)
	}
	return f
}

func (f *cliFixture) app(input string) (*app, *bytes.Buffer) {
	out := &bytes.Buffer{}
	a := newApp(f.svc, strings.NewReader(input), out)
	// các thẻ mới có due_date = lúc tạo; đẩy đồng hồ lên một chút để chúng đến hạn
	a.clock = func() time.Time { return time.Now().UTC().Add(time.Minute) }
	return a, out
}

func TestRunUnknownCommand(t *testing.T) {
	f := newCLIFixture(t)
	a, _ := f.app("")
	if err := a.run(context.Background(), "stats", nil); !errors.Is(err, errUsage) {
		t.Fatalf("expected errUsage, got %v", err)
	}
}

func TestDueCommand(t *testing.T) {
	f := newCLIFixture(t)
	a, out := f.app("")

	if err := a.run(context.Background(), "due", []string{"--user-id", f.user.ID}); err != nil {
		t.Fatalf("due: %v", err)
	}
	if !strings.Contains(out.String(), "2 thẻ đến hạn") || !strings.Contains(out.String(), f.mcq.ID) {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	if err := a.run(context.Background(), "due", nil); !errors.Is(err, errUsage) {
		t.Errorf("expected errUsage without --user-id, got %v", err)
	}
}

func TestReviewSingleCard(t *testing.T) {
	f := newCLIFixture(t)
	a, out := f.app("")

	args := []string{"-u", f.user.ID, "--card", f.info.ID, "-p", "good", "--time-ms", "900"}
	if err := a.run(context.Background(), "review", args); err != nil {
		t.Fatalf("review: %v", err)
	}
	if !strings.Contains(out.String(), "1 ngày") {
		t.Errorf("unexpected output: %s", out.String())
	}

	var progress models.UserFlashcardProgress
	if err := f.db.First(&progress, "user_id = ? AND flashcard_id = ?", f.user.ID, f.info.ID).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if progress.CorrectCount != 1 || progress.TimeToAnswer == nil || *progress.TimeToAnswer != 900 {
		t.Errorf("unexpected progress %+v", progress)
	}

	if err := a.run(context.Background(), "review", []string{"-u", f.user.ID, "--card", f.info.ID}); !errors.Is(err, errUsage) {
		t.Errorf("expected errUsage without --performance, got %v", err)
	}
}

func TestReviewRejectsOtherUsersCard(t *testing.T) {
	f := newCLIFixture(t)
	stranger := models.User{Name: "Eve", Email: "eve@example.com"}
	if err := f.db.Create(&stranger).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	a, _ := f.app("")

	err := a.run(context.Background(), "review", []string{"-u", stranger.ID, "--card", f.info.ID, "-p", "again"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReviewInteractive(t *testing.T) {
	f := newCLIFixture(t)
	// thẻ info: Enter rồi "good"; thẻ mcq: chọn đáp án 1 (sai) rồi "hard"
	a, out := f.app("\ngood\n1\nhard\n")

	if err := a.run(context.Background(), "review", []string{"-u", f.user.ID}); err != nil {
		t.Fatalf("review: %v", err)
	}
	if !strings.Contains(out.String(), "Đã ôn 2/2 thẻ") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	var mcq models.UserFlashcardProgress
	if err := f.db.First(&mcq, "flashcard_id = ?", f.mcq.ID).Error; err != nil {
		t.Fatalf("load mcq progress: %v", err)
	}
	if mcq.IncorrectCount != 1 || mcq.CorrectCount != 0 {
		t.Errorf("wrong option must count as incorrect, got %+v", mcq)
	}

	var info models.UserFlashcardProgress
	if err := f.db.First(&info, "flashcard_id = ?", f.info.ID).Error; err != nil {
		t.Fatalf("load info progress: %v", err)
	}
	if info.CorrectCount != 1 {
		t.Errorf("expected correct info review, got %+v", info)
	}
}

func TestDeleteTopicCommand(t *testing.T) {
	f := newCLIFixture(t)
	ctx := context.Background()

	a, out := f.app("n\n")
	if err := a.run(ctx, "delete-topic", []string{"-u", f.user.ID, "--id", f.topic.ID}); err != nil {
		t.Fatalf("delete-topic: %v", err)
	}
	if !strings.Contains(out.String(), "Đã hủy") {
		t.Errorf("expected cancellation, got %s", out.String())
	}
	if _, err := f.svc.GetTopic(ctx, f.topic.ID); err != nil {
		t.Fatalf("topic must survive a cancelled delete: %v", err)
	}

	a, _ = f.app("")
	if err := a.run(ctx, "delete-topic", []string{"-u", f.user.ID, "--id", f.topic.ID, "--force"}); err != nil {
		t.Fatalf("delete-topic --force: %v", err)
	}
	if _, err := f.svc.GetTopic(ctx, f.topic.ID); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected topic to be gone, got %v", err)
	}
	var cards int64
	f.db.Model(&models.Flashcard{}).Count(&cards)
	if cards != 0 {
		t.Errorf("expected flashcards to cascade, got %d", cards)
	}
}

func TestAdaptSyllabusCommand(t *testing.T) {
	f := newCLIFixture(t)
	a, out := f.app("# Go, revised\n")

	if err := a.run(context.Background(), "adapt-syllabus", []string{"--id", f.syllabus.ID, "-f", "-"}); err != nil {
		t.Fatalf("adapt-syllabus: %v", err)
	}
	if !strings.Contains(out.String(), "thứ 1") {
		t.Errorf("unexpected output: %s", out.String())
	}

	var stored models.Syllabus
	f.db.First(&stored, "id = ?", f.syllabus.ID)
	if stored.Content != "# Go, revised\n" || stored.AdaptationCount != 1 {
		t.Errorf("unexpected syllabus %+v", stored)
	}
}

func TestTopicCommand(t *testing.T) {
	f := newCLIFixture(t)
	a, out := f.app("")

	if err := a.run(context.Background(), "topic", []string{"--id", f.topic.ID}); err != nil {
		t.Fatalf("topic: %v", err)
	}
	if !strings.Contains(out.String(), "chưa học") || !strings.Contains(out.String(), "0.00%") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}
