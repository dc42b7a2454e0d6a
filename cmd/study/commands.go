package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/vnkhanh/studyflash-backend/models"
	"github.com/vnkhanh/studyflash-backend/services"
)

var errUsage = errors.New("invalid usage")

type command struct {
	summary string
	run     func(a *app, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"due":            {"list flashcards due for review", (*app).due},
	"review":         {"review one card (--card) or every due card interactively", (*app).review},
	"delete-topic":   {"delete a topic with its syllabi, cards and progress", (*app).deleteTopic},
	"adapt-syllabus": {"replace the content of a syllabus", (*app).adaptSyllabus},
	"topic":          {"show a topic and its proficiency", (*app).topic},
}

func commandSummary() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %-16s %s\n", name, commands[name].summary)
	}
	return b.String()
}

type app struct {
	svc   *services.StudyService
	in    *bufio.Reader
	out   io.Writer
	clock func() time.Time
}

func newApp(svc *services.StudyService, in io.Reader, out io.Writer) *app {
	return &app{
		svc:   svc,
		in:    bufio.NewReader(in),
		out:   out,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

func (a *app) run(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	return cmd.run(a, ctx, args)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func requireFlag(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: --%s is required", errUsage, name)
	}
	return nil
}

func (a *app) prompt(label string) string {
	fmt.Fprint(a.out, label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// due in bảng các thẻ đến hạn của user.
func (a *app) due(ctx context.Context, args []string) error {
	fs := newFlagSet("due")
	userID := fs.StringP("user-id", "u", "", "owner of the cards")
	limit := fs.IntP("limit", "n", 20, "maximum number of cards")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("user-id", *userID); err != nil {
		return err
	}

	cards, err := a.svc.DueFlashcards(ctx, *userID, a.clock(), *limit)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Fprintln(a.out, "Không có thẻ nào đến hạn.")
		return nil
	}

	fmt.Fprintf(a.out, "%d thẻ đến hạn:\n\n", len(cards))
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tType\tDifficulty\tDue\tQuestion")
	for _, card := range cards {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", card.ID, card.Type, card.Difficulty, card.DueDate.Format("2006-01-02"), card.Question)
	}
	return w.Flush()
}

// review ghi một lần ôn cho --card, hoặc hỏi lần lượt từng thẻ đến hạn khi không có --card.
func (a *app) review(ctx context.Context, args []string) error {
	fs := newFlagSet("review")
	userID := fs.StringP("user-id", "u", "", "reviewer, must own the cards")
	cardID := fs.StringP("card", "c", "", "flashcard id to review")
	performance := fs.StringP("performance", "p", "", "again, hard, good or easy (with --card)")
	incorrect := fs.Bool("incorrect", false, "mark the answer as wrong (with --card)")
	timeTaken := fs.Int("time-ms", 0, "time taken to answer in milliseconds (with --card)")
	limit := fs.IntP("limit", "n", 20, "maximum number of due cards in interactive mode")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("user-id", *userID); err != nil {
		return err
	}

	if *cardID != "" {
		if err := requireFlag("performance", *performance); err != nil {
			return err
		}
		result, err := a.svc.RecordReview(ctx, services.RecordReviewInput{
			UserID:      *userID,
			FlashcardID: *cardID,
			Performance: *performance,
			TimeTaken:   *timeTaken,
			IsCorrect:   !*incorrect && *performance != string(models.PerformanceAgain),
		})
		if err != nil {
			return err
		}
		a.printOutcome(result)
		return nil
	}

	cards, err := a.svc.DueFlashcards(ctx, *userID, a.clock(), *limit)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Fprintln(a.out, "Không có thẻ nào đến hạn.")
		return nil
	}

	reviewed := 0
	for i, card := range cards {
		fmt.Fprintf(a.out, "\n[%d/%d] %s\n", i+1, len(cards), card.Question)
		started := a.clock()

		isCorrect := true
		if card.Type == models.FlashcardMCQ && card.Options != nil && card.CorrectOption != nil {
			for j, option := range *card.Options {
				fmt.Fprintf(a.out, "  %d) %s\n", j+1, option)
			}
			choice, err := strconv.Atoi(a.prompt("Đáp án: "))
			isCorrect = err == nil && choice-1 == *card.CorrectOption
			fmt.Fprintf(a.out, "Đáp án đúng: %s\n", (*card.Options)[*card.CorrectOption])
		} else {
			a.prompt("Nhấn Enter để xem đáp án...")
			if card.Answer != nil {
				fmt.Fprintf(a.out, "Đáp án: %s\n", *card.Answer)
			}
		}

		answer := a.prompt("Tự đánh giá (again/hard/good/easy, bỏ trống để bỏ qua): ")
		if answer == "" {
			continue
		}
		perf := models.Performance(strings.ToLower(answer))
		if !perf.Valid() {
			fmt.Fprintln(a.out, "Giá trị không hợp lệ, bỏ qua thẻ này.")
			continue
		}
		if perf == models.PerformanceAgain {
			isCorrect = false
		}

		result, err := a.svc.RecordReview(ctx, services.RecordReviewInput{
			UserID:      *userID,
			FlashcardID: card.ID,
			Performance: string(perf),
			TimeTaken:   max(0, int(a.clock().Sub(started).Milliseconds())),
			IsCorrect:   isCorrect,
		})
		if err != nil {
			return err
		}
		a.printOutcome(result)
		reviewed++
	}

	fmt.Fprintf(a.out, "\nĐã ôn %d/%d thẻ.\n", reviewed, len(cards))
	return nil
}

func (a *app) printOutcome(result *services.ReviewResult) {
	fmt.Fprintf(a.out, "Đã lưu: lần ôn tiếp theo sau %.0f ngày (%s)", result.Flashcard.Interval, result.Flashcard.DueDate.Format("2006-01-02"))
	if result.Progress.Mastered {
		fmt.Fprint(a.out, ", đã thuộc")
	}
	fmt.Fprintln(a.out)
}

// deleteTopic hỏi xác nhận trừ khi có --force.
func (a *app) deleteTopic(ctx context.Context, args []string) error {
	fs := newFlagSet("delete-topic")
	userID := fs.StringP("user-id", "u", "", "owner of the topic")
	topicID := fs.String("id", "", "topic id")
	force := fs.BoolP("force", "f", false, "skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("user-id", *userID); err != nil {
		return err
	}
	if err := requireFlag("id", *topicID); err != nil {
		return err
	}

	if !*force {
		answer := strings.ToLower(a.prompt(fmt.Sprintf("Xóa topic %s cùng toàn bộ thẻ và tiến độ? (y/N): ", *topicID)))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(a.out, "Đã hủy.")
			return nil
		}
	}

	if err := a.svc.DeleteTopic(ctx, *userID, *topicID); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Đã xóa topic.")
	return nil
}

// adaptSyllabus đọc nội dung mới từ --file ("-" là stdin).
func (a *app) adaptSyllabus(ctx context.Context, args []string) error {
	fs := newFlagSet("adapt-syllabus")
	syllabusID := fs.String("id", "", "syllabus id")
	file := fs.StringP("file", "f", "", "file with the new content, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("id", *syllabusID); err != nil {
		return err
	}
	if err := requireFlag("file", *file); err != nil {
		return err
	}

	var content []byte
	var err error
	if *file == "-" {
		content, err = io.ReadAll(a.in)
	} else {
		content, err = os.ReadFile(*file)
	}
	if err != nil {
		return err
	}

	syllabus, err := a.svc.AdaptSyllabus(ctx, *syllabusID, string(content))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Đã cập nhật syllabus %s (lần điều chỉnh thứ %d).\n", syllabus.ID, syllabus.AdaptationCount)
	return nil
}

func (a *app) topic(ctx context.Context, args []string) error {
	fs := newFlagSet("topic")
	topicID := fs.String("id", "", "topic id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("id", *topicID); err != nil {
		return err
	}

	topic, err := a.svc.GetTopic(ctx, *topicID)
	if err != nil {
		return err
	}
	lastStudied := "chưa học"
	if topic.LastStudied != nil {
		lastStudied = topic.LastStudied.Format(time.RFC3339)
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", topic.ID)
	fmt.Fprintf(w, "Title\t%s\n", topic.Title)
	fmt.Fprintf(w, "Proficiency\t%.2f%%\n", topic.ProficiencyScore)
	fmt.Fprintf(w, "Last studied\t%s\n", lastStudied)
	return w.Flush()
}
