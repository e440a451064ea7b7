// 终端练习客户端
//
// 用法:
//
//	practice [-server URL] [-session FILE] register <username> <password>
//	practice login <username> <password>
//	practice logout
//	practice topics
//	practice interview [-topic React] [-count 5] [-ai]
//	practice analytics
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/pkg/apiclient"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// 每道题的作答时限
const answerTimeLimit = 2 * time.Minute

// noAnswerText 空回答（超时或跳过）送去评分时的占位文本
const noAnswerText = "(no answer)"

func analysisText(answer string) string {
	if strings.TrimSpace(answer) == "" {
		return noAnswerText
	}
	return answer
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".interview_session.json"
	}
	return filepath.Join(home, ".interview_assistant", "session.json")
}

func main() {
	server := flag.String("server", "http://localhost:5000", "后端地址")
	sessionPath := flag.String("session", defaultSessionPath(), "登录态保存路径")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	session, err := apiclient.LoadSession(*sessionPath)
	if err != nil {
		fatal(err)
	}
	client := apiclient.New(*server, session)
	ctx := context.Background()

	switch args[0] {
	case "register", "login":
		if len(args) < 3 {
			fatal(errors.New("usage: " + args[0] + " <username> <password>"))
		}
		if args[0] == "register" {
			_, err = client.Register(ctx, args[1], args[2], "")
		} else {
			_, err = client.Login(ctx, args[1], args[2])
		}
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Logged in as %s\n", session.Username())
	case "logout":
		if err := client.Logout(); err != nil {
			fatal(err)
		}
		fmt.Println("Logged out")
	case "topics":
		topics, err := client.Topics(ctx)
		if err != nil {
			fatal(err)
		}
		for _, t := range topics {
			fmt.Println(t)
		}
	case "interview":
		runInterview(ctx, client, args[1:])
	case "analytics":
		showAnalytics(ctx, client)
	default:
		fatal(fmt.Errorf("unknown command %q", args[0]))
	}
}

func fatal(err error) {
	if errors.Is(err, apiclient.ErrNotLoggedIn) {
		fmt.Fprintln(os.Stderr, "Please log in first: practice login <username> <password>")
	} else {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(1)
}

type question struct {
	id   string
	text string
}

func loadQuestions(ctx context.Context, client *apiclient.Client, topic string, count int, useAI bool) ([]question, error) {
	if useAI {
		batch, err := client.GenerateQuestions(ctx, topic, count)
		if err != nil {
			return nil, err
		}
		if batch.Source == model.SourceFallback {
			fmt.Println("(AI unavailable, using the built-in question bank)")
		}
		out := make([]question, 0, len(batch.Questions))
		for i, q := range batch.Questions {
			out = append(out, question{id: strconv.Itoa(i + 1), text: q.Text})
		}
		return out, nil
	}

	qs, err := client.Questions(ctx, topic, count)
	if err != nil {
		return nil, err
	}
	out := make([]question, 0, len(qs))
	for _, q := range qs {
		out = append(out, question{id: strconv.FormatUint(uint64(q.ID), 10), text: q.Text})
	}
	return out, nil
}

func runInterview(ctx context.Context, client *apiclient.Client, args []string) {
	fs := flag.NewFlagSet("interview", flag.ExitOnError)
	topic := fs.String("topic", "JavaScript", "主题")
	count := fs.Int("count", 5, "题目数量")
	useAI := fs.Bool("ai", false, "使用 AI 出题")
	fs.Parse(args)

	questions, err := loadQuestions(ctx, client, *topic, *count, *useAI)
	if err != nil {
		fatal(err)
	}
	if len(questions) == 0 {
		fmt.Printf("No questions available for %s\n", *topic)
		return
	}

	lines := readLines(os.Stdin)
	start := time.Now()
	var entries []model.AnswerEntry

	for i, q := range questions {
		fmt.Printf("\nQuestion %d/%d: %s\n", i+1, len(questions), q.text)
		fmt.Printf("Type your answer, finish with an empty line (%s limit).\n", answerTimeLimit)

		answer, timedOut := readAnswer(lines, answerTimeLimit)
		if timedOut {
			fmt.Println("Time is up, moving on.")
		}
		analysis, err := client.Analyze(ctx, q.text, analysisText(answer))
		if err != nil {
			fatal(err)
		}
		printAnalysis(analysis)
		entries = append(entries, model.AnswerEntry{
			QuestionID: q.id,
			Question:   q.text,
			Text:       answer,
			Timestamp:  time.Now().UnixMilli(),
			Analysis:   analysis,
		})
	}

	res, err := client.Complete(ctx, apiclient.CompleteRequest{
		Topic:     *topic,
		Mode:      "normal",
		StartTime: start.UnixMilli(),
		EndTime:   time.Now().UnixMilli(),
		Entries:   entries,
	})
	if err != nil {
		fatal(err)
	}
	s := res.Summary
	fmt.Printf("\nInterview complete: average %.1f/10, %d/%d correct, %d min, %s\n",
		s.AverageScore, s.CorrectAnswers, s.TotalQuestions, s.DurationMinutes, s.PerformanceLevel)
}

func printAnalysis(a *model.Analysis) {
	fmt.Printf("Score: %.1f/10\n%s\n", a.Score, a.Feedback)
	if a.Notice != "" {
		fmt.Printf("(%s)\n", a.Notice)
	}
	for _, s := range a.Strengths {
		fmt.Println("  + " + s)
	}
	for _, s := range a.Improvements {
		fmt.Println("  - " + s)
	}
}

// readLines 后台逐行读取输入，EOF 时关闭通道
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

func readAnswer(lines <-chan string, limit time.Duration) (string, bool) {
	deadline := time.NewTimer(limit)
	defer deadline.Stop()

	var b strings.Builder
	for {
		select {
		case line, ok := <-lines:
			if !ok || line == "" {
				return strings.TrimSpace(b.String()), false
			}
			b.WriteString(line)
			b.WriteString("\n")
		case <-deadline.C:
			return strings.TrimSpace(b.String()), true
		}
	}
}

func showAnalytics(ctx context.Context, client *apiclient.Client) {
	a, err := client.Analytics(ctx)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Total attempts: %d\n", a.Overall.TotalAttempts)
	if a.Overall.AverageScore != nil {
		fmt.Printf("Average score: %.1f (best %.1f, worst %.1f)\n", *a.Overall.AverageScore, deref(a.Overall.BestScore), deref(a.Overall.WorstScore))
	}
	for _, t := range a.TopicStats {
		fmt.Printf("  %-18s %3d attempts  avg %.1f  best %.1f\n", t.Topic, t.Attempts, t.AvgScore, t.BestScore)
	}
	if len(a.RecentAttempts) > 0 {
		fmt.Println("Recent:")
		for _, r := range a.RecentAttempts {
			fmt.Printf("  %s  %-18s %.1f\n", r.AttemptDate.Format("2006-01-02 15:04"), r.Topic, r.Score)
		}
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
