package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"aide/internal/approval"
	"aide/internal/clarify"
	"aide/internal/config"
	"aide/internal/conversation"
	"aide/internal/dispatch"
	"aide/internal/display"
	"aide/internal/intent"
	"aide/internal/interpreter"
	"aide/internal/listener"
	"aide/internal/metrics"
	"aide/internal/mission"
	"aide/internal/normalizer"
	"aide/internal/readiness"
	"aide/internal/session"
	"aide/internal/store"
	"aide/internal/whiteboard"
)

const turnTimeout = 20 * time.Second

func buildEngine(cfg *config.Config) (*conversation.Engine, *dispatch.Dispatcher, error) {
	var scorer intent.Scorer
	var rewriter normalizer.Rewriter
	if cfg.LLMBackend != "none" {
		scorer = &intent.LLMScorer{Model: cfg.LLMModel}
		rewriter = &normalizer.LLMRewriter{Model: cfg.LLMModel}
	}

	classifier, err := intent.NewClassifier(scorer)
	if err != nil {
		return nil, nil, err
	}

	log := store.NewLog()
	disp := dispatch.New(log, demoExecutor{}, metrics.NewRecorder())
	engine := conversation.NewEngine(
		classifier,
		normalizer.New(rewriter, cfg.NormalizerThreshold),
		readiness.NewEngine(classifier),
		session.NewManager(cfg.ContextWindow),
		clarify.NewManager(cfg.ClarificationTTL),
		approval.NewBridge(log, disp, cfg.ApprovalTimeout),
		interpreter.New(log),
		whiteboard.NewEngine(log),
		log,
		disp,
	)
	return engine, disp, nil
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "aide",
		Short: "A conversational assistant that proposes missions and waits for your approval",
		Long:  `Turns natural-language requests into missions, asks when details are missing or ambiguous, and never executes anything you haven't approved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, disp, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			disp.Start()
			defer disp.Close()

			if err := listener.Init(); err != nil {
				return fmt.Errorf("init terminal input: %w", err)
			}
			defer listener.Close()

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-c
				fmt.Println("\nGoodbye!")
				os.Exit(0)
			}()

			sessionID := "cli-" + mission.NewID()
			listener.AsyncPrintln("Hello! Tell me what to do, e.g. \"extract emails from linkedin.com\". (type 'exit' to quit)")

			for {
				text := listener.GetInput()
				switch {
				case strings.EqualFold(text, "exit"), strings.EqualFold(text, "quit"):
					fmt.Println("Goodbye!")
					return nil
				case text == "":
					continue
				case strings.HasPrefix(strings.ToLower(text), "view "):
					showView(engine, strings.TrimSpace(text[len("view "):]))
					continue
				case strings.EqualFold(text, "pending"):
					p, _ := engine.PendingClarification(sessionID)
					listener.AsyncPrintln(display.FormatPendingClarification(p))
					continue
				case strings.EqualFold(text, "stats"):
					showStats(disp.Metrics())
					continue
				}

				ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
				env, err := engine.ProcessMessage(ctx, sessionID, text)
				cancel()
				if err != nil {
					listener.AsyncPrintln(fmt.Sprintf("[Turn FAILED] %v", err))
					continue
				}
				listener.AsyncPrintln(display.FormatEnvelope(env))

				// the prompt signals when a question is waiting for an answer
				if _, waiting := engine.PendingClarification(sessionID); waiting {
					listener.SetPrompt("? ")
				} else {
					listener.SetPrompt("> ")
				}
			}
		},
	}
}

func showView(engine *conversation.Engine, missionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()
	v, err := engine.MissionView(ctx, missionID)
	if err != nil {
		listener.AsyncPrintln(fmt.Sprintf("[View] %v", err))
		return
	}
	listener.AsyncPrintln(display.FormatMissionView(v))
}

func showStats(rec *metrics.Recorder) {
	executed, succeeded, signals, artifacts := rec.Totals()
	if executed == 0 {
		listener.AsyncPrintln("No missions have executed yet.")
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Executed %d missions (%d succeeded), %d signals, %d artifacts\n", executed, succeeded, signals, artifacts))
	for _, m := range rec.All() {
		state := "ok"
		if !m.Succeeded {
			state = "failed: " + m.Err
		}
		sb.WriteString(fmt.Sprintf("  %s  %-10s %6dms  %s\n", m.MissionID, m.Intent, m.DurationMs, state))
	}
	listener.AsyncPrintln(strings.TrimRight(sb.String(), "\n"))
}

func Execute(cfg *config.Config) {
	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
