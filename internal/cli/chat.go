package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"vortextau-chat/internal/classifier"
	"vortextau-chat/internal/config"
	"vortextau-chat/internal/orchestrator"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat with the configured model.

Questions that need current information (news, weather, prices) are answered
from web search results first. Type /help for commands.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

// lineReader provides input history and line editing.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader(dataDir string) *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &lineReader{line: line, historyFile: filepath.Join(dataDir, "input_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *lineReader) readInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *lineReader) close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

func runChat(cmd *cobra.Command, args []string) error {
	if cfg.Model == "" {
		return errors.New("no model configured: pass --model or set model in " + configPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	chats, err := openChatStore()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	api := newClient()
	printer := &streamPrinter{out: out}

	orch := orchestrator.New(orchestrator.Config{
		Generator:    api,
		Searcher:     api,
		Classifier:   newClassifier(api),
		Chats:        chats,
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		OnProgress: func(partial string) {
			if printer.printed == 0 && partial != "" {
				fmt.Fprint(out, assistantStyle.Render("Assistant: "))
			}
			printer.update(partial)
		},
	})
	sess := newSession(out, chats, orch, api)

	go func() {
		err := chats.Watch(ctx, func(err error) {
			if err == nil {
				fmt.Fprintln(out, "\n"+infoStyle.Render("Chats updated by another session."))
			}
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, warningStyle.Render("Not watching for changes: "+err.Error()))
		}
	}()

	reader := newLineReader(cfg.DataDir)
	defer reader.close()

	fmt.Fprintln(out, infoStyle.Render(fmt.Sprintf("vortex %s · %s · %s · /help for commands", Version, cfg.ServerURL, cfg.Model)))

	for {
		input, err := reader.readInput(promptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C, Ctrl+D
			fmt.Fprintln(out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := sess.handleSlash(ctx, input)
			if err != nil {
				fmt.Fprintf(out, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		sess.send(ctx, input)
	}
}

func newClassifier(gen classifier.Generator) orchestrator.Classifier {
	if cfg.Strategy == config.StrategyKeywords {
		return classifier.KeywordClassifier{}
	}
	return classifier.NewLLMClassifier(gen, cfg.Model, classifier.WithTTL(cfg.ClassificationTTL))
}
