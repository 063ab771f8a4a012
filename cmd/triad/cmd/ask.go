package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/tui"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and print the personas' answers",
	Long: `Ask one question. Without arguments the question is read from stdin.

Examples:
  triad ask "Should I take the internship or do a final year project?"
  echo "Which language should I learn first?" | triad ask --format json
  triad ask --session my-plans --voice "What should I do next?"`,
	RunE: runAsk,
}

var (
	askSession string
	askUser    string
	askVoice   bool
	askFormat  string
)

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&askSession, "session", "s", "",
		"session to continue (default: a new session)")
	askCmd.Flags().StringVar(&askUser, "user", "",
		"user id recorded on the turn")
	askCmd.Flags().BoolVar(&askVoice, "voice", false,
		"answer with the single most confident persona")
	askCmd.Flags().StringVarP(&askFormat, "format", "f", formatAuto,
		"output format (auto, text, json, yaml)")
}

// askResult is the structured output of ask.
type askResult struct {
	SessionID     string      `json:"session_id" yaml:"session_id"`
	TurnID        string      `json:"turn_id" yaml:"turn_id"`
	Topic         core.Topic  `json:"topic,omitempty" yaml:"topic,omitempty"`
	ActiveAgent   core.Agent  `json:"active_agent" yaml:"active_agent"`
	FinalResponse string      `json:"final_response" yaml:"final_response"`
	Responses     []askAnswer `json:"responses" yaml:"responses"`
}

type askAnswer struct {
	Agent      core.Agent `json:"agent" yaml:"agent"`
	Response   string     `json:"response" yaml:"response"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
}

func newAskResult(turn core.TurnState) askResult {
	res := askResult{
		SessionID:     turn.SessionID,
		TurnID:        turn.TurnID,
		Topic:         turn.Topic,
		ActiveAgent:   turn.ActiveAgent,
		FinalResponse: turn.FinalResponse,
		Responses:     []askAnswer{},
	}
	for _, h := range turn.History {
		res.Responses = append(res.Responses, askAnswer{Agent: h.Agent, Response: h.Message, Confidence: h.Confidence})
	}
	return res
}

func readQuestion(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, int64(core.MaxInputLength)*4+1))
	if err != nil {
		return "", fmt.Errorf("reading question: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := checkFormat(askFormat, formatAuto, formatText, formatJSON, formatYAML); err != nil {
		return err
	}
	question, err := readQuestion(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len([]rune(question)) > core.MaxInputLength {
		return core.ErrValidation(core.CodeInputTooLong,
			fmt.Sprintf("question exceeds %d characters", core.MaxInputLength))
	}

	sessionID := askSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if err := core.ValidateSessionID(sessionID); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(runContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appConfig, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			appLogger.Warn("closing resources failed", "error", cerr)
		}
	}()

	turn := a.orchestrator.Process(ctx, core.TurnRequest{
		Input:     question,
		SessionID: sessionID,
		UserID:    askUser,
		Voice:     askVoice,
	})
	return printTurn(cmd.OutOrStdout(), turn)
}

func printTurn(w io.Writer, turn core.TurnState) error {
	format := askFormat
	if format == formatAuto {
		switch tui.NewDetector().NoColor(noColor).Detect() {
		case tui.ModeJSON:
			format = formatJSON
		case tui.ModePlain:
			format = formatText
		}
	}

	switch format {
	case formatJSON, formatYAML:
		return writeStructured(w, format, newAskResult(turn))
	case formatText:
		_, err := fmt.Fprintf(w, "%s\n\nsession: %s\n", tui.RenderTurn(turn, nil, false), turn.SessionID)
		return err
	default:
		md, err := tui.NewMarkdownRenderer(tui.TerminalWidth() - 4)
		if err != nil {
			md = nil
		}
		_, err = fmt.Fprintf(w, "%s\n\nsession: %s\n", tui.RenderTurn(turn, md, true), turn.SessionID)
		return err
	}
}

// runContext is used by commands that have no cobra context, such as tests
// calling RunE directly.
func runContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
