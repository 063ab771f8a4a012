package cmd

import (
	"github.com/spf13/cobra"

	"github.com/triad-ai/triad/internal/adapters/llm"
	"github.com/triad-ai/triad/internal/events"
	"github.com/triad-ai/triad/internal/tui/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with the personas",
	RunE:  runChat,
}

var (
	chatSession string
	chatVoice   bool
)

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "",
		"session to resume (default: a new session)")
	chatCmd.Flags().BoolVar(&chatVoice, "voice", false,
		"answer with the single most confident persona")
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := newApp(runContext(cmd), appConfig, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			appLogger.Warn("closing resources failed", "error", cerr)
		}
	}()

	progress := a.bus.Subscribe(events.TypeTopicClassified, events.TypeAgentSelected,
		events.TypeAgentResponded, events.TypeTurnFailed)

	m := chat.NewModel(a.orchestrator,
		chat.WithSession(chatSession),
		chat.WithUserID(appConfig.Orchestrator.UserID),
		chat.WithVoice(chatVoice),
		chat.WithTimeout(llm.Timeout(appConfig.LLM)*4),
		chat.WithEvents(progress),
	)
	return chat.Run(m)
}
