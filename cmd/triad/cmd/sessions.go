package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/triad-ai/triad/internal/adapters/session"
	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/tui"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Inspect stored conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List sessions, most recent first",
	Args:    cobra.NoArgs,
	RunE:    runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show every turn of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsRemoveCmd = &cobra.Command{
	Use:     "rm <session-id>...",
	Aliases: []string{"delete"},
	Short:   "Delete sessions",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSessionsRemove,
}

var sessionsFormat string

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsRemoveCmd)

	sessionsCmd.PersistentFlags().StringVarP(&sessionsFormat, "format", "f", formatText,
		"output format (text, json, yaml)")
}

var errSessionsDisabled = errors.New("session storage is disabled (session.backend: none)")

func openSessionStore() (core.SessionStore, error) {
	if strings.EqualFold(appConfig.Session.Backend, "none") {
		return nil, errSessionsDisabled
	}
	return session.NewStore(appConfig.Session.Backend, appConfig.Session.Path)
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(sessionsFormat, formatText, formatJSON, formatYAML); err != nil {
		return err
	}
	store, err := openSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.ListSessions(runContext(cmd))
	if err != nil {
		return err
	}
	if list == nil {
		list = []core.SessionRecord{}
	}

	out := cmd.OutOrStdout()
	if sessionsFormat != formatText {
		return writeStructured(out, sessionsFormat, list)
	}
	if len(list) == 0 {
		_, err := fmt.Fprintln(out, "No sessions.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTURNS\tUPDATED\tTITLE")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.ID, s.TurnCount, s.UpdatedAt.Local().Format("2006-01-02 15:04"), s.Title)
	}
	return w.Flush()
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	if err := checkFormat(sessionsFormat, formatText, formatJSON, formatYAML); err != nil {
		return err
	}
	id := args[0]
	if err := core.ValidateSessionID(id); err != nil {
		return err
	}
	store, err := openSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := runContext(cmd)
	rec, err := store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return core.ErrNotFound("session", id)
	}
	turns, err := store.LoadTurns(ctx, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if sessionsFormat != formatText {
		return writeStructured(out, sessionsFormat, struct {
			Session core.SessionRecord `json:"session" yaml:"session"`
			Turns   []core.TurnRecord  `json:"turns" yaml:"turns"`
		}{*rec, turns})
	}
	return writeTurnsText(out, *rec, turns)
}

func writeTurnsText(w io.Writer, rec core.SessionRecord, turns []core.TurnRecord) error {
	fmt.Fprintf(w, "Session %s (%d turns)\n", rec.ID, rec.TurnCount)
	for i, t := range turns {
		fmt.Fprintf(w, "\n#%d %s", i+1, t.CreatedAt.Local().Format("2006-01-02 15:04"))
		if t.Topic != "" {
			fmt.Fprintf(w, " [%s]", t.Topic)
		}
		fmt.Fprintf(w, "\nYou: %s\n", t.UserInput)
		for _, h := range t.History {
			fmt.Fprintf(w, "%s (%.0f%%): %s\n", tui.AgentLabel(h.Agent), h.Confidence*100, h.Message)
		}
		if len(t.History) == 0 {
			fmt.Fprintf(w, "%s: %s\n", tui.AgentLabel(t.ActiveAgent), t.FinalResponse)
		}
	}
	return nil
}

func runSessionsRemove(cmd *cobra.Command, args []string) error {
	for _, id := range args {
		if err := core.ValidateSessionID(id); err != nil {
			return err
		}
	}
	store, err := openSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := runContext(cmd)
	var errs []error
	for _, id := range args {
		if err := store.DeleteSession(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
	}
	return errors.Join(errs...)
}
