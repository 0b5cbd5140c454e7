package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okdokhae/okdok/internal/render"
	"github.com/okdokhae/okdok/internal/session"
	"github.com/okdokhae/okdok/internal/store"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start, answer and review tutoring sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start [file]",
	Short: "Start a session over a passage",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workID, _ := cmd.Flags().GetString("work")
		layoutName, _ := cmd.Flags().GetString("layout")

		layout, err := session.ParseLayout(layoutName)
		if err != nil {
			return err
		}
		passage, err := readPassage(cmd, args)
		if err != nil {
			return err
		}

		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.Engine.StartSession(cmd.Context(), workID, passage, layout)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session %s (%s, %d stages)\n\n", s.ID, s.Layout, len(s.Stages))
		fmt.Fprintln(out, render.Stage(s, render.DefaultWidth))
		return nil
	},
}

var sessionSubmitCmd = &cobra.Command{
	Use:   "submit <session-id> <answer>",
	Short: "Answer the current stage of a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, _ := cmd.Flags().GetString("stage")
		evidence, _ := cmd.Flags().GetStringSlice("evidence")

		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		answer := strings.Join(args[1:], " ")
		res, err := a.Engine.SubmitAnswer(cmd.Context(), args[0], stage, answer, evidence)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, render.Outcome(res))
		if res.Next.Kind == session.ActionAdvance {
			s, err := a.Engine.GetSession(cmd.Context(), res.SessionID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, render.Stage(s, render.DefaultWidth))
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's current stage and its submissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		s, err := a.Engine.GetSession(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, render.Stage(s, render.DefaultWidth))
		fmt.Fprintln(out)
		fmt.Fprintln(out, render.Summary(session.Summarize(s), render.DefaultWidth))

		subs, err := a.Store.EventRepo().QuerySubmissions(ctx, s.ID, store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query submissions: %w", err)
		}
		if len(subs) == 0 {
			return nil
		}
		fmt.Fprintln(out)
		for _, e := range subs {
			fmt.Fprintf(out, "%-5d  %-19s  %-10s  %-6.2f  %-10s  %s\n",
				e.Sequence,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.StageID,
				e.FinalScore,
				e.Action,
				truncate(e.Answer, 40),
			)
		}
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		infos, err := s.SessionRepo().ListSessions(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(infos) == 0 {
			fmt.Fprintln(out, "No sessions yet.")
			return nil
		}

		fmt.Fprintf(out, "%-36s  %-16s  %-6s  %-9s  %-7s  %-19s\n",
			"ID", "Work", "Layout", "Status", "Stage", "Updated")
		fmt.Fprintln(out, strings.Repeat("─", 102))
		for _, info := range infos {
			fmt.Fprintf(out, "%-36s  %-16s  %-6s  %-9s  %-7s  %-19s\n",
				info.ID,
				truncate(info.WorkID, 16),
				info.Layout,
				info.Status,
				fmt.Sprintf("%d/%d", info.CurrentStageIndex, info.StageCount),
				info.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
			)
		}
		return nil
	},
}

func init() {
	sessionStartCmd.Flags().String("work", "", "Work id to file the session under (default: random)")
	sessionStartCmd.Flags().String("layout", "lesson", "Stage layout: lesson or chunk")

	sessionSubmitCmd.Flags().String("stage", "", "Stage id to answer (default: current stage)")
	sessionSubmitCmd.Flags().StringSlice("evidence", nil, "Evidence sentence ids cited by the answer")

	sessionListCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")

	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionSubmitCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionListCmd)
}
