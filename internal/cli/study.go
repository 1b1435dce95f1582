package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sskkslay-netizen/Bst/internal/app/game"
	"github.com/sskkslay-netizen/Bst/internal/app/minigame"
	"github.com/sskkslay-netizen/Bst/internal/infra/ai"
)

// ─── Study Commands ─────────────────────────────────────────────────────────
// The mini-games run in the terminal: one question or one pick per line,
// with the timers driven by a local ticker.

func init() {
	rootCmd.AddCommand(studyCmd)
	studyCmd.AddCommand(studyAddCmd)
	studyCmd.AddCommand(studyListCmd)
	studyCmd.AddCommand(studyDungeonCmd)
	studyCmd.AddCommand(studyMatchCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(focusCmd)

	studyAddCmd.Flags().StringP("material", "m", "", "Study material as plain text")
	studyAddCmd.Flags().StringP("url", "u", "", "Link to the source")
	studyAddCmd.Flags().StringP("image", "i", "", "Photo of notes to read the material from")
	chatCmd.Flags().Bool("debate", false, "Have the character argue back")
}

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Archive study material and play the study games",
}

// ─── study add / list ───────────────────────────────────────────────────────

var studyAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Archive study material from text, a link or a photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		material, _ := cmd.Flags().GetString("material")
		url, _ := cmd.Flags().GetString("url")
		imagePath, _ := cmd.Flags().GetString("image")

		in := game.StudyInput{Name: args[0], Material: material, URL: url}
		if imagePath != "" {
			img, err := ai.ImageFromFile(imagePath)
			if err != nil {
				return err
			}
			in.Image = &img
		}
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			res, err := svc.AddStudySet(ctx, in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ Archived %q as %s\n", res.Set.Name, res.Set.ID)
			printOutcome(out, res.Outcome)
			return nil
		})
	},
}

var studyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived study sets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			sets := svc.StudySets()
			if len(sets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No study sets yet. Use 'bst study add NAME -m TEXT'.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SET\tNAME\tPAIRS\tMATERIAL")
			for _, s := range sets {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.Name, len(s.Items), preview(s.Material, 40))
			}
			return tw.Flush()
		})
	},
}

// ─── study dungeon ──────────────────────────────────────────────────────────

var studyDungeonCmd = &cobra.Command{
	Use:   "dungeon SET_ID",
	Short: "Fight a quiz dungeon on a study set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "⏳ Generating questions...")
			res, err := svc.StartDungeon(ctx, args[0])
			if err != nil {
				return err
			}
			return playDungeon(ctx, svc, res.Dungeon, cmd.InOrStdin(), out)
		})
	},
}

func playDungeon(ctx context.Context, svc *game.Service, view minigame.DungeonView, in io.Reader, out io.Writer) error {
	id := view.ID
	fmt.Fprintf(out, "⚔️  %s enters the dungeon (%d questions). Answer with a number, q to leave.\n", view.Leader, view.Deck)
	showQuestion(out, view)

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "q" {
			return svc.AbortDungeon(ctx, id)
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(view.Options) {
			fmt.Fprintf(out, "Pick 1-%d\n", len(view.Options))
			continue
		}

		res, err := svc.Answer(ctx, id, n-1)
		if err != nil {
			return err
		}
		if res.Answer.Correct {
			hit := res.Answer.Hit
			crit := ""
			if hit.Critical {
				crit = " CRITICAL!"
			}
			fmt.Fprintf(out, "✓ Hit for %d%s\n", hit.Damage, crit)
			if hit.FloorCleared {
				fmt.Fprintf(out, "🏆 Floor cleared! Now on floor %d\n", hit.Floor)
			}
			printOutcome(out, res.Outcome)
			view = res.Dungeon
			showQuestion(out, view)
			continue
		}

		fmt.Fprintf(out, "✗ Wrong. Input locked for %s...\n", minigame.LockDuration)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(minigame.LockDuration):
		}
		res, err = svc.Unlock(ctx, id)
		if err != nil {
			return err
		}
		c := res.Counter
		fmt.Fprintf(out, "💥 The enemy strikes for %d (HP %d). The answer was: %s\n", c.Damage, c.PlayerHP, c.CorrectAnswer)
		if c.Failed {
			fmt.Fprintf(out, "☠️  Defeated on floor %d\n", res.Dungeon.Floor)
			return nil
		}
		view = res.Dungeon
		showQuestion(out, view)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return svc.AbortDungeon(ctx, id)
}

func showQuestion(out io.Writer, v minigame.DungeonView) {
	fmt.Fprintf(out, "\n[Floor %d] Enemy HP %d   You %d/%d\n%s\n", v.Floor, v.EnemyHP, v.PlayerHP, v.PlayerMaxHP, v.Question)
	for i, o := range v.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, o)
	}
}

// ─── study match ────────────────────────────────────────────────────────────

var studyMatchCmd = &cobra.Command{
	Use:   "match SET_ID",
	Short: "Defuse a matching bomb on a study set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "⏳ Arming the bomb...")
			res, err := svc.StartMatching(ctx, args[0])
			if err != nil {
				return err
			}
			return playMatching(ctx, svc, res.Matching, cmd.InOrStdin(), out)
		})
	},
}

func playMatching(ctx context.Context, svc *game.Service, view minigame.MatchingView, in io.Reader, out io.Writer) error {
	id := view.ID
	terms, defs := view.TermCards, view.DefCards
	fmt.Fprintln(out, "💣 Match each term to its definition. Enter e.g. '3 b', q to leave.")
	showBoard(out, view)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = svc.AbortMatching(context.Background(), id)
			return ctx.Err()

		case <-ticker.C:
			res, err := svc.MatchTick(ctx, id)
			if err != nil {
				return err
			}
			if res.Click.Exploded {
				fmt.Fprintln(out, "\n💥 BOOM. The bomb went off.")
				return nil
			}
			if res.Click.Timer%10 == 0 {
				fmt.Fprintf(out, "⏱  %ds\n", res.Click.Timer)
			}

		case line, ok := <-lines:
			if !ok || line == "q" {
				return svc.AbortMatching(ctx, id)
			}
			t, d, err := parsePick(line, len(terms), len(defs))
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if terms[t].Matched || defs[d].Matched {
				fmt.Fprintln(out, "Already defused, pick another pair.")
				continue
			}
			if _, err := svc.Select(ctx, id, terms[t].Index, minigame.SideTerm); err != nil {
				return err
			}
			res, err := svc.Select(ctx, id, defs[d].Index, minigame.SideDefinition)
			if err != nil {
				return err
			}
			c := res.Click
			switch {
			case c.Victory != nil:
				fmt.Fprintf(out, "✅ %s! +%d coins, +%d gems\n", c.Victory.Title, c.Victory.Coins, c.Victory.Gems)
				printOutcome(out, res.Outcome)
				return nil
			case c.Exploded:
				fmt.Fprintln(out, "💥 BOOM. Out of time.")
				return nil
			case c.Matched:
				fmt.Fprintf(out, "✓ Match! +%ds (%ds left)\n", minigame.MatchBonusTime, c.Timer)
			case c.Mismatch:
				fmt.Fprintf(out, "✗ Wrong pair. -%ds (%ds left)\n", minigame.MismatchPenalty, c.Timer)
			}
			terms, defs = res.Matching.TermCards, res.Matching.DefCards
			showBoard(out, res.Matching)
		}
	}
}

func parsePick(line string, nTerms, nDefs int) (int, int, error) {
	f := strings.Fields(line)
	if len(f) != 2 {
		return 0, 0, errors.New("enter a term number and a definition letter, e.g. '3 b'")
	}
	t, err := strconv.Atoi(f[0])
	if err != nil || t < 1 || t > nTerms {
		return 0, 0, fmt.Errorf("term must be 1-%d", nTerms)
	}
	letter := strings.ToLower(f[1])
	if len(letter) != 1 || letter[0] < 'a' || int(letter[0]-'a') >= nDefs {
		return 0, 0, fmt.Errorf("definition must be a-%c", 'a'+nDefs-1)
	}
	return t - 1, int(letter[0] - 'a'), nil
}

func showBoard(out io.Writer, v minigame.MatchingView) {
	fmt.Fprintf(out, "\n⏱  %ds   %d/%d defused\n", v.Timer, v.PairsSolved, v.PairsTotal)
	for i := 0; i < max(len(v.TermCards), len(v.DefCards)); i++ {
		left, right := "", ""
		if i < len(v.TermCards) {
			left = cardLabel(strconv.Itoa(i+1), v.TermCards[i])
		}
		if i < len(v.DefCards) {
			right = cardLabel(string(rune('a'+i)), v.DefCards[i])
		}
		fmt.Fprintf(out, "  %-36s %s\n", left, right)
	}
}

func cardLabel(key string, c minigame.MatchCard) string {
	if c.Matched {
		return key + ") ✓"
	}
	return key + ") " + preview(c.Text, 30)
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// ─── chat ───────────────────────────────────────────────────────────────────

var chatCmd = &cobra.Command{
	Use:   "chat CARD_ID",
	Short: "Talk to one of your characters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debate, _ := cmd.Flags().GetBool("debate")
		mode := ai.ModeNormal
		if debate {
			mode = ai.ModeDebate
		}
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			card, err := svc.Card(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "💬 Chatting with %s (%s mode). Empty line to leave.\n", card.Name, mode)

			var history []ai.Message
			sc := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !sc.Scan() {
					return sc.Err()
				}
				msg := strings.TrimSpace(sc.Text())
				if msg == "" {
					return nil
				}
				reply, err := svc.Chat(ctx, game.ChatRequest{CardID: card.ID, Message: msg, History: history, Mode: mode})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %s\n", reply.Character, reply.Reply)
				history = append(history,
					ai.Message{Role: ai.RoleUser, Text: msg},
					ai.Message{Role: ai.RoleModel, Text: reply.Reply})
			}
		})
	},
}

// ─── focus ──────────────────────────────────────────────────────────────────

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Run a 25 minute focus session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			out := cmd.OutOrStdout()
			timer := svc.FocusToggle()
			fmt.Fprintln(out, "🎯 Focus session started. Ctrl-C to stop.")

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for timer.Active {
				select {
				case <-ctx.Done():
					fmt.Fprintln(out)
					return nil
				case <-ticker.C:
				}
				res, err := svc.FocusTick(ctx)
				if err != nil {
					return err
				}
				timer = res.Focus
				fmt.Fprintf(out, "\r⏱  %02d:%02d", timer.Remaining/60, timer.Remaining%60)
				if len(res.Grants) > 0 || res.Warning != "" {
					fmt.Fprintln(out)
					printOutcome(out, res.Outcome)
				}
			}
			fmt.Fprintln(out, "\n🏆 Session complete!")
			return nil
		})
	},
}
