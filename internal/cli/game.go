package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sskkslay-netizen/Bst/internal/app/gacha"
	"github.com/sskkslay-netizen/Bst/internal/app/game"
	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Game Commands ──────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(collectionCmd)
	rootCmd.AddCommand(levelUpCmd)
	rootCmd.AddCommand(limitBreakCmd)
	rootCmd.AddCommand(equipCmd)
	rootCmd.AddCommand(squadCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(shopCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	pullCmd.Flags().Bool("ten", false, "Pull ten times at once")
}

// ─── status ─────────────────────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show currencies, study streak and squad",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			home, err := svc.Home(ctx)
			if err != nil {
				return err
			}
			st := svc.State()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "💎 Gems:  %d\n", home.Gems)
			fmt.Fprintf(out, "🪙 Coins: %d\n", home.Coins)
			fmt.Fprintf(out, "📚 Study points: %d total, %d today, %d day streak\n",
				home.TotalPoints, home.TodayPoints, home.Streak)
			fmt.Fprintf(out, "🗂  Study sets: %d   Cards: %d   Gear: %d\n",
				home.StudySets, len(st.Inventory), len(st.EquipmentInstances))
			if home.CanClaim {
				fmt.Fprintln(out, "🎁 Daily reward ready: bst claim")
			}
			if st.UserEmail != "" {
				dev := ""
				if st.IsDev {
					dev = " (dev)"
				}
				fmt.Fprintf(out, "👤 %s%s\n", st.UserEmail, dev)
			}

			sq := svc.Squad()
			fmt.Fprintf(out, "\nSquad (%d/%d):\n", len(sq.Members), domain.MaxSquadSize)
			for i, m := range sq.Members {
				lead := ""
				if i == 0 {
					lead = " ★ leader"
				}
				fmt.Fprintf(out, "  %s  %s [%s] Lv.%d%s\n", m.ID, m.Name, m.Rarity, m.Level, lead)
			}
			for _, syn := range sq.Synergies {
				fmt.Fprintf(out, "  ✨ %s: %s\n", syn.Name, syn.EffectDescription)
			}
			return nil
		})
	},
}

// ─── pull ───────────────────────────────────────────────────────────────────

var pullCmd = &cobra.Command{
	Use:   "pull [BANNER_ID]",
	Short: "Pull on a banner, or list the open banners",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ten, _ := cmd.Flags().GetBool("ten")
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "BANNER\tNAME\tTYPE\tCOST")
				for _, b := range svc.Banners() {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", b.ID, b.Name, b.Type, b.Cost)
				}
				return tw.Flush()
			}

			res, err := svc.Pull(ctx, args[0], ten)
			if err != nil {
				return err
			}
			for _, d := range res.Drawn {
				switch d.Category {
				case gacha.CategoryEquipment:
					fmt.Fprintf(out, "  🛡  [%s] %s\n", d.Rarity, d.Equipment.Name)
				default:
					fmt.Fprintf(out, "  🃏 [%s] %s  %s\n", d.Rarity, d.Card.Name, d.InstanceID)
				}
			}
			fmt.Fprintf(out, "💎 %d gems left\n", res.Gems)
			printOutcome(out, res.Outcome)
			return nil
		})
	},
}

// ─── collection ─────────────────────────────────────────────────────────────

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "List owned cards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INSTANCE\tNAME\tRARITY\tLEVEL\tLB\tHP\tATK\tSQUAD")
			for _, c := range svc.Collection() {
				squad := ""
				if c.InSquad {
					squad = "✓"
				}
				name := c.Name
				if c.IsFavorite {
					name = "♥ " + name
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\t%s\n",
					c.ID, name, c.Rarity, c.Level, c.MaxLevel, c.LimitBreak, c.HP, c.ATK, squad)
			}
			return tw.Flush()
		})
	},
}

// ─── level-up / limit-break / equip ─────────────────────────────────────────

var levelUpCmd = &cobra.Command{
	Use:   "level-up INSTANCE_ID XP_ITEM",
	Short: "Feed an xp item to a card",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			res, err := svc.LevelUp(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ +%d xp for %d coins: Lv.%d (%d xp)", res.XPAdded, res.CoinsSpent, res.Level, res.XP)
			if res.LevelsGained > 0 {
				fmt.Fprintf(out, "  ⬆ %d level(s)", res.LevelsGained)
			}
			fmt.Fprintln(out)
			printOutcome(out, res.Outcome)
			return nil
		})
	},
}

var limitBreakCmd = &cobra.Command{
	Use:   "limit-break TARGET_ID FODDER_ID",
	Short: "Consume a duplicate card to raise the level cap",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			res, err := svc.LimitBreak(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ %s is now LB%d, level cap %d\n", res.Card.Name, res.Card.LimitBreak, res.Card.MaxLevel)
			printOutcome(out, res.Outcome)
			return nil
		})
	},
}

var equipCmd = &cobra.Command{
	Use:   "equip CARD_ID EQUIPMENT_ID",
	Short: "Put gear on a card",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			res, err := svc.Equip(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ %s equipped: HP %d, ATK %d\n", res.Card.Name, res.Card.HP, res.Card.ATK)
			printOutcome(out, res.Outcome)
			return nil
		})
	},
}

var squadCmd = &cobra.Command{
	Use:   "squad INSTANCE_ID",
	Short: "Add a card to the squad or remove it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			res, err := svc.ToggleSquad(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			names := make([]string, 0, len(res.Members))
			for _, m := range res.Members {
				names = append(names, m.Name)
			}
			fmt.Fprintf(out, "Squad: %s\n", strings.Join(names, ", "))
			for _, syn := range res.Synergies {
				fmt.Fprintf(out, "  ✨ %s\n", syn.Name)
			}
			printOutcome(out, res.Outcome)
			return nil
		})
	},
}

// ─── home ───────────────────────────────────────────────────────────────────

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim the daily gem reward",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			out, err := svc.ClaimDaily(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "🎁 Daily reward claimed")
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

var notesCmd = &cobra.Command{
	Use:   "notes TEXT",
	Short: "Save study notes (long notes earn a reward)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			out, err := svc.SaveNotes(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "📝 Notes saved")
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

var shopCmd = &cobra.Command{
	Use:   "shop [XP_ITEM]",
	Short: "List xp items, or buy one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			w := cmd.OutOrStdout()
			if len(args) == 1 {
				out, err := svc.BuyXPItem(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "✅ Bought %s, %d coins left\n", args[0], svc.State().Coins)
				printOutcome(w, out)
				return nil
			}
			owned := svc.State().XPItems
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ITEM\tNAME\tXP\tPRICE\tOWNED")
			for _, it := range svc.Shop() {
				fmt.Fprintf(tw, "%s\t%s %s\t%d\t%d\t%d\n", it.ID, it.Icon, it.Name, it.XPValue, it.Price, owned[it.ID])
			}
			return tw.Flush()
		})
	},
}

// ─── account ────────────────────────────────────────────────────────────────

var loginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Sign in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			out, err := svc.Login(ctx, args[0])
			if err != nil {
				return err
			}
			msg := "✅ Signed in as " + args[0]
			if svc.IsDev() {
				msg += " with dev tools"
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out. Progress stays saved",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGame(cmd, func(ctx context.Context, svc *game.Service) error {
			out, err := svc.Logout(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "👋 Signed out")
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		})
	},
}
