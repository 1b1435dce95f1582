package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sskkslay-netizen/Bst/internal/infra/voice"
)

// ─── Voice Call ─────────────────────────────────────────────────────────────
// A terminal has no sound card to borrow, so a call streams a raw PCM16
// recording as the microphone and writes the character's reply to a file.

const callChunk = 100 * time.Millisecond

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().String("in", "", "Microphone input: raw mono PCM16 at 16 kHz")
	callCmd.Flags().String("out", "reply.pcm", "Where to write the reply: raw mono PCM16 at 24 kHz")
	callCmd.Flags().Duration("duration", 30*time.Second, "Hang up after this long")
	_ = callCmd.MarkFlagRequired("in")
}

var callCmd = &cobra.Command{
	Use:   "call CARD_ID",
	Short: "Place a voice call to one of your characters",
	Args:  cobra.ExactArgs(1),
	RunE:  runCall,
}

func runCall(cmd *cobra.Command, args []string) error {
	inPath, _ := cmd.Flags().GetString("in")
	outPath, _ := cmd.Flags().GetString("out")
	duration, _ := cmd.Flags().GetDuration("duration")

	raw, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read input audio: %w", err)
	}
	mic := voice.DecodePCM16(raw)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	card, err := d.Game.Card(args[0])
	if err != nil {
		return err
	}
	cfg := d.Config.VoiceSessionConfig()
	if cfg.APIKey == "" {
		return errors.New("voice calls need an API key: set ai.api_key or BST_AI_API_KEY")
	}

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "📞 Calling %s...\n", card.Name)
	sess, err := voice.Dial(ctx, cfg, card.Name, d.Log)
	if err != nil {
		return err
	}
	defer sess.Close()

	rec := voice.NewRecorder(time.Now)
	sched := voice.NewScheduler(rec)

	go streamMic(ctx, sess, mic)

	err = sess.Run(ctx, sched)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output audio: %w", err)
	}
	defer f.Close()
	n, err := rec.WriteTo(f)
	if err != nil {
		return fmt.Errorf("write output audio: %w", err)
	}
	fmt.Fprintf(out, "✅ Call ended. %s of reply audio written to %s\n",
		voice.Duration(int(n/2), voice.OutputRate).Round(time.Millisecond), outPath)
	return nil
}

// streamMic sends the recording in real time, one chunk per tick.
func streamMic(ctx context.Context, sess *voice.Session, mic []float32) {
	size := int(callChunk.Seconds() * voice.InputRate)
	ticker := time.NewTicker(callChunk)
	defer ticker.Stop()
	for start := 0; start < len(mic); start += size {
		end := min(start+size, len(mic))
		if err := sess.SendAudio(mic[start:end]); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
