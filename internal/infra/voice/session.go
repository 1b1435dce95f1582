// Package voice runs a realtime voice call with a character over the
// generative model's bidirectional websocket endpoint.
package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/sskkslay-netizen/Bst/internal/infra/observability"
)

// ─── Config ─────────────────────────────────────────────────────────────────

// Config configures the live endpoint.
type Config struct {
	URL         string
	APIKey      string
	Model       string
	DialTimeout time.Duration
}

// DefaultConfig returns the production endpoint.
func DefaultConfig() Config {
	return Config{
		URL:         "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent",
		Model:       "gemini-2.5-flash-native-audio-preview-09-2025",
		DialTimeout: 10 * time.Second,
	}
}

var ErrSessionClosed = errors.New("voice session closed")

// Instruction is the persona given to the character for a call.
func Instruction(name string) string {
	return fmt.Sprintf("You are %s from Bungou Stray Dogs. You are currently on a secure voice call with the "+
		"Agency Commander. Speak in character. Keep responses brief and conversational for a voice interaction.", name)
}

// ─── Session ────────────────────────────────────────────────────────────────

// Session is one open call. SendAudio may be called from any goroutine
// while Run reads.
type Session struct {
	conn      *websocket.Conn
	log       *observability.Logger
	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens a call with the named character and sends the setup message.
func Dial(ctx context.Context, cfg Config, character string, log *observability.Logger) (*Session, error) {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("voice url: %w", err)
	}
	if cfg.APIKey != "" {
		q := u.Query()
		q.Set("key", cfg.APIKey)
		u.RawQuery = q.Encode()
	}

	dialer := &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial voice: %w", err)
	}

	s := &Session{
		conn:   conn,
		log:    log.Named("voice").With("character", character),
		closed: make(chan struct{}),
	}
	setup := map[string]any{
		"setup": map[string]any{
			"model":             "models/" + cfg.Model,
			"generationConfig":  map[string]any{"responseModalities": []string{"AUDIO"}},
			"systemInstruction": map[string]any{"parts": []any{map[string]any{"text": Instruction(character)}}},
		},
	}
	if err := s.writeJSON(setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}
	s.log.Info("voice call opened")
	return s, nil
}

// SendAudio streams one chunk of microphone samples captured at InputRate.
func (s *Session) SendAudio(samples []float32) error {
	msg := map[string]any{
		"realtimeInput": map[string]any{
			"mediaChunks": []any{map[string]any{
				"mimeType": InputMIME,
				"data":     base64.StdEncoding.EncodeToString(EncodePCM16(samples)),
			}},
		},
	}
	return s.writeJSON(msg)
}

func (s *Session) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Run reads server messages until the call ends, queueing audio on sched
// and flushing it when the model is interrupted. A normal close returns nil.
func (s *Session) Run(ctx context.Context, sched *Scheduler) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closed:
				return ctx.Err()
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Info("voice call ended by server")
				return nil
			}
			return fmt.Errorf("voice read: %w", err)
		}
		s.handle(data, sched)
	}
}

func (s *Session) handle(data []byte, sched *Scheduler) {
	msg := gjson.ParseBytes(data)
	sc := msg.Get("serverContent")
	if sc.Get("interrupted").Bool() {
		n := sched.StopAll()
		s.log.Debug("model interrupted", "stopped", n)
	}
	sc.Get("modelTurn.parts").ForEach(func(_, p gjson.Result) bool {
		b64 := p.Get("inlineData.data").String()
		if b64 == "" {
			return true
		}
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			s.log.Warn("bad audio chunk", "error", err)
			return true
		}
		sched.Enqueue(DecodePCM16(raw), OutputRate)
		return true
	})
}

// Close ends the call. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
		s.log.Info("voice call closed")
	})
	return err
}
