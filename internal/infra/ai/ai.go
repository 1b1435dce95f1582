// Package ai talks to the generative model that turns study material into
// quizzes and matching pairs and voices the characters in chat.
//
// Every call degrades instead of failing: errors are logged and replaced
// by a fixed fallback string or an empty slice, so the game keeps running
// without a network or an API key.
package ai

import (
	"context"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Fallbacks ──────────────────────────────────────────────────────────────

const (
	FallbackEmptyExtract = "Failed to extract text from the image."
	FallbackExtractError = "Error processing the image intel."
	FallbackEmptyReply   = "I'm currently thinking about something else..."
	FallbackReplyError   = "I'm currently thinking about something else... (API Error)"
)

// Requested batch sizes.
const (
	QuestionCount = 20
	PairCount     = 8
)

// ─── Types ──────────────────────────────────────────────────────────────────

// Image is an inline image payload: base64 data plus its MIME type.
type Image struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Role is the speaker of a chat turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of a character chat.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ChatMode selects the character's persona.
type ChatMode string

const (
	ModeNormal ChatMode = "normal"
	ModeDebate ChatMode = "debate"
)

// Valid reports whether m is a known mode.
func (m ChatMode) Valid() bool { return m == ModeNormal || m == ModeDebate }

// Service is the AI boundary the game depends on. Implementations never
// return errors; failures surface as fallback values.
type Service interface {
	ExtractStudyMaterial(ctx context.Context, img Image) string
	GenerateQuestions(ctx context.Context, material string) []domain.Question
	GenerateMatchingPairs(ctx context.Context, material string) []domain.StudyPair
	CharacterReply(ctx context.Context, name string, history []Message, message string, mode ChatMode) string
}

// Offline is the Service used when no API key is configured.
type Offline struct{}

func (Offline) ExtractStudyMaterial(context.Context, Image) string { return FallbackExtractError }
func (Offline) GenerateQuestions(context.Context, string) []domain.Question {
	return []domain.Question{}
}
func (Offline) GenerateMatchingPairs(context.Context, string) []domain.StudyPair {
	return []domain.StudyPair{}
}
func (Offline) CharacterReply(context.Context, string, []Message, string, ChatMode) string {
	return FallbackReplyError
}
