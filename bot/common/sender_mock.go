package common

import (
	"context"
	"sync"

	"github.com/mymmrac/telego"
)

// RecordingSender captures outgoing messages instead of calling Telegram
type RecordingSender struct {
	mu       sync.Mutex
	Messages []*telego.SendMessageParams
	Photos   []*telego.SendPhotoParams
	Err      error
}

func (r *RecordingSender) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	r.Messages = append(r.Messages, params)
	return &telego.Message{Text: params.Text}, nil
}

func (r *RecordingSender) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	r.Photos = append(r.Photos, params)
	return &telego.Message{Caption: params.Caption}, nil
}

// LastText returns the text of the most recent message, or "" when none was sent
func (r *RecordingSender) LastText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Text
}

// TestMessage builds an incoming private message from userID
func TestMessage(userID int64, text string) *telego.Message {
	return &telego.Message{
		From: &telego.User{ID: userID, FirstName: "Alice", Username: "alice"},
		Chat: telego.Chat{ID: userID, Type: telego.ChatTypePrivate},
		Text: text,
	}
}
