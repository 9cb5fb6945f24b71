package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const linePushURL = "https://api.line.me/v2/bot/message/push"

// Line pushes a plain text message to one LINE user.
type Line struct {
	ChannelToken string
	UserID       string
	Endpoint     string
	Client       *http.Client
}

func NewLine(channelToken, userID string) *Line {
	if channelToken == "" || userID == "" {
		return nil
	}
	return &Line{
		ChannelToken: channelToken,
		UserID:       userID,
		Endpoint:     linePushURL,
		Client:       &http.Client{Timeout: 10 * time.Second},
	}
}

type lineMessage struct {
	To       string        `json:"to"`
	Messages []lineContent `json:"messages"`
}

type lineContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (l *Line) Name() string { return "line" }

func (l *Line) Send(ctx context.Context, title, text string) error {
	if l == nil || l.ChannelToken == "" || l.UserID == "" {
		return errors.New("LINE configuration is incomplete")
	}
	body, err := json.Marshal(lineMessage{
		To:       l.UserID,
		Messages: []lineContent{{Type: "text", Text: title + "\n" + text}},
	})
	if err != nil {
		return fmt.Errorf("marshal line payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create line request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.ChannelToken)

	resp, err := l.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send line message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("line returned status %d", resp.StatusCode)
	}
	return nil
}
