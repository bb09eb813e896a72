// Package telegram wraps the outbound Bot API calls the admin service
// issues. It only sends; polling for updates is the bot process's job.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"tgadmin/pkg/logx"
)

type Config struct {
	Token string
	// SendTimeout bounds one sendMessage call. Default 8s.
	SendTimeout time.Duration
	// Offline skips the startup getMe verification. Tests use it.
	Offline bool
}

// Client delivers one message to one chat per call. Every failure mode
// (transport error, non-2xx, bad chat id) comes back as a plain error;
// callers decide what a failure means.
type Client struct {
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// telebot calls carry no context; the HTTP client timeout is what
	// keeps one unresponsive recipient from stalling a broadcast.
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Client{bot: b, log: log}, nil
}

// Send submits text to the chat identified by recipientID.
// A success means Telegram accepted the call, nothing stronger.
func (c *Client) Send(ctx context.Context, recipientID, text string, markdown bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(recipientID), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q", recipientID)
	}

	opt := &tele.SendOptions{}
	if markdown {
		opt.ParseMode = tele.ModeMarkdown
	}

	if _, err := c.bot.Send(&tele.Chat{ID: chatID}, text, opt); err != nil {
		c.log.Debug("send failed", logx.Int64("chat_id", chatID), logx.Err(err))
		return err
	}
	return nil
}
