package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramClient sends user messages and operator alerts through the Bot API
type TelegramClient struct {
	bot         *tgbotapi.BotAPI
	AdminChatID int64
	Retries     int
	Backoff     time.Duration
	logger      *zap.Logger
}

// NewTelegramClient connects to the Bot API at baseURL and checks the token with getMe
func NewTelegramClient(baseURL, botToken string, adminChatID int64, retries int, timeout time.Duration, logger *zap.Logger) (*TelegramClient, error) {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/bot%s/%s"
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}

	return &TelegramClient{
		bot:         bot,
		AdminChatID: adminChatID,
		Retries:     retries,
		Backoff:     time.Second,
		logger:      logger,
	}, nil
}

// errPermanent marks failures that retrying cannot fix (blocked bot, bad chat)
type errPermanent struct{ err error }

func (e errPermanent) Error() string { return e.err.Error() }
func (e errPermanent) Unwrap() error { return e.err }

func (c *TelegramClient) NotifyUser(ctx context.Context, userID int64, message string) error {
	return c.sendWithRetry(ctx, userID, message)
}

func (c *TelegramClient) NotifyOperator(ctx context.Context, message string) error {
	if c.AdminChatID == 0 {
		c.logger.Warn("operator alert not sent, admin chat id not configured", zap.String("message", message))
		return nil
	}
	return c.sendWithRetry(ctx, c.AdminChatID, message)
}

func (c *TelegramClient) sendWithRetry(ctx context.Context, chatID int64, text string) error {
	var lastErr error
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("telegram send to %d aborted: %w", chatID, err)
		}
		wait, err := c.send(chatID, text)
		if err == nil {
			return nil
		}
		lastErr = err
		var perm errPermanent
		if errors.As(err, &perm) {
			return err
		}
		if attempt == c.Retries {
			break
		}
		if wait <= 0 {
			wait = c.Backoff * time.Duration(attempt+1)
		}
		c.logger.Debug("telegram send failed, retrying",
			zap.Int64("chat_id", chatID),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("telegram send to %d aborted: %w", chatID, ctx.Err())
		}
	}
	return fmt.Errorf("telegram send to %d failed after %d attempts: %w", chatID, c.Retries+1, lastErr)
}

// send performs one sendMessage call and returns how long to wait before a retry
func (c *TelegramClient) send(chatID int64, text string) (time.Duration, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	_, err := c.bot.Send(msg)
	if err == nil {
		return 0, nil
	}

	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		// transport or decode failure
		return 0, err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return time.Duration(apiErr.RetryAfter) * time.Second, err
	case apiErr.Code >= http.StatusInternalServerError:
		return 0, err
	default:
		return 0, errPermanent{err}
	}
}

// LogMessenger writes messages to the log instead of sending them
type LogMessenger struct {
	logger *zap.Logger
}

func NewLogMessenger(logger *zap.Logger) *LogMessenger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMessenger{logger: logger}
}

func (m *LogMessenger) NotifyUser(_ context.Context, userID int64, message string) error {
	m.logger.Info("user message", zap.Int64("user_id", userID), zap.String("message", message))
	return nil
}

func (m *LogMessenger) NotifyOperator(_ context.Context, message string) error {
	m.logger.Warn("operator alert", zap.String("message", message))
	return nil
}
