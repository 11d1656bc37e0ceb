package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Telegram Notification Service
// Best-effort delivery notifications. Failures are logged, never propagated,
// so a broken bot can never fail a finished video.
// ---------------------------------------------------------------------------

const telegramBaseURL = "https://api.telegram.org"

// Notifier is the delivery-notification collaborator the pipeline consumes.
type Notifier interface {
	SendText(ctx context.Context, text string)
	SendVideo(ctx context.Context, videoPath, caption string)
}

type TelegramService struct {
	botToken string
	chatID   string
	client   *http.Client
}

var _ Notifier = (*TelegramService)(nil)

func NewTelegramService(botToken, chatID string) *TelegramService {
	return &TelegramService{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *TelegramService) enabled() bool {
	return s.botToken != "" && s.chatID != ""
}

func (s *TelegramService) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", telegramBaseURL, s.botToken, method)
}

// SendText posts a plain text message to the configured chat.
func (s *TelegramService) SendText(ctx context.Context, text string) {
	if !s.enabled() {
		return
	}

	form := url.Values{}
	form.Set("chat_id", s.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, "POST", s.methodURL("sendMessage"),
		strings.NewReader(form.Encode()))
	if err != nil {
		log.Printf("[Telegram] Failed to create message request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	s.do(req, "message")
}

// SendVideo uploads the file at videoPath to the configured chat. Telegram
// caps bot uploads at 50MB; larger files fall back to a text notice.
func (s *TelegramService) SendVideo(ctx context.Context, videoPath, caption string) {
	if !s.enabled() {
		return
	}

	f, err := os.Open(videoPath)
	if err != nil {
		log.Printf("[Telegram] Failed to open video for upload: %v", err)
		return
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", s.chatID); err != nil {
		log.Printf("[Telegram] Failed to build upload form: %v", err)
		return
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			log.Printf("[Telegram] Failed to build upload form: %v", err)
			return
		}
	}

	part, err := writer.CreateFormFile("video", filepath.Base(videoPath))
	if err != nil {
		log.Printf("[Telegram] Failed to build upload form: %v", err)
		return
	}
	if _, err := io.Copy(part, f); err != nil {
		log.Printf("[Telegram] Failed to read video for upload: %v", err)
		return
	}
	if err := writer.Close(); err != nil {
		log.Printf("[Telegram] Failed to finalize upload form: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.methodURL("sendVideo"), &body)
	if err != nil {
		log.Printf("[Telegram] Failed to create upload request: %v", err)
		return
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	s.do(req, "video")
}

func (s *TelegramService) do(req *http.Request, what string) {
	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Telegram] Failed to send %s: %v", what, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("[Telegram] Send %s returned status %d: %s", what, resp.StatusCode, truncate(string(respBody), 200))
		return
	}

	log.Printf("[Telegram] Sent %s notification", what)
}
