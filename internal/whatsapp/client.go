package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/Idosegev23/homeruncms-sub000/internal/config"
	"github.com/Idosegev23/homeruncms-sub000/internal/phone"
	"github.com/Idosegev23/homeruncms-sub000/internal/stats"
)

// IClient defines the messaging gateway operations. It is a thin
// request/response wrapper: transport failures are logged and re-thrown to the
// caller; retrying is the message queue's responsibility, not the gateway's.
type IClient interface {
	SendMessage(ctx context.Context, chatID, text string) (*SendResult, error)
	SendQuoted(ctx context.Context, chatID, text, quotedMessageID string) (*SendResult, error)
	SendFile(ctx context.Context, chatID, fileName string, file io.Reader, caption string) (*SendResult, error)
	SendFileByURL(ctx context.Context, chatID, fileURL, fileName, caption string) (*SendResult, error)
	GetChatHistory(ctx context.Context, chatID string, count int) ([]ChatMessage, error)
	LastIncomingMessages(ctx context.Context, minutes int) ([]ChatMessage, error)
	LastOutgoingMessages(ctx context.Context, minutes int) ([]ChatMessage, error)
	ReceiveNotification(ctx context.Context) (*Notification, error)
	DeleteNotification(ctx context.Context, receiptID int64) error
	GetAvatar(ctx context.Context, chatID string) (*Avatar, error)
	CheckWhatsApp(ctx context.Context, phoneNumber string) bool
	ReadChat(ctx context.Context, chatID string) error
}

// SendResult is the gateway's acknowledgement of an outbound message.
type SendResult struct {
	IDMessage string `json:"idMessage"`
	Status    string `json:"status,omitempty"`
}

// ChatMessage is one message in a chat history or recent-messages response.
type ChatMessage struct {
	IDMessage     string `json:"idMessage"`
	ChatID        string `json:"chatId"`
	Type          string `json:"type"` // incoming / outgoing
	TypeMessage   string `json:"typeMessage"`
	TextMessage   string `json:"textMessage"`
	SenderName    string `json:"senderName,omitempty"`
	Timestamp     int64  `json:"timestamp"`
	DownloadURL   string `json:"downloadUrl,omitempty"`
	Caption       string `json:"caption,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

// Notification is a single webhook-style event fetched from the gateway's
// notification queue. It must be deleted by receipt ID after processing or the
// gateway redelivers it.
type Notification struct {
	ReceiptID int64            `json:"receiptId"`
	Body      NotificationBody `json:"body"`
}

// NotificationBody carries the event payload.
type NotificationBody struct {
	TypeWebhook string `json:"typeWebhook"`
	IDMessage   string `json:"idMessage"`
	Timestamp   int64  `json:"timestamp"`
	SenderData  struct {
		ChatID     string `json:"chatId"`
		Sender     string `json:"sender"`
		SenderName string `json:"senderName"`
	} `json:"senderData"`
	MessageData struct {
		TypeMessage     string `json:"typeMessage"`
		TextMessageData struct {
			TextMessage string `json:"textMessage"`
		} `json:"textMessageData"`
	} `json:"messageData"`
}

// Avatar is a chat avatar lookup result.
type Avatar struct {
	URLAvatar string `json:"urlAvatar"`
	Available bool   `json:"available"`
}

type existsResponse struct {
	ExistsWhatsapp bool `json:"existsWhatsapp"`
}

// Client implements IClient against a Green-API-style HTTP gateway. Every
// endpoint is built from the instance ID and API token path segments.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	tracker    *stats.Tracker // optional; nil disables send accounting
}

// NewClient creates a gateway client. tracker may be nil.
func NewClient(cfg *config.Config, tracker *stats.Tracker) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tracker:    tracker,
	}
}

// endpoint builds the full URL for a gateway method.
func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/waInstance%s/%s/%s",
		c.cfg.WhatsAppBaseURL, c.cfg.WhatsAppInstanceID, method, c.cfg.WhatsAppAPIToken)
}

// postJSON sends a JSON request and decodes the JSON response into out (when
// out is non-nil). Non-2xx statuses are errors.
func (c *Client) postJSON(ctx context.Context, method string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, out)
}

func (c *Client) getJSON(ctx context.Context, method string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(method), nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("WhatsApp gateway %s request failed: %v", method, err)
		return fmt.Errorf("gateway %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		log.Printf("WhatsApp gateway %s: error reading response: %v", method, err)
		return fmt.Errorf("gateway %s: read response: %w", method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("WhatsApp gateway %s returned status %d: %s", method, resp.StatusCode, string(respBody))
		return fmt.Errorf("gateway %s: status %d", method, resp.StatusCode)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 || string(bytes.TrimSpace(respBody)) == "null" {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		log.Printf("WhatsApp gateway %s: error parsing response: %v", method, err)
		return fmt.Errorf("gateway %s: parse response: %w", method, err)
	}
	return nil
}

// recordSend bumps the send counters for acknowledged messages.
func (c *Client) recordSend(ctx context.Context, res *SendResult) {
	if c.tracker == nil || res == nil {
		return
	}
	switch res.Status {
	case "", "sent", "queued":
		if err := c.tracker.Record(ctx); err != nil {
			log.Printf("Failed to record send stats: %v", err)
		}
	}
}

// SendMessage sends a plain text message. chatID accepts a raw phone number
// or a fully qualified chat identifier.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (*SendResult, error) {
	payload := map[string]string{
		"chatId":  phone.ToChatID(chatID),
		"message": text,
	}
	var res SendResult
	if err := c.postJSON(ctx, "sendMessage", payload, &res); err != nil {
		return nil, err
	}
	c.recordSend(ctx, &res)
	return &res, nil
}

// SendQuoted sends a text message quoting an earlier message.
func (c *Client) SendQuoted(ctx context.Context, chatID, text, quotedMessageID string) (*SendResult, error) {
	payload := map[string]string{
		"chatId":          phone.ToChatID(chatID),
		"message":         text,
		"quotedMessageId": quotedMessageID,
	}
	var res SendResult
	if err := c.postJSON(ctx, "sendMessage", payload, &res); err != nil {
		return nil, err
	}
	c.recordSend(ctx, &res)
	return &res, nil
}

// SendFile uploads a file as multipart form data with an optional caption.
func (c *Client) SendFile(ctx context.Context, chatID, fileName string, file io.Reader, caption string) (*SendResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chatId", phone.ToChatID(chatID)); err != nil {
		return nil, fmt.Errorf("write chatId field: %w", err)
	}
	if err := mw.WriteField("fileName", fileName); err != nil {
		return nil, fmt.Errorf("write fileName field: %w", err)
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return nil, fmt.Errorf("write caption field: %w", err)
		}
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy file content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendFileByUpload"), &buf)
	if err != nil {
		return nil, fmt.Errorf("create sendFileByUpload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res SendResult
	if err := c.do(req, "sendFileByUpload", &res); err != nil {
		return nil, err
	}
	c.recordSend(ctx, &res)
	return &res, nil
}

// SendFileByURL sends a file the gateway fetches itself. Used by the queue,
// which persists file references as URLs.
func (c *Client) SendFileByURL(ctx context.Context, chatID, fileURL, fileName, caption string) (*SendResult, error) {
	payload := map[string]string{
		"chatId":   phone.ToChatID(chatID),
		"urlFile":  fileURL,
		"fileName": fileName,
	}
	if caption != "" {
		payload["caption"] = caption
	}
	var res SendResult
	if err := c.postJSON(ctx, "sendFileByUrl", payload, &res); err != nil {
		return nil, err
	}
	c.recordSend(ctx, &res)
	return &res, nil
}

// GetChatHistory fetches the last count messages of a chat.
func (c *Client) GetChatHistory(ctx context.Context, chatID string, count int) ([]ChatMessage, error) {
	if count <= 0 {
		count = 100
	}
	payload := map[string]interface{}{
		"chatId": phone.ToChatID(chatID),
		"count":  count,
	}
	var msgs []ChatMessage
	if err := c.postJSON(ctx, "getChatHistory", payload, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// LastIncomingMessages fetches incoming messages of the last N minutes.
func (c *Client) LastIncomingMessages(ctx context.Context, minutes int) ([]ChatMessage, error) {
	return c.lastMessages(ctx, "lastIncomingMessages", minutes)
}

// LastOutgoingMessages fetches outgoing messages of the last N minutes.
func (c *Client) LastOutgoingMessages(ctx context.Context, minutes int) ([]ChatMessage, error) {
	return c.lastMessages(ctx, "lastOutgoingMessages", minutes)
}

func (c *Client) lastMessages(ctx context.Context, method string, minutes int) ([]ChatMessage, error) {
	if minutes <= 0 {
		minutes = 1440
	}
	url := fmt.Sprintf("%s?minutes=%d", c.endpoint(method), minutes)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	var msgs []ChatMessage
	if err := c.do(req, method, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ReceiveNotification fetches a single pending notification. Returns nil when
// the queue is empty.
func (c *Client) ReceiveNotification(ctx context.Context) (*Notification, error) {
	var n Notification
	if err := c.getJSON(ctx, "receiveNotification", &n); err != nil {
		return nil, err
	}
	if n.ReceiptID == 0 && n.Body.TypeWebhook == "" {
		return nil, nil
	}
	return &n, nil
}

// DeleteNotification acknowledges a processed notification so the gateway
// stops redelivering it.
func (c *Client) DeleteNotification(ctx context.Context, receiptID int64) error {
	url := fmt.Sprintf("%s/%d", c.endpoint("deleteNotification"), receiptID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create deleteNotification request: %w", err)
	}
	return c.do(req, "deleteNotification", nil)
}

// GetAvatar fetches a chat avatar. An unavailable avatar is an expected
// condition, not an error: the method returns (nil, nil).
func (c *Client) GetAvatar(ctx context.Context, chatID string) (*Avatar, error) {
	payload := map[string]string{"chatId": phone.ToChatID(chatID)}
	var av Avatar
	if err := c.postJSON(ctx, "getAvatar", payload, &av); err != nil {
		log.Printf("Avatar unavailable for %s: %v", chatID, err)
		return nil, nil
	}
	if av.URLAvatar == "" {
		return nil, nil
	}
	av.Available = true
	return &av, nil
}

// CheckWhatsApp reports whether the phone number has a WhatsApp account.
// Failures default to false: an existence-check error must never block sends.
func (c *Client) CheckWhatsApp(ctx context.Context, phoneNumber string) bool {
	payload := map[string]string{"phoneNumber": phone.Normalize(phoneNumber)}
	var res existsResponse
	if err := c.postJSON(ctx, "checkWhatsapp", payload, &res); err != nil {
		log.Printf("checkWhatsapp failed for %s, assuming false: %v", phoneNumber, err)
		return false
	}
	return res.ExistsWhatsapp
}

// ReadChat marks all messages of a chat as read.
func (c *Client) ReadChat(ctx context.Context, chatID string) error {
	payload := map[string]string{"chatId": phone.ToChatID(chatID)}
	return c.postJSON(ctx, "readChat", payload, nil)
}
