package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Idosegev23/homeruncms-sub000/internal/config"
	"github.com/Idosegev23/homeruncms-sub000/internal/stats"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *stats.Tracker, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &config.Config{
		WhatsAppBaseURL:    srv.URL,
		WhatsAppInstanceID: "1101",
		WhatsAppAPIToken:   "tok-secret",
	}
	tracker := stats.NewTracker(stats.NewMemoryStore(), 200)
	return NewClient(cfg, tracker), tracker, srv
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	c, tracker, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		fmt.Fprint(w, `{"idMessage":"BAE5F4886F6F2D0D"}`)
	})

	res, err := c.SendMessage(context.Background(), "050-123-4567", "שלום")
	require.NoError(t, err)
	assert.Equal(t, "/waInstance1101/sendMessage/tok-secret", gotPath)
	assert.Equal(t, "972501234567@c.us", gotPayload["chatId"])
	assert.Equal(t, "שלום", gotPayload["message"])
	assert.Equal(t, "BAE5F4886F6F2D0D", res.IDMessage)

	snap, err := tracker.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.DailyCount, "an acknowledged send is counted")
}

func TestSendMessage_GatewayError(t *testing.T) {
	c, tracker, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := c.SendMessage(context.Background(), "0501234567", "שלום")
	require.Error(t, err)

	snap, err := tracker.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.DailyCount, "failed sends are not counted")
}

func TestSendQuoted(t *testing.T) {
	var gotPayload map[string]string
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		fmt.Fprint(w, `{"idMessage":"X1"}`)
	})

	_, err := c.SendQuoted(context.Background(), "0501234567", "תגובה", "BAE000")
	require.NoError(t, err)
	assert.Equal(t, "BAE000", gotPayload["quotedMessageId"])
}

func TestSendFileByURL(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		fmt.Fprint(w, `{"idMessage":"F1"}`)
	})

	_, err := c.SendFileByURL(context.Background(), "0501234567", "https://cdn.example/p.jpg", "p.jpg", "דירה ברחוב הרצל")
	require.NoError(t, err)
	assert.Equal(t, "/waInstance1101/sendFileByUrl/tok-secret", gotPath)
	assert.Equal(t, "https://cdn.example/p.jpg", gotPayload["urlFile"])
	assert.Equal(t, "p.jpg", gotPayload["fileName"])
	assert.Equal(t, "דירה ברחוב הרצל", gotPayload["caption"])
}

func TestSendFile_Multipart(t *testing.T) {
	var gotChatID, gotFileName, gotContent string
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotChatID = r.FormValue("chatId")
		gotFileName = r.FormValue("fileName")
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		buf := make([]byte, 32)
		n, _ := f.Read(buf)
		gotContent = string(buf[:n])
		fmt.Fprint(w, `{"idMessage":"F2"}`)
	})

	_, err := c.SendFile(context.Background(), "0501234567", "doc.pdf",
		strings.NewReader("hello"), "")
	require.NoError(t, err)
	assert.Equal(t, "972501234567@c.us", gotChatID)
	assert.Equal(t, "doc.pdf", gotFileName)
	assert.Equal(t, "hello", gotContent)
}

func TestGetChatHistory(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(50), payload["count"])
		fmt.Fprint(w, `[{"idMessage":"h1","type":"incoming","textMessage":"היי"},{"idMessage":"h2","type":"outgoing"}]`)
	})

	msgs, err := c.GetChatHistory(context.Background(), "0501234567", 50)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "היי", msgs[0].TextMessage)
}

func TestReceiveNotification_Empty(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "null")
	})

	n, err := c.ReceiveNotification(context.Background())
	require.NoError(t, err)
	assert.Nil(t, n, "an empty gateway queue yields nil, not an error")
}

func TestReceiveNotification(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"receiptId": 7,
			"body": {
				"typeWebhook": "incomingMessageReceived",
				"idMessage": "BAE123",
				"timestamp": 1717200000,
				"senderData": {"chatId": "972501234567@c.us", "senderName": "דנה לוי"},
				"messageData": {"typeMessage": "textMessage", "textMessageData": {"textMessage": "מעוניינת בדירה"}}
			}
		}`)
	})

	n, err := c.ReceiveNotification(context.Background())
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, int64(7), n.ReceiptID)
	assert.Equal(t, "incomingMessageReceived", n.Body.TypeWebhook)
	assert.Equal(t, "מעוניינת בדירה", n.Body.MessageData.TextMessageData.TextMessage)
}

func TestDeleteNotification(t *testing.T) {
	var gotPath string
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"result":true}`)
	})

	require.NoError(t, c.DeleteNotification(context.Background(), 42))
	assert.Equal(t, "/waInstance1101/deleteNotification/tok-secret/42", gotPath)
}

func TestGetAvatar_Unavailable(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"urlAvatar":"","available":false}`)
	})

	av, err := c.GetAvatar(context.Background(), "0501234567")
	require.NoError(t, err)
	assert.Nil(t, av)
}

func TestGetAvatar(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"urlAvatar":"https://cdn.example/a.jpg"}`)
	})

	av, err := c.GetAvatar(context.Background(), "0501234567")
	require.NoError(t, err)
	require.NotNil(t, av)
	assert.Equal(t, "https://cdn.example/a.jpg", av.URLAvatar)
	assert.True(t, av.Available)
}

func TestCheckWhatsApp(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"existsWhatsapp":true}`)
	})
	assert.True(t, c.CheckWhatsApp(context.Background(), "0501234567"))
}

func TestCheckWhatsApp_ErrorDefaultsFalse(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	assert.False(t, c.CheckWhatsApp(context.Background(), "0501234567"))
}
