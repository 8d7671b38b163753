package whatsapp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNotifier serves a scripted notification queue.
type fakeNotifier struct {
	IClient
	pending []Notification
	deleted []int64
}

func (f *fakeNotifier) ReceiveNotification(ctx context.Context) (*Notification, error) {
	if len(f.pending) == 0 {
		return nil, nil
	}
	n := f.pending[0]
	return &n, nil
}

func (f *fakeNotifier) DeleteNotification(ctx context.Context, receiptID int64) error {
	f.deleted = append(f.deleted, receiptID)
	if len(f.pending) > 0 && f.pending[0].ReceiptID == receiptID {
		f.pending = f.pending[1:]
	}
	return nil
}

func incomingText(receipt int64, chatID, sender, text string) Notification {
	n := Notification{ReceiptID: receipt}
	n.Body.TypeWebhook = "incomingMessageReceived"
	n.Body.IDMessage = "BAE1"
	n.Body.Timestamp = 1717200000
	n.Body.SenderData.ChatID = chatID
	n.Body.SenderData.SenderName = sender
	n.Body.MessageData.TextMessageData.TextMessage = text
	return n
}

func TestPollingSource_Next(t *testing.T) {
	f := &fakeNotifier{pending: []Notification{
		incomingText(1, "972501234567@c.us", "דנה לוי", "מעוניינת בדירה"),
	}}
	src := NewPollingSource(f)

	msg, err := src.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "972501234567@c.us", msg.ChatID)
	assert.Equal(t, "972501234567", msg.Phone)
	assert.Equal(t, "דנה לוי", msg.SenderName)
	assert.Equal(t, "מעוניינת בדירה", msg.Text)
	assert.Equal(t, []int64{1}, f.deleted, "processed notifications are acknowledged")
}

func TestPollingSource_SkipsNonMessageEvents(t *testing.T) {
	receipt := Notification{ReceiptID: 5}
	receipt.Body.TypeWebhook = "outgoingMessageStatus"

	f := &fakeNotifier{pending: []Notification{
		receipt,
		incomingText(6, "972509999999@c.us", "יוסי", "שלום"),
	}}
	src := NewPollingSource(f)

	msg, err := src.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "שלום", msg.Text)
	assert.Equal(t, []int64{5, 6}, f.deleted, "skipped events are acknowledged too")
}

func TestPollingSource_EmptyQueue(t *testing.T) {
	src := NewPollingSource(&fakeNotifier{})
	msg, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, msg)
}
