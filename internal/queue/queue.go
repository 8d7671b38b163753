package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Idosegev23/homeruncms-sub000/internal/phone"
	"github.com/Idosegev23/homeruncms-sub000/internal/whatsapp"
)

// Entry types.
const (
	TypeText   = "text"
	TypeFile   = "file"
	TypeQuoted = "quoted"
)

// ErrNotFound is returned when an entry ID is not in the queue.
var ErrNotFound = errors.New("queue entry not found")

// Entry is one outbound message waiting to be sent.
type Entry struct {
	ID              string `json:"id"`
	ChatID          string `json:"chat_id"`
	Type            string `json:"type"`
	Message         string `json:"message,omitempty"`
	FileURL         string `json:"file_url,omitempty"`
	FileName        string `json:"file_name,omitempty"`
	Caption         string `json:"caption,omitempty"`
	QuotedMessageID string `json:"quoted_message_id,omitempty"`

	Attempts      int       `json:"attempts"`
	LastError     string    `json:"last_error,omitempty"`
	NextAttemptAt time.Time `json:"next_attempt_at,omitempty"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// Sender dispatches one entry to the messaging gateway.
type Sender interface {
	Dispatch(ctx context.Context, e Entry) error
}

// GatewaySender sends entries through the WhatsApp client.
type GatewaySender struct {
	client whatsapp.IClient
}

func NewGatewaySender(client whatsapp.IClient) *GatewaySender {
	return &GatewaySender{client: client}
}

func (s *GatewaySender) Dispatch(ctx context.Context, e Entry) error {
	var err error
	switch e.Type {
	case TypeFile:
		_, err = s.client.SendFileByURL(ctx, e.ChatID, e.FileURL, e.FileName, e.Caption)
	case TypeQuoted:
		_, err = s.client.SendQuoted(ctx, e.ChatID, e.Message, e.QuotedMessageID)
	default:
		_, err = s.client.SendMessage(ctx, e.ChatID, e.Message)
	}
	return err
}

// Queue is a FIFO outbound message queue with at-least-once delivery. Entries
// survive restarts via the Store; failed entries stay at the head and retry
// with exponential backoff until the attempt limit moves them to the
// dead-letter list. A single drain runs at a time.
type Queue struct {
	store       Store
	sender      Sender
	sendDelay   time.Duration
	baseBackoff time.Duration
	maxAttempts int

	sem chan struct{} // drain single-flight

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a Queue. sendDelay spaces consecutive sends; baseBackoff is the
// first retry delay, doubled per attempt; maxAttempts caps retries before
// dead-lettering.
func New(store Store, sender Sender, sendDelay, baseBackoff time.Duration, maxAttempts int) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	q := &Queue{
		store:       store,
		sender:      sender,
		sendDelay:   sendDelay,
		baseBackoff: baseBackoff,
		maxAttempts: maxAttempts,
		sem:         make(chan struct{}, 1),
		now:         time.Now,
	}
	q.sleep = func(ctx context.Context, d time.Duration) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	return q
}

// Enqueue appends an entry and persists the queue. The chat ID is normalized
// on the way in so the queue never holds unsendable addresses. Drains are not
// started implicitly; callers trigger them.
func (q *Queue) Enqueue(ctx context.Context, e Entry) (Entry, error) {
	if e.ChatID == "" {
		return Entry{}, errors.New("enqueue: empty chat id")
	}
	if e.Type == "" {
		e.Type = TypeText
	}
	e.ID = uuid.NewString()
	e.ChatID = phone.ToChatID(e.ChatID)
	e.Attempts = 0
	e.LastError = ""
	e.NextAttemptAt = time.Time{}
	e.EnqueuedAt = q.now()

	entries, err := q.store.Load(ctx)
	if err != nil {
		return Entry{}, err
	}
	entries = append(entries, e)
	if err := q.store.Save(ctx, entries); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Entries returns the pending queue in order.
func (q *Queue) Entries(ctx context.Context) ([]Entry, error) {
	return q.store.Load(ctx)
}

// DeadLetters returns entries that exhausted their attempts.
func (q *Queue) DeadLetters(ctx context.Context) ([]Entry, error) {
	return q.store.LoadDead(ctx)
}

// Remove deletes a pending entry by ID.
func (q *Queue) Remove(ctx context.Context, id string) error {
	entries, err := q.store.Load(ctx)
	if err != nil {
		return err
	}
	kept := entries[:0]
	found := false
	for _, e := range entries {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return ErrNotFound
	}
	return q.store.Save(ctx, kept)
}

// RequeueDead moves a dead-letter entry back to the tail of the pending queue
// with a fresh attempt budget.
func (q *Queue) RequeueDead(ctx context.Context, id string) (Entry, error) {
	dead, err := q.store.LoadDead(ctx)
	if err != nil {
		return Entry{}, err
	}
	var target *Entry
	kept := dead[:0]
	for i := range dead {
		if dead[i].ID == id {
			target = &dead[i]
			continue
		}
		kept = append(kept, dead[i])
	}
	if target == nil {
		return Entry{}, ErrNotFound
	}
	target.Attempts = 0
	target.LastError = ""
	target.NextAttemptAt = time.Time{}

	entries, err := q.store.Load(ctx)
	if err != nil {
		return Entry{}, err
	}
	entries = append(entries, *target)
	if err := q.store.Save(ctx, entries); err != nil {
		return Entry{}, err
	}
	if err := q.store.SaveDead(ctx, kept); err != nil {
		return Entry{}, err
	}
	return *target, nil
}

// DrainAsync starts a drain in the background unless one is already running.
func (q *Queue) DrainAsync(ctx context.Context) {
	select {
	case q.sem <- struct{}{}:
	default:
		return // drain already in flight
	}
	go func() {
		defer func() { <-q.sem }()
		if err := q.drain(ctx); err != nil {
			log.Printf("Queue drain stopped: %v", err)
		}
	}()
}

// Drain processes the queue synchronously, for callers that need completion
// (tests, the background drain task). Returns immediately when another drain
// is running.
func (q *Queue) Drain(ctx context.Context) error {
	select {
	case q.sem <- struct{}{}:
	default:
		return nil
	}
	defer func() { <-q.sem }()
	return q.drain(ctx)
}

// drain sends head entries in order until the queue is empty, the head is not
// yet due, or a send fails. A failed head stays in place with its backoff
// stamped, so delivery is at-least-once and ordering is preserved.
func (q *Queue) drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := q.store.Load(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		head := entries[0]
		if !head.NextAttemptAt.IsZero() && q.now().Before(head.NextAttemptAt) {
			return nil
		}

		sendErr := q.sender.Dispatch(ctx, head)

		// Reload: handlers may have added or removed entries during the send.
		entries, err = q.store.Load(ctx)
		if err != nil {
			return err
		}
		idx := -1
		for i, e := range entries {
			if e.ID == head.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			// Entry was removed while sending; nothing to update.
			continue
		}

		if sendErr != nil {
			head = entries[idx]
			head.Attempts++
			head.LastError = sendErr.Error()
			if head.Attempts >= q.maxAttempts {
				log.Printf("Queue entry %s dead-lettered after %d attempts: %v", head.ID, head.Attempts, sendErr)
				entries = append(entries[:idx], entries[idx+1:]...)
				if err := q.store.Save(ctx, entries); err != nil {
					return err
				}
				dead, err := q.store.LoadDead(ctx)
				if err != nil {
					return err
				}
				if err := q.store.SaveDead(ctx, append(dead, head)); err != nil {
					return err
				}
				continue
			}
			// Exponential backoff: base, 2x, 4x, ...
			backoff := q.baseBackoff << (head.Attempts - 1)
			head.NextAttemptAt = q.now().Add(backoff)
			entries[idx] = head
			if err := q.store.Save(ctx, entries); err != nil {
				return err
			}
			log.Printf("Queue entry %s failed (attempt %d/%d), retrying in %s: %v",
				head.ID, head.Attempts, q.maxAttempts, backoff, sendErr)
			return fmt.Errorf("send entry %s: %w", head.ID, sendErr)
		}

		entries = append(entries[:idx], entries[idx+1:]...)
		if err := q.store.Save(ctx, entries); err != nil {
			return err
		}
		if len(entries) > 0 && q.sendDelay > 0 {
			q.sleep(ctx, q.sendDelay)
		}
	}
}
