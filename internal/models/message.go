package models

import "time"

// InboundMessage is a WhatsApp message received from a customer, captured by
// the notification poll task and joined to a customer record by normalized
// phone number. CustomerID is empty when the sender is not a known customer.
type InboundMessage struct {
	ID         string    `bson:"_id,omitempty" json:"id,omitempty"`
	ChatID     string    `bson:"chat_id" json:"chat_id"`
	Phone      string    `bson:"phone" json:"phone"` // normalized sender phone
	SenderName string    `bson:"sender_name,omitempty" json:"sender_name,omitempty"`
	CustomerID string    `bson:"customer_id,omitempty" json:"customer_id,omitempty"`
	MessageID  string    `bson:"message_id,omitempty" json:"message_id,omitempty"`
	Text       string    `bson:"text" json:"text"`
	ReceivedAt time.Time `bson:"received_at" json:"received_at"`
}
