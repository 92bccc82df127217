package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/saylorsolutions/ringbus/typeid"
	"github.com/sugawarayuuta/sonnet"
)

var (
	ErrTypeMismatch = errors.New("message type mismatch")
)

// Message is the wire form of a single event.
type Message struct {
	ID      uuid.UUID       `json:"id"`
	Type    typeid.ID       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Codec converts values of type T to and from a [Message].
type Codec[T any] struct {
	tag typeid.ID
}

func NewCodec[T any]() Codec[T] {
	return Codec[T]{tag: typeid.Of[T]()}
}

// Type returns the [typeid.ID] of T.
func (c Codec[T]) Type() typeid.ID {
	return c.tag
}

// Encode creates a new [Message] with a random ID holding val.
func (c Codec[T]) Encode(val T) (Message, error) {
	payload, err := sonnet.Marshal(val)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode payload: %w", err)
	}
	return Message{
		ID:      uuid.New(),
		Type:    c.tag,
		Payload: payload,
	}, nil
}

// Decode extracts the value in msg.
// [ErrTypeMismatch] is returned if msg wasn't encoded from a T.
func (c Codec[T]) Decode(msg Message) (T, error) {
	var val T
	if msg.Type != c.tag {
		return val, fmt.Errorf("%w: expected %s, got %s", ErrTypeMismatch, c.tag, msg.Type)
	}
	if err := sonnet.Unmarshal(msg.Payload, &val); err != nil {
		return val, fmt.Errorf("failed to decode payload of message %s: %w", msg.ID, err)
	}
	return val, nil
}
