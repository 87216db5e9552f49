package chat

import (
	"time"

	"github.com/zhouzirui/mindpeers/client/internal/model/analysis"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one turn of the active conversation.
// Analysis and Entities stay nil until a classification has been merged.
type Message struct {
	ID        string             `json:"id"`
	Sender    Sender             `json:"sender"`
	Text      string             `json:"text"`
	Timestamp time.Time          `json:"timestamp"`
	IsError   bool               `json:"isError,omitempty"`
	Analysis  *analysis.Analysis `json:"analysis,omitempty"`
	Entities  []analysis.Entity  `json:"entities,omitempty"`
}

// IsBot reports whether the message came from the service side.
func (m Message) IsBot() bool {
	return m.Sender == SenderBot
}

// HasAnalysis reports whether a classification is attached.
func (m Message) HasAnalysis() bool {
	return m.Analysis != nil
}

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	if m.Analysis != nil {
		cloned := m.Analysis.Clone()
		m.Analysis = &cloned
	}
	m.Entities = analysis.CloneEntities(m.Entities)
	return m
}
