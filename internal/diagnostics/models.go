package diagnostics

import (
	"time"

	"github.com/google/uuid"
)

// DCHSession records the lifetime of one dedicated-channel radio link,
// keyed by a generated session id rather than a network-assigned
// identifier, since DCH allocation happens entirely within this Node-B.
type DCHSession struct {
	ID            string    `gorm:"primarykey;size:36" json:"id"`
	ScramblingCode uint32   `json:"scrambling_code"`
	SpreadingFactor int     `json:"spreading_factor"`
	ChannelCode   int       `json:"channel_code"`
	Coder         string    `json:"coder"` // "conv-k5", "conv-k9", "turbo"
	OpenedAt      time.Time `json:"opened_at"`
	ClosedAt      *time.Time `json:"closed_at"`
	CloseReason   string    `json:"close_reason"`
}

// TableName specifies the table name for GORM.
func (DCHSession) TableName() string { return "dch_sessions" }

// NewDCHSession allocates a fresh session id for a newly opened DCH.
func NewDCHSession(scramblingCode uint32, sf, code int, coder string) DCHSession {
	return DCHSession{
		ID:              uuid.NewString(),
		ScramblingCode:  scramblingCode,
		SpreadingFactor: sf,
		ChannelCode:     code,
		Coder:           coder,
		OpenedAt:        time.Now(),
	}
}

// IsOpen reports whether the session has not yet been closed.
func (s DCHSession) IsOpen() bool { return s.ClosedAt == nil }

// FERSample is one periodic frame-erasure-rate measurement for a DCH
// session, fed by fec.FERTracker.
type FERSample struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	SessionID  string    `gorm:"index;size:36" json:"session_id"`
	SampledAt  time.Time `json:"sampled_at"`
	FER        float64   `json:"fer"`
	FramesSeen uint64    `json:"frames_seen"`
}

// TableName specifies the table name for GORM.
func (FERSample) TableName() string { return "fer_samples" }
