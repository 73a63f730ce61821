package diagnostics

import (
	"time"

	"gorm.io/gorm"
)

// Repository provides database operations for DCH sessions and their
// FER history.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository instance.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// OpenSession persists a newly opened DCH session.
func (r *Repository) OpenSession(s DCHSession) error {
	return r.db.Create(&s).Error
}

// CloseSession marks a session closed with the given reason.
func (r *Repository) CloseSession(id, reason string) error {
	now := time.Now()
	return r.db.Model(&DCHSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"closed_at": now, "close_reason": reason}).Error
}

// RecordFER appends one FER sample for an active session.
func (r *Repository) RecordFER(sessionID string, fer float64, framesSeen uint64) error {
	sample := FERSample{
		SessionID:  sessionID,
		SampledAt:  time.Now(),
		FER:        fer,
		FramesSeen: framesSeen,
	}
	return r.db.Create(&sample).Error
}

// GetSession fetches one session by id.
func (r *Repository) GetSession(id string) (*DCHSession, error) {
	var s DCHSession
	if err := r.db.First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// OpenSessions returns every session not yet closed.
func (r *Repository) OpenSessions() ([]DCHSession, error) {
	var sessions []DCHSession
	err := r.db.Where("closed_at IS NULL").Find(&sessions).Error
	return sessions, err
}

// FERHistory returns FER samples for a session, most recent first.
func (r *Repository) FERHistory(sessionID string, limit int) ([]FERSample, error) {
	var samples []FERSample
	err := r.db.Where("session_id = ?", sessionID).
		Order("sampled_at DESC").
		Limit(limit).
		Find(&samples).Error
	return samples, err
}

// Count returns the total number of sessions ever opened.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&DCHSession{}).Count(&count).Error
	return count, err
}

// HealthCheck verifies the repository is working correctly.
func (r *Repository) HealthCheck() error {
	var count int64
	return r.db.Model(&DCHSession{}).Count(&count).Error
}
