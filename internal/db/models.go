package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Crush statuses.
const (
	CrushPending  = "pending"
	CrushMatched  = "matched"
	CrushRevealed = "revealed"
)

// Notification types.
const (
	NotificationNewCrush = "new_crush"
	NotificationNewMatch = "new_match"
	NotificationSystem   = "system"
)

// User table. Email is unique and user-facing; relationships reference ID.
type User struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email     string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string     `gorm:"size:128;index" json:"name"`
	Image     string     `gorm:"size:512" json:"image,omitempty"`
	Age       *int       `json:"age,omitempty"`
	Location  string     `gorm:"size:128" json:"location,omitempty"`
	Bio       string     `gorm:"type:text" json:"bio,omitempty"`
	Interests []string   `gorm:"serializer:json" json:"interests,omitempty"`
	Gender    string     `gorm:"size:16" json:"gender,omitempty"`
	GoogleID  *string    `gorm:"uniqueIndex;size:255" json:"-"`
	IsOnline  bool       `gorm:"default:false" json:"is_online"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayName is the name when set, else the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Crush is a directed "actor likes target" edge.
//
// Unique: (ActorUserID, TargetUserID)
//   - Backs the duplicate pre-check so concurrent identical adds cannot both insert.
//
// Indexes:
//   - idx_crush_target_created(target_user_id, created_at)
//     Serves admirer lists and the reciprocity lookup from the target side.
//
// TargetEmail is a snapshot taken at creation time and is only used for display.
type Crush struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ActorUserID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_crush_actor_target,priority:1" json:"user_id"`
	TargetUserID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_crush_actor_target,priority:2;index:idx_crush_target_created,priority:1" json:"target_user_id"`
	TargetEmail  string    `gorm:"size:255;not null" json:"crush_name"`
	Status       string    `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_crush_target_created,priority:2" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Crush) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Match is the undirected record of a mutual crush.
// User1ID < User2ID always holds, so the unique index gives one row per pair.
type Match struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	User1ID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_match_pair,priority:1" json:"user1_id"`
	User2ID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_match_pair,priority:2;index" json:"user2_id"`
	MatchedAt time.Time `gorm:"autoCreateTime" json:"matched_at"`
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Other returns the id of the participant that is not userID.
func (m *Match) Other(userID string) string {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// Notification is a per-recipient event with English and French texts.
type Notification struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(36);not null;index:idx_notification_user_created,priority:1" json:"user_id"`
	Type       string    `gorm:"size:32;not null" json:"type"`
	TitleEN    string    `gorm:"size:255" json:"title_en"`
	TitleFR    string    `gorm:"size:255" json:"title_fr"`
	MessageEN  string    `gorm:"type:text" json:"message_en"`
	MessageFR  string    `gorm:"type:text" json:"message_fr"`
	FromUserID *string   `gorm:"type:varchar(36)" json:"from_user_id"`
	IsRead     bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_notification_user_created,priority:2" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// Title returns the title in lang, falling back to English.
func (n *Notification) Title(lang string) string {
	if lang == "fr" && n.TitleFR != "" {
		return n.TitleFR
	}
	return n.TitleEN
}

// Message returns the message in lang, falling back to English.
func (n *Notification) Message(lang string) string {
	if lang == "fr" && n.MessageFR != "" {
		return n.MessageFR
	}
	return n.MessageEN
}

// PushSubscription stores one browser/device endpoint for a user.
// Subscription is opaque: Web Push JSON or an FCM registration token.
type PushSubscription struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID       string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Endpoint     string    `gorm:"size:512;not null;uniqueIndex" json:"endpoint"`
	Subscription string    `gorm:"type:text;not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (p *PushSubscription) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{&User{}, &Crush{}, &Match{}, &Notification{}, &PushSubscription{}}
}
