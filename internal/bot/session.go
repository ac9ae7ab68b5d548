package bot

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/cache"
)

// Flow is the multi-step conversation a chat is in.
type Flow int

const (
	FlowNone Flow = iota
	FlowExpense
	FlowIncome
	FlowAddCategory
	FlowUpdateCategory
	FlowDeleteCategory
)

// Step is the input a flow waits for next.
type Step int

const (
	StepAmount Step = iota
	StepCategory
	StepDescription
	StepName
	StepConfirm
)

// Session is the conversation state of one chat.
type Session struct {
	Flow     Flow
	Step     Step
	Amount   decimal.Decimal
	Category string
}

// Active reports whether a conversation is in progress.
func (s Session) Active() bool {
	return s.Flow != FlowNone
}

const (
	DefaultSessionTTL = 30 * time.Minute
	maxSessions       = 64
)

// SessionStore keeps conversation state per chat id. Abandoned
// conversations expire after the ttl.
type SessionStore struct {
	sessions *cache.LRUCache[Session]
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{sessions: cache.NewLRUCache[Session](maxSessions, ttl)}
}

// Get returns the chat's session, or an inactive one.
func (s *SessionStore) Get(chatID int64) Session {
	sess, _ := s.sessions.Get(key(chatID))
	return sess
}

func (s *SessionStore) Set(chatID int64, sess Session) {
	if !sess.Active() {
		s.Clear(chatID)
		return
	}
	s.sessions.Set(key(chatID), sess)
}

func (s *SessionStore) Clear(chatID int64) {
	s.sessions.Delete(key(chatID))
}

// CleanExpired drops expired sessions. It lets a cache.Janitor sweep the
// store.
func (s *SessionStore) CleanExpired() int {
	return s.sessions.CleanExpired()
}

func key(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
