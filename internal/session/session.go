// Package session holds the per-learner mutable state of the tutoring flow.
package session

import (
	"slices"
	"time"

	"github.com/m3rciful/tutorbot/internal/content"
	"github.com/m3rciful/tutorbot/internal/dialog"
)

// Mode is the conversational state of a session.
type Mode int

const (
	Choosing Mode = iota
	Lesson
	Dialog
	Translate
	Question
	Ended
)

// Modes lists every mode in declaration order.
var Modes = []Mode{Choosing, Lesson, Dialog, Translate, Question, Ended}

func (m Mode) String() string {
	switch m {
	case Choosing:
		return "choosing"
	case Lesson:
		return "lesson"
	case Dialog:
		return "dialog"
	case Translate:
		return "translate"
	case Question:
		return "question"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// TopicSet is an append-only ordered set of topic ids.
type TopicSet struct {
	ids []string
}

// Add inserts id and reports whether it was new.
func (t *TopicSet) Add(id string) bool {
	if id == "" || t.Has(id) {
		return false
	}
	t.ids = append(t.ids, id)
	return true
}

func (t TopicSet) Has(id string) bool { return slices.Contains(t.ids, id) }
func (t TopicSet) Len() int           { return len(t.ids) }

// List returns the ids in completion order.
func (t TopicSet) List() []string { return slices.Clone(t.ids) }

// Session is one learner's record. Access it only through Store.With.
type Session struct {
	UserID int64
	Mode   Mode

	CompletedTopics TopicSet
	CurrentTopic    string
	PhraseIndex     int

	CorrectCount int
	TotalCount   int
	Streak       int

	Dialog          *dialog.Buffer
	VoicePreference string

	// Pending is the exercise posed in Translate mode; cleared once graded.
	Pending *content.Exercise
	// LastExercise is the table index posed last, or -1.
	LastExercise int

	// Generation is bumped whenever the flow is interrupted; results of turns
	// prepared under an older generation are discarded.
	Generation uint64

	LastActivity time.Time
}

func newSession(userID int64, historySize int) *Session {
	return &Session{
		UserID: userID,
		Mode:   Choosing,
		Dialog: dialog.NewBuffer(historySize),

		LastExercise: -1,
	}
}

// Interrupt moves the session to mode and invalidates in-flight turns.
func (s *Session) Interrupt(mode Mode) {
	s.Mode = mode
	s.Pending = nil
	s.Generation++
}

// Accuracy is the share of correct answers in percent.
func (s *Session) Accuracy() float64 {
	if s.TotalCount == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(s.TotalCount) * 100
}
