package nats_service

import (
	"fmt"
	"strings"

	"github.com/karthikraju391/go-nats-chat-relay/models"
)

// Subjects derives the subject names under a common prefix.
type Subjects struct {
	prefix string
}

func NewSubjects(prefix string) Subjects {
	return Subjects{prefix: prefix}
}

// Event is the subject a domain event of the given kind is published on.
func (s Subjects) Event(kind models.EventKind) string {
	return fmt.Sprintf("%s.events.%s", s.prefix, kind)
}

func (s Subjects) AllEvents() string {
	return s.prefix + ".events.>"
}

func (s Subjects) Deliveries() string {
	return s.prefix + ".deliveries"
}

// EventKind recovers the event kind from a subject produced by Event.
func (s Subjects) EventKind(subject string) (models.EventKind, bool) {
	kind, ok := strings.CutPrefix(subject, s.prefix+".events.")
	if !ok || kind == "" {
		return "", false
	}
	return models.EventKind(kind), true
}
