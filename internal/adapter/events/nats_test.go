package events

import (
	"context"
	"testing"

	"rendezvous/internal/domain/event"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		topic string
		typ   event.Type
		want  string
	}{
		{"", event.MeetingStarted, "rendezvous.meeting.started"},
		{"campus", event.PostCreated, "campus.post.created"},
	}

	for _, tt := range tests {
		p := NewNATSPublisher(nil, tt.topic)
		if got := p.Subject(event.Event{Type: tt.typ}); got != tt.want {
			t.Errorf("Subject(%q, %s) = %q, want %q", tt.topic, tt.typ, got, tt.want)
		}
	}
}

func TestNop(t *testing.T) {
	var p event.Publisher = Nop{}
	if err := p.Publish(context.Background(), event.Event{Type: event.PostDeleted}); err != nil {
		t.Fatalf("Nop.Publish: %v", err)
	}
}
