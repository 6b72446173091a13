package feed

import (
	"testing"

	"chatsync/pkg/models"
)

func snap(chatID, msgID string) Snapshot {
	return Snapshot{ChatID: chatID, Messages: []models.Message{
		{ID: msgID, ChatID: chatID, SenderID: "a", Content: "x", TS: 1},
	}}
}

func TestPublishReachesOnlySubscribedChat(t *testing.T) {
	h := NewHub(4)
	ch1, cancel1 := h.Subscribe("c1")
	ch2, cancel2 := h.Subscribe("c2")
	defer cancel1()
	defer cancel2()

	h.Publish(snap("c1", "m1"))

	select {
	case s := <-ch1:
		if s.ChatID != "c1" || s.Messages[0].ID != "m1" {
			t.Fatalf("wrong snapshot delivered: %+v", s)
		}
	default:
		t.Fatalf("subscriber of c1 received nothing")
	}
	select {
	case s := <-ch2:
		t.Fatalf("c2 subscriber received foreign snapshot: %+v", s)
	default:
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	h := NewHub(2)
	ch, cancel := h.Subscribe("c1")
	defer cancel()

	h.Publish(snap("c1", "m1"))
	h.Publish(snap("c1", "m2"))
	h.Publish(snap("c1", "m3")) // buffer full: m1 is dropped

	got := []string{(<-ch).Messages[0].ID, (<-ch).Messages[0].ID}
	if got[0] != "m2" || got[1] != "m3" {
		t.Fatalf("surviving snapshots = %v; want [m2 m3]", got)
	}
}

func TestCancelIsSafeTwice(t *testing.T) {
	h := NewHub(4)
	ch, cancel := h.Subscribe("c1")
	if h.Subscribers("c1") != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()
	cancel()
	if h.Subscribers("c1") != 0 {
		t.Fatalf("cancel must unregister")
	}
	if _, open := <-ch; open {
		t.Fatalf("cancel must close the channel")
	}
	// publishing into a fully unsubscribed chat is a no-op
	h.Publish(snap("c1", "m1"))
}

func TestCloseClosesAllSubscribers(t *testing.T) {
	h := NewHub(4)
	ch1, _ := h.Subscribe("c1")
	ch2, _ := h.Subscribe("c2")

	h.Close()

	if _, open := <-ch1; open {
		t.Fatalf("c1 channel must be closed")
	}
	if _, open := <-ch2; open {
		t.Fatalf("c2 channel must be closed")
	}

	ch3, cancel := h.Subscribe("c3")
	defer cancel()
	if _, open := <-ch3; open {
		t.Fatalf("subscribe after close must hand back a closed channel")
	}
}
