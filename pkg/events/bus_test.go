package events

import (
	"testing"
	"time"
)

func TestBus_PublishDeliversToSubscriber(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe("alert-cam_001")

	b.Publish("alert-cam_001", AlertPayload{Type: "intrusion"})

	select {
	case ev := <-ch:
		payload, ok := ev.Data.(AlertPayload)
		if !ok || payload.Type != "intrusion" {
			t.Fatalf("unexpected event data: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestBus_PublishDoesNotCrossTopics(t *testing.T) {
	b := NewBus()
	alertCh := b.Subscribe("alert-cam_001")
	ptzCh := b.Subscribe("ptz-autotrack")

	b.Publish("ptz-autotrack", PTZAutotrackPayload{PTZAutotrack: true})

	select {
	case <-alertCh:
		t.Fatal("alert subscriber should not receive a ptz-autotrack event")
	case ev := <-ptzCh:
		if ev.Data.(PTZAutotrackPayload).PTZAutotrack != true {
			t.Errorf("unexpected payload: %+v", ev.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for ptz-autotrack event")
	}
}

func TestBus_SlowSubscriberDropsRatherThanBlocks(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe("zoom-level")

	for i := 0; i < 100; i++ {
		b.Publish("zoom-level", ZoomLevelPayload{Zoom: float64(i)})
	}

	if len(ch) == 0 {
		t.Fatal("expected at least one buffered event")
	}
}

func TestBus_CloseClosesSubscriberChannels(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe("alert-cam_001")
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestIntrusionPublisher_PublishesAlertTopic(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe("alert-cam_002")
	p := IntrusionPublisher{Bus: b}

	p.PublishIntrusion("cam_002")

	select {
	case ev := <-ch:
		if ev.Topic != "alert-cam_002" {
			t.Errorf("expected topic alert-cam_002, got %s", ev.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for intrusion alert")
	}
}
