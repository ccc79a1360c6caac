package memory

import (
	"context"
	"testing"

	"github.com/JakeFAU/activity-heatmap/internal/publisher"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "activity-runs", map[string]string{"k": "v"})
	if err != nil || id1 != "memory-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	id2, err := pub.Publish(context.Background(), "activity-audit", "payload")
	if err != nil || id2 != "memory-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	msgs := pub.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Topic != "activity-runs" || msgs[1].Topic != "activity-audit" {
		t.Fatalf("topics not recorded correctly: %+v", msgs)
	}

	msgs[0].Topic = "modified"
	if pub.Messages()[0].Topic == "modified" {
		t.Fatal("expected Messages() to return a copy")
	}
}

func TestPublisherRunsCompleted(t *testing.T) {
	t.Parallel()

	pub := New()
	_, _ = pub.Publish(context.Background(), "activity-runs", "noise")
	_, _ = pub.Publish(context.Background(), "activity-runs", publisher.RunCompleted{RunID: "r1", Entries: 4})

	runs := pub.RunsCompleted()
	if len(runs) != 1 || runs[0].RunID != "r1" || runs[0].Entries != 4 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}
