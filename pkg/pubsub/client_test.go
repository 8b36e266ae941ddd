package pubsub

import (
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/neighbridge/neighbridge-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	tests := []struct {
		project, name, want string
	}{
		{project: "proj", name: "nb-community-events", want: "projects/proj/topics/nb-community-events"},
		{project: "proj", name: " projects/other/topics/t ", want: "projects/other/topics/t"},
		{project: "", name: "t", want: ""},
		{project: "proj", name: "  ", want: ""},
	}
	for _, tc := range tests {
		if got := TopicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.Publisher("t") != nil || c.CommunityPublisher() != nil {
		t.Fatal("nil client should return nil publishers")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}

func TestApplyBatchingKeepsDefaultsForZeroValues(t *testing.T) {
	settings := pubsub.DefaultPublishSettings
	applyBatching(&settings, config.PubSubConfig{BatchDelay: 5 * time.Millisecond})

	if settings.DelayThreshold != 5*time.Millisecond {
		t.Fatalf("expected delay override, got %v", settings.DelayThreshold)
	}
	if settings.CountThreshold != pubsub.DefaultPublishSettings.CountThreshold {
		t.Fatalf("count threshold should keep the library default, got %d", settings.CountThreshold)
	}
	if settings.Timeout != pubsub.DefaultPublishSettings.Timeout {
		t.Fatalf("timeout should keep the library default, got %v", settings.Timeout)
	}
}
