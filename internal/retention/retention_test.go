package retention

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chatsync/pkg/config"
	"chatsync/pkg/models"
	"chatsync/pkg/store"
)

func TestStartDisabled(t *testing.T) {
	cancel, err := Start(context.Background(), nil, config.RetentionConfig{})
	if err != nil {
		t.Fatalf("disabled retention must not error: %v", err)
	}
	cancel()
}

func TestStartRejectsBadConfig(t *testing.T) {
	if _, err := Start(context.Background(), nil, config.RetentionConfig{Enabled: true}); err == nil {
		t.Fatalf("enabled retention without a period must fail")
	}
	bad := config.RetentionConfig{Enabled: true, Period: config.Duration(time.Hour), Cron: "not a cron"}
	if _, err := Start(context.Background(), nil, bad); err == nil {
		t.Fatalf("invalid cron must fail")
	}
}

func TestRunOncePurges(t *testing.T) {
	s, err := store.Open(t.TempDir(), nil, 25)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	old := time.Now().UTC().Add(-48 * time.Hour).UnixNano()
	recent := time.Now().UTC().UnixNano()
	for i, ts := range []int64{old, old + 1, recent} {
		m := models.Message{ID: fmt.Sprintf("m%d", i+1), ChatID: "c1", SenderID: "a", Content: "x", TS: ts}
		if err := s.SaveMessage(m); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	RunOnce(s, config.RetentionConfig{
		Enabled: true, Period: config.Duration(24 * time.Hour), BatchSize: 10,
	})

	msgs, err := s.LatestWindow("c1", 25)
	if err != nil {
		t.Fatalf("latest window: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m3" {
		t.Fatalf("surviving = %+v; want only the recent message", msgs)
	}
}
