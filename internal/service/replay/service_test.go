package replay_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zhouzirui/mindpeers/client/internal/model/trend"
	"github.com/zhouzirui/mindpeers/client/internal/service/replay"
)

func TestServiceLoginIsIdempotent(t *testing.T) {
	svc := replay.NewService(nil, nil)
	ctx := context.Background()

	first, err := svc.Login(ctx, "sam@example.com")
	if err != nil {
		t.Fatalf("Login err: %v", err)
	}
	again, err := svc.Login(ctx, "SAM@example.com ")
	if err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if first.ID != again.ID {
		t.Fatalf("expected same user, got %d and %d", first.ID, again.ID)
	}

	other, _ := svc.Login(ctx, "kim@example.com")
	if other.ID == first.ID {
		t.Fatal("expected a new id for a new email")
	}

	if _, err := svc.Login(ctx, " "); !errors.Is(err, replay.ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}
}

func TestServiceConsent(t *testing.T) {
	svc := replay.NewService(nil, nil)
	ctx := context.Background()
	user, _ := svc.Login(ctx, "sam@example.com")

	if err := svc.Consent(ctx, user.ID, " 555-0100 "); err != nil {
		t.Fatalf("Consent err: %v", err)
	}
	got, _ := svc.User(user.ID)
	if !got.ConsentGiven || got.EmergencyPhone != "555-0100" {
		t.Fatalf("unexpected user after consent: %+v", got)
	}

	if err := svc.Consent(ctx, 999, ""); !errors.Is(err, replay.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.Consent(ctx, 0, ""); !errors.Is(err, replay.ErrUserIDRequired) {
		t.Fatalf("expected ErrUserIDRequired, got %v", err)
	}
}

func TestServiceMessageAndTrend(t *testing.T) {
	svc := replay.NewService(nil, nil)
	ctx := context.Background()
	user, _ := svc.Login(ctx, "sam@example.com")

	points, summary, err := svc.Trend(ctx, user.ID)
	if err != nil {
		t.Fatalf("Trend err: %v", err)
	}
	if len(points) != 0 || summary != nil {
		t.Fatalf("expected empty trend, got %v %v", points, summary)
	}

	for _, text := range []string{"I feel hopeless", "I'm so anxious", "feeling a bit better today"} {
		if _, err := svc.Message(ctx, user.ID, text); err != nil {
			t.Fatalf("Message(%q) err: %v", text, err)
		}
	}

	points, summary, err = svc.Trend(ctx, user.ID)
	if err != nil {
		t.Fatalf("Trend err: %v", err)
	}
	if len(points) != 3 || points[0].Index != 1 || points[2].Index != 3 {
		t.Fatalf("unexpected points: %+v", points)
	}
	if summary == nil || summary.MoodTrend != trend.Improving || summary.TotalMessages != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(svc.Journal(user.ID)) != 3 {
		t.Fatal("expected three journal entries")
	}
}

func TestServiceMessageValidation(t *testing.T) {
	svc := replay.NewService(nil, nil)
	ctx := context.Background()

	if _, err := svc.Message(ctx, 1, "  "); !errors.Is(err, replay.ErrMessageRequired) {
		t.Fatalf("expected ErrMessageRequired, got %v", err)
	}
	if _, err := svc.Message(ctx, 42, "hello"); !errors.Is(err, replay.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, _, err := svc.Trend(ctx, 42); !errors.Is(err, replay.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestServiceTrendPreviewIsTruncated(t *testing.T) {
	svc := replay.NewService(nil, nil)
	ctx := context.Background()
	user, _ := svc.Login(ctx, "sam@example.com")

	long := strings.Repeat("é", 80)
	if _, err := svc.Message(ctx, user.ID, long); err != nil {
		t.Fatalf("Message err: %v", err)
	}

	points, _, _ := svc.Trend(ctx, user.ID)
	want := strings.Repeat("é", 50) + "..."
	if points[0].MessagePreview != want {
		t.Fatalf("unexpected preview %q", points[0].MessagePreview)
	}
}
