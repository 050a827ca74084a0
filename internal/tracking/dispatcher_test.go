package tracking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MagnunAVF/affiliate-tracker/internal/store/storetest"
	"github.com/MagnunAVF/affiliate-tracker/internal/tracking"
)

func TestDispatchDoesNotWaitForClickLogger(t *testing.T) {
	s := storetest.New(t)
	rs, offer := storetest.SeedSlug(t, s, "abc123", "https://vendor.example/p/42?ref=x", true)

	clicks := &blockingLogger{release: make(chan struct{})}
	detacher := tracking.NewDetacher(time.Minute)
	d := tracking.NewDispatcher(tracking.NewResolver(s, nil), clicks, detacher, &seqIDs{})

	done := make(chan string, 1)
	go func() {
		url, err := d.Dispatch(context.Background(), tracking.RedirectRequest{Slug: "abc123", IP: "203.0.113.7", UTMSource: "newsletter"})
		if err != nil {
			t.Errorf("dispatch: %v", err)
		}
		done <- url
	}()

	select {
	case url := <-done:
		if url != "https://vendor.example/p/42?ref=x" {
			t.Fatalf("unexpected redirect target %q", url)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("dispatch blocked on the click logger")
	}

	if got := clicks.inputs(); len(got) != 0 {
		t.Fatalf("click logged before release: %+v", got)
	}

	close(clicks.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := detacher.Wait(ctx); err != nil {
		t.Fatalf("wait for detached tasks: %v", err)
	}

	got := clicks.inputs()
	if len(got) != 1 {
		t.Fatalf("expected one click, got %d", len(got))
	}
	in := got[0]
	if in.SlugID != rs.ID || in.OfferID != offer.ID || in.ClickID == 0 || in.UTMSource != "newsletter" {
		t.Fatalf("unexpected click input: %+v", in)
	}
}

func TestDispatchSwallowsClickFailures(t *testing.T) {
	s := storetest.New(t)
	storetest.SeedSlug(t, s, "abc123", "https://vendor.example/p/42", true)

	clicks := &failingLogger{}
	detacher := tracking.NewDetacher(time.Second)
	d := tracking.NewDispatcher(tracking.NewResolver(s, nil), clicks, detacher, &seqIDs{})

	url, err := d.Dispatch(context.Background(), tracking.RedirectRequest{Slug: "abc123"})
	if err != nil || url == "" {
		t.Fatalf("expected redirect despite logger failure, got %q, %v", url, err)
	}
	if err := detacher.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if clicks.calls.Load() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", clicks.calls.Load())
	}
}

func TestDispatchUnknownSlugSchedulesNothing(t *testing.T) {
	s := storetest.New(t)
	clicks := &failingLogger{}
	detacher := tracking.NewDetacher(time.Second)
	d := tracking.NewDispatcher(tracking.NewResolver(s, nil), clicks, detacher, &seqIDs{})

	if _, err := d.Dispatch(context.Background(), tracking.RedirectRequest{Slug: "nope"}); !errors.Is(err, tracking.ErrSlugNotFound) {
		t.Fatalf("expected ErrSlugNotFound, got %v", err)
	}
	_ = detacher.Wait(context.Background())
	if clicks.calls.Load() != 0 {
		t.Fatalf("click logger called for unknown slug")
	}
}

func TestDetacherSurvivesCanceledParentAndPanics(t *testing.T) {
	detacher := tracking.NewDetacher(time.Second)
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	ran := make(chan error, 1)
	detacher.Go(parent, "check_ctx", func(ctx context.Context) error {
		ran <- ctx.Err()
		return nil
	})
	detacher.Go(parent, "boom", func(context.Context) error {
		panic("boom")
	})

	if err := detacher.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if err := <-ran; err != nil {
		t.Fatalf("detached task inherited cancellation: %v", err)
	}
}
