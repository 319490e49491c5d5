package governance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"lending-risk-monitor/internal/domain"
)

type fakeSource struct {
	events map[domain.GovEventType][]*domain.GovEvent
	fail   bool
}

func (f *fakeSource) GovSetEvents(ctx context.Context, et domain.GovEventType, limit, offset int) ([]*domain.GovEvent, error) {
	if f.fail {
		return nil, errors.New("indexer down")
	}
	return f.events[et], nil
}

type memState struct {
	seen map[domain.GovEventType]int64
}

func newMemState() *memState {
	return &memState{seen: map[domain.GovEventType]int64{}}
}

func (m *memState) LastSeen(ctx context.Context, et domain.GovEventType) (int64, error) {
	return m.seen[et], nil
}

func (m *memState) SetLastSeen(ctx context.Context, et domain.GovEventType, block int64) error {
	m.seen[et] = block
	return nil
}

type recordingNotifier struct {
	sent   []*domain.GovEvent
	failAt int64 // block number to fail on, 0 disables
}

func (r *recordingNotifier) NotifyGovEvent(ctx context.Context, event *domain.GovEvent) error {
	if r.failAt != 0 && event.BlockNumber == r.failAt {
		return errors.New("delivery failed")
	}
	r.sent = append(r.sent, event)
	return nil
}

func govEvent(et domain.GovEventType, block int64) *domain.GovEvent {
	return &domain.GovEvent{
		EventType:    et,
		VaultAddress: "0xvault",
		BlockNumber:  block,
		TxnHash:      fmt.Sprintf("0x%d", block),
	}
}

func TestPoller_NotifiesNewEventsInChainOrder(t *testing.T) {
	src := &fakeSource{events: map[domain.GovEventType][]*domain.GovEvent{
		domain.GovSetLTV: {
			govEvent(domain.GovSetLTV, 300),
			govEvent(domain.GovSetLTV, 100),
			govEvent(domain.GovSetLTV, 200),
		},
	}}
	store := newMemState()
	notifier := &recordingNotifier{}

	p := NewPoller(PollerOptions{
		Source:     src,
		Store:      store,
		Notifier:   notifier,
		EventTypes: []domain.GovEventType{domain.GovSetLTV},
		Logger:     zerolog.Nop(),
	})

	result := p.Poll(context.Background())

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.EventsSeen != 3 || result.EventsNotified != 3 {
		t.Errorf("expected 3 seen and notified, got seen=%d notified=%d", result.EventsSeen, result.EventsNotified)
	}

	if len(notifier.sent) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notifier.sent))
	}
	for i, want := range []int64{100, 200, 300} {
		if notifier.sent[i].BlockNumber != want {
			t.Errorf("notification %d at block %d, want %d", i, notifier.sent[i].BlockNumber, want)
		}
	}

	if store.seen[domain.GovSetLTV] != 300 {
		t.Errorf("expected watermark 300, got %d", store.seen[domain.GovSetLTV])
	}
}

func TestPoller_SkipsAlreadySeenEvents(t *testing.T) {
	src := &fakeSource{events: map[domain.GovEventType][]*domain.GovEvent{
		domain.GovSetCaps: {
			govEvent(domain.GovSetCaps, 300),
			govEvent(domain.GovSetCaps, 100),
		},
	}}
	store := newMemState()
	store.seen[domain.GovSetCaps] = 100
	notifier := &recordingNotifier{}

	p := NewPoller(PollerOptions{
		Source:     src,
		Store:      store,
		Notifier:   notifier,
		EventTypes: []domain.GovEventType{domain.GovSetCaps},
		Logger:     zerolog.Nop(),
	})

	result := p.Poll(context.Background())

	if result.EventsNotified != 1 {
		t.Errorf("expected 1 notified, got %d", result.EventsNotified)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].BlockNumber != 300 {
		t.Errorf("expected only block 300 notified, got %+v", notifier.sent)
	}
}

func TestPoller_DeliveryFailureKeepsUnnotifiedTail(t *testing.T) {
	src := &fakeSource{events: map[domain.GovEventType][]*domain.GovEvent{
		domain.GovSetLTV: {
			govEvent(domain.GovSetLTV, 100),
			govEvent(domain.GovSetLTV, 200),
			govEvent(domain.GovSetLTV, 300),
		},
	}}
	store := newMemState()
	notifier := &recordingNotifier{failAt: 200}

	p := NewPoller(PollerOptions{
		Source:     src,
		Store:      store,
		Notifier:   notifier,
		EventTypes: []domain.GovEventType{domain.GovSetLTV},
		Logger:     zerolog.Nop(),
	})

	result := p.Poll(context.Background())

	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
	if result.EventsNotified != 1 {
		t.Errorf("expected 1 notified before failure, got %d", result.EventsNotified)
	}

	// Watermark stops at the last delivered block so 200 and 300 are
	// retried next cycle.
	if store.seen[domain.GovSetLTV] != 100 {
		t.Errorf("expected watermark 100, got %d", store.seen[domain.GovSetLTV])
	}
}

func TestPoller_SourceFailureIsRecordedPerType(t *testing.T) {
	src := &fakeSource{fail: true}
	p := NewPoller(PollerOptions{
		Source:     src,
		Store:      newMemState(),
		Notifier:   &recordingNotifier{},
		EventTypes: []domain.GovEventType{domain.GovSetLTV, domain.GovSetCaps},
		Logger:     zerolog.Nop(),
	})

	result := p.Poll(context.Background())

	if len(result.Errors) != 2 {
		t.Errorf("expected one error per type, got %v", result.Errors)
	}
}

func TestWebhookNotifier_SendsPayload(t *testing.T) {
	var gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = buf
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, zerolog.Nop())
	ev := govEvent(domain.GovSetInterestFee, 500)
	ev.Params = map[string]string{"newFee": "100"}

	if err := n.NotifyGovEvent(context.Background(), ev); err != nil {
		t.Fatalf("NotifyGovEvent: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("unexpected content type %q", gotContentType)
	}
	body := string(gotBody)
	for _, want := range []string{"Gov Set Interest Fee", "gov-set-interest-fee", "newFee"} {
		if !strings.Contains(body, want) {
			t.Errorf("payload missing %q: %s", want, body)
		}
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, zerolog.Nop())
	if err := n.NotifyGovEvent(context.Background(), govEvent(domain.GovSetLTV, 1)); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}
