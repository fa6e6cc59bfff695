package llhls

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cleoag/llhls/internal/segment"
)

var testStart = time.Date(2023, 9, 1, 12, 0, 0, 0, time.UTC)

func newPublisher() *Publisher {
	return &Publisher{
		Settings:   NewStreamSettings(6*time.Second, time.Second),
		WindowSize: 3,
	}
}

func newPart(data string, independent bool) segment.Part {
	return segment.Part{Duration: time.Second, Independent: independent, Data: []byte(data)}
}

// doGET runs a request to completion on the calling goroutine
func doGET(p *Publisher, target, rangeHdr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if rangeHdr != "" {
		req.Header.Set("Range", rangeHdr)
	}
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)
	return rec
}

type pendingRequest struct {
	rec  *httptest.ResponseRecorder
	done chan struct{}
}

// goGET starts a request that is expected to suspend. Pair with
// waitForWaiters before mutating the publisher, and wait to collect the
// response.
func goGET(p *Publisher, target, rangeHdr string) *pendingRequest {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if rangeHdr != "" {
		req.Header.Set("Range", rangeHdr)
	}
	pr := &pendingRequest{rec: httptest.NewRecorder(), done: make(chan struct{})}
	go func() {
		defer close(pr.done)
		p.ServeHTTP(pr.rec, req)
	}()
	return pr
}

func (pr *pendingRequest) wait(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	select {
	case <-pr.done:
		return pr.rec
	case <-time.After(5 * time.Second):
		t.Fatal("request did not complete")
		return nil
	}
}

// waitForWaiters blocks until n requests are parked on the publisher
func waitForWaiters(t *testing.T, p *Publisher, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.subscriberCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d parked requests, have %d", n, p.subscriberCount())
		}
		time.Sleep(time.Millisecond)
	}
}
