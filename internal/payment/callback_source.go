package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// CallbackNavigationSource bridges provider redirects back into a waiting
// capture. The provider sends the buyer's browser to the return or cancel
// endpoint with the approval token in the query string; the full callback
// URL is delivered to the capture that opened that token's approval URL.
type CallbackNavigationSource struct {
	mu      sync.Mutex
	waiters map[string]chan string
}

func NewCallbackNavigationSource() *CallbackNavigationSource {
	return &CallbackNavigationSource{
		waiters: make(map[string]chan string),
	}
}

func (s *CallbackNavigationSource) Navigate(ctx context.Context, approvalURL string) (<-chan string, error) {
	parsed, err := url.Parse(approvalURL)
	if err != nil {
		return nil, fmt.Errorf("parse approval url: %w", err)
	}
	token := parsed.Query().Get("token")
	if token == "" {
		return nil, fmt.Errorf("approval url %q has no token", approvalURL)
	}

	events := make(chan string, 1)

	s.mu.Lock()
	s.waiters[token] = events
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.waiters, token)
		s.mu.Unlock()
	}()

	return events, nil
}

// ServeHTTP handles the provider's return and cancel redirects. The path
// the provider was configured with determines the outcome, so the handler
// only forwards the URL; classification happens in the capture.
func (s *CallbackNavigationSource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	events, ok := s.waiters[token]
	if ok {
		delete(s.waiters, token)
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "no pending payment for token", http.StatusNotFound)
		return
	}

	events <- r.URL.String()
	close(events)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><p>You can return to the app now.</p></body></html>")
}
