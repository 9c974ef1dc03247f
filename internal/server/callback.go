package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
)

// CallbackResult is the outcome of a terminal login.
type CallbackResult struct {
	Credential *models.Credential
	err        error
}

func (c *CallbackResult) Error() error {
	return c.err
}

// CallbackHandler completes a single login started from the terminal.
//
// It accepts one callback only and delivers its outcome on [CallbackHandler.Result]. Requests
// whose state does not match the pending attempt are rejected without ending the login. State
// validation and persistence are done by the [AuthFlow].
type CallbackHandler struct {
	flow        AuthFlow
	redirectURI string
	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler for an attempt begun with redirectURI.
func NewCallbackHandler(flow AuthFlow, redirectURI string) *CallbackHandler {
	return &CallbackHandler{
		flow:        flow,
		redirectURI: redirectURI,
		resultChan:  make(chan CallbackResult, 1),
	}
}

func (h *CallbackHandler) Routes() []string {
	return []string{"GET /auth/callback"}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	cred, err := h.flow.Complete(r.Context(), r.URL.String(), h.redirectURI)
	if errors.Is(err, shared.ErrStateMismatch) {
		// Not our attempt; keep waiting for the real callback.
		h.mu.Lock()
		h.callbackHit = false
		h.mu.Unlock()
		http.Error(w, "Authorization failed: "+err.Error(), statusFor(err))
		return
	}
	if err != nil {
		h.Send(CallbackResult{err: err})
		http.Error(w, "Authorization failed: "+err.Error(), statusFor(err))
		return
	}

	h.Send(CallbackResult{Credential: cred})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// Send delivers the result (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result receives exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Google Photos Linked</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #4285F4; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Google Photos linked</h1>
        <p>You can close this window and return to familybook.</p>
    </div>
</body>
</html>
`
