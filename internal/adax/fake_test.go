package adax

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const testContent = `{
	"homes": [{"id": 10, "name": "Cabin"}],
	"rooms": [
		{"id": 1, "homeId": 10, "name": "Living room", "heatingEnabled": true, "targetTemperature": 1900, "temperature": 2050},
		{"id": 2, "homeId": 10, "name": "Bedroom", "heatingEnabled": false, "targetTemperature": 1600, "temperature": 1725},
		{"id": 3, "homeId": 10, "name": "Bathroom", "heatingEnabled": true, "targetTemperature": 2200, "temperature": 2190}
	],
	"devices": [{"id": 100, "homeId": 10, "roomId": 1, "name": "Heater", "type": "Heater"}]
}`

// fakeAdax is an in-memory Adax API
type fakeAdax struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	token         string
	tokenStatus   int
	tokenBody     string
	tokenHangup   bool
	tokenCalls    int
	content       string
	contentCalls  int
	contentQuery  []string
	energyCalls   map[int]int
	energyDelay   map[int]time.Duration
	energyStatus  map[int]int
	controlStatus int
	controlDelay  time.Duration
	controlBodies []controlRequest
	controlActive int
	controlMaxPar int
	authHeaders   []string
}

func newFakeAdax(t *testing.T) *fakeAdax {
	t.Helper()
	f := &fakeAdax{
		t:             t,
		token:         "token-1",
		tokenStatus:   http.StatusOK,
		content:       testContent,
		energyCalls:   make(map[int]int),
		energyDelay:   make(map[int]time.Duration),
		energyStatus:  make(map[int]int),
		controlStatus: http.StatusOK,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAdax) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/auth/token":
		f.handleToken(w, r)
		return
	}

	f.mu.Lock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/rest/v1/content/":
		f.mu.Lock()
		f.contentCalls++
		f.contentQuery = append(f.contentQuery, r.URL.RawQuery)
		body := f.content
		f.mu.Unlock()
		_, _ = io.WriteString(w, body)

	case strings.HasPrefix(r.URL.Path, "/rest/v1/energy_log/"):
		id, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/rest/v1/energy_log/"))
		f.mu.Lock()
		f.energyCalls[id]++
		delay := f.energyDelay[id]
		status := f.energyStatus[id]
		calls := f.energyCalls[id]
		f.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		_, _ = fmt.Fprintf(w, `{"points":[{"fromTime":1700000000000,"energyWh":%d}]}`, id*100+calls)

	case r.URL.Path == "/rest/v1/control/":
		var req controlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Errorf("control body: %v", err)
		}
		f.mu.Lock()
		f.controlBodies = append(f.controlBodies, req)
		f.controlActive++
		if f.controlActive > f.controlMaxPar {
			f.controlMaxPar = f.controlActive
		}
		status := f.controlStatus
		delay := f.controlDelay
		f.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		f.mu.Lock()
		f.controlActive--
		f.mu.Unlock()
		w.WriteHeader(status)

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAdax) handleToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.tokenCalls++
	status := f.tokenStatus
	token := f.token
	body := f.tokenBody
	hangup := f.tokenHangup
	f.mu.Unlock()

	if hangup {
		hj, ok := w.(http.Hijacker)
		if !ok {
			f.t.Error("response writer does not support hijacking")
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
		return
	}

	if err := r.ParseForm(); err != nil {
		f.t.Errorf("token form: %v", err)
	}
	if r.Form.Get("grant_type") != "password" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	if body != "" {
		_, _ = io.WriteString(w, body)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"access_token": token, "token_type": "Bearer"})
}

func (f *fakeAdax) set(fn func(f *fakeAdax)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAdax) counts() (token, content, control int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls, f.contentCalls, len(f.controlBodies)
}

func (f *fakeAdax) bodies() []controlRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]controlRequest, len(f.controlBodies))
	copy(out, f.controlBodies)
	return out
}

func (f *fakeAdax) energyCallsFor(id int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.energyCalls[id]
}

// newTestClient returns a client against f with a short rate limit
func newTestClient(f *fakeAdax, interval time.Duration, opts ...Option) *Client {
	c := New(Config{
		BaseURL:   f.server.URL,
		AccountID: "123456",
		Password:  "secret",
		Timeout:   time.Second,
	}, append([]Option{withMinInterval(interval)}, opts...)...)
	f.t.Cleanup(c.Close)
	return c
}

func boolPtr(b bool) *bool {
	return &b
}
