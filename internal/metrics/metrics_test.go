package metrics

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func TestServeRegistersMetrics(t *testing.T) {
	srv, err := Serve("127.0.0.1:0", zerolog.Nop())
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	defer srv.Close()

	EventsTotal.WithLabelValues("executed").Inc()
	IntentsTotal.WithLabelValues("testnet").Add(3)

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	want := map[string]bool{"transfer_events_total": false, "transfer_intents_total": false}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("%s metric not found", name)
		}
	}
}

func TestServeScrapesBoundAddress(t *testing.T) {
	srv, err := Serve("127.0.0.1:0", zerolog.Nop())
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	defer srv.Close()

	resp, err := http.Get("http://" + srv.Addr + "/metrics")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestServeReportsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	srv, err := Serve(ln.Addr().String(), zerolog.Nop())
	if err == nil {
		srv.Close()
		t.Fatalf("expected bind failure on busy %s", ln.Addr())
	}
	if !strings.Contains(err.Error(), ln.Addr().String()) {
		t.Fatalf("error should name the address: %v", err)
	}
}

func TestHandlerExposesEvents(t *testing.T) {
	EventsTotal.WithLabelValues("send_failed").Inc()

	ts := httptest.NewServer(promhttp.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `transfer_events_total{kind="send_failed"}`) {
		t.Fatalf("expected send_failed counter in scrape output")
	}
}
