package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/etoilefixes/ubuntu-error-log-tool/internal/engine"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/httpserver"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/model"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/sockserv"
)

// fakeJournalctl is a stand-in for the real tool. It inspects its arguments
// the same way the daemon builds them: analyze requests ask for JSON records,
// stream requests (without output_json) ask for short-iso text.
const fakeJournalctl = `#!/bin/sh
mode=plain
for arg in "$@"; do
	case "$arg" in
		--output=json) mode=json ;;
	esac
done
if [ "$mode" = json ]; then
cat <<'EOF'
{"MESSAGE":"upstream timed out","PRIORITY":"3","_SYSTEMD_UNIT":"edge-proxy.service","_EXE":"/opt/acme/bin/edged"}
{"MESSAGE":"worker process exited","PRIORITY":"2","_SYSTEMD_UNIT":"edge-proxy.service","_EXE":"/opt/acme/bin/edged"}
{"MESSAGE":"I/O error, dev sda","PRIORITY":"4","SYSLOG_IDENTIFIER":"kernel"}
not a json record
EOF
else
cat <<'EOF'
2026-08-29T12:00:01+0000 host smartd[42]: disk error detected on /dev/sda
2026-08-29T12:00:02+0000 host cron[43]: (root) CMD run-parts
2026-08-29T12:00:03+0000 host smartd[42]: disk error persists
EOF
fi
`

type e2eStack struct {
	socket  *sockserv.Server
	api     *httpserver.Server
	sock    string
	apiAddr string
}

func startE2EStack(t *testing.T) *e2eStack {
	t.Helper()

	dir := t.TempDir()
	program := filepath.Join(dir, "fake-journalctl")
	if err := os.WriteFile(program, []byte(fakeJournalctl), 0o755); err != nil {
		t.Fatalf("write fake journalctl: %v", err)
	}

	eng := engine.New(program)

	sock := filepath.Join(dir, "logtool-e2e.sock")
	socket := sockserv.NewServer(sock, eng, 0)
	if err := socket.Start(); err != nil {
		t.Fatalf("socket Start: %v", err)
	}

	api := httpserver.NewServer("127.0.0.1:0", socket)
	if err := api.Start(); err != nil {
		t.Fatalf("http Start: %v", err)
	}

	stack := &e2eStack{
		socket:  socket,
		api:     api,
		sock:    sock,
		apiAddr: api.Addr(),
	}

	waitEventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		c, err := sockserv.Dial(stack.sock)
		if err != nil {
			return false
		}
		_ = c.Close()
		return true
	}, "socket endpoint did not become ready")

	t.Cleanup(func() {
		stack.socket.Stop()
		_ = stack.api.Stop()
	})

	return stack
}

func waitEventually(t *testing.T, timeout, interval time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("eventually timeout: %s", msg)
		}
		time.Sleep(interval)
	}
}

type healthResponse struct {
	Status            string `json:"status"`
	ActiveConnections int64  `json:"active_connections"`
	RequestsServed    uint64 `json:"requests_served"`
	RequestsRejected  uint64 `json:"requests_rejected"`
}

func getHealth(addr string) (healthResponse, error) {
	var out healthResponse
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/health")
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("health status=%d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func TestE2E_AnalyzeOverSocket(t *testing.T) {
	stack := startE2EStack(t)

	client, err := sockserv.Dial(stack.sock)
	if err != nil {
		t.Fatalf("socket dial: %v", err)
	}
	defer client.Close()

	resp, err := client.Analyze(model.Config{Since: "2 hours ago"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	m := resp.Metrics
	if m.LinesRead != 4 || m.ParsedOK != 3 || m.Matched != 3 || m.ParseErrors != 1 {
		t.Fatalf("metrics=%+v", m)
	}

	if len(resp.Suspects) != 2 {
		t.Fatalf("suspects=%+v", resp.Suspects)
	}
	top := resp.Suspects[0]
	if top.Kind != model.KindUnit || top.Source != "edge-proxy.service" {
		t.Fatalf("top suspect=%+v", top)
	}
	if top.Count != 2 || top.WorstPriority != 2 {
		t.Fatalf("top suspect stats=%+v", top)
	}
	if top.SampleUnit != "edge-proxy.service" || top.SampleExe != "/opt/acme/bin/edged" {
		t.Fatalf("top suspect samples=%+v", top)
	}
	if resp.Suspects[1].Kind != model.KindKernel {
		t.Fatalf("second suspect=%+v", resp.Suspects[1])
	}
	if resp.Top != model.DefaultTop {
		t.Fatalf("top=%d want=%d", resp.Top, model.DefaultTop)
	}
}

func TestE2E_StreamOverSocket(t *testing.T) {
	stack := startE2EStack(t)

	client, err := sockserv.Dial(stack.sock)
	if err != nil {
		t.Fatalf("socket dial: %v", err)
	}
	defer client.Close()

	var lines []string
	err = client.Stream(model.Config{GrepTerms: []string{"disk", "error"}}, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("lines=%v", lines)
	}
	for _, line := range lines {
		if !strings.Contains(line, "smartd") {
			t.Fatalf("unexpected line forwarded: %q", line)
		}
	}
}

func TestE2E_HealthReflectsTraffic(t *testing.T) {
	stack := startE2EStack(t)

	health, err := getHealth(stack.apiAddr)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Status != "ok" || health.RequestsServed != 0 {
		t.Fatalf("initial health=%+v", health)
	}

	client, err := sockserv.Dial(stack.sock)
	if err != nil {
		t.Fatalf("socket dial: %v", err)
	}
	defer client.Close()
	if _, err := client.Analyze(model.Config{}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	waitEventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		health, err := getHealth(stack.apiAddr)
		return err == nil && health.RequestsServed == 1 && health.ActiveConnections == 0
	}, "health endpoint never reflected the served request")
}

func TestE2E_ConcurrentAnalyze(t *testing.T) {
	stack := startE2EStack(t)

	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	errCh := make(chan error, workers*perWorker)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				client, err := sockserv.Dial(stack.sock)
				if err != nil {
					errCh <- fmt.Errorf("dial: %w", err)
					return
				}
				resp, err := client.Analyze(model.Config{})
				client.Close()
				if err != nil {
					errCh <- fmt.Errorf("analyze: %w", err)
					return
				}
				if resp.Metrics.Matched != 3 {
					errCh <- fmt.Errorf("matched=%d want=3", resp.Metrics.Matched)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent analyze failure: %v", err)
		}
	}
}
