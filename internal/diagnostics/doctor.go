package diagnostics

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/triad-ai/triad/internal/adapters/session"
	"github.com/triad-ai/triad/internal/config"
	"github.com/triad-ai/triad/internal/core"
)

// Status is the outcome of a single check.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Thresholds below which the host checks warn.
const (
	MinFreeDiskPercent = 5.0
	MinAvailableMemMB  = 256.0
)

const dialTimeout = 3 * time.Second

// geminiKeyEnv lists the variables the genai client reads when no key is configured.
var geminiKeyEnv = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// Check is one line of a doctor report.
type Check struct {
	Name   string `json:"name" yaml:"name"`
	Status Status `json:"status" yaml:"status"`
	Detail string `json:"detail" yaml:"detail"`
}

// Report collects every check and the host snapshot they were based on.
type Report struct {
	Checks []Check  `json:"checks" yaml:"checks"`
	Host   HostInfo `json:"host" yaml:"host"`
}

// Failed reports whether any check failed.
func (r Report) Failed() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return true
		}
	}
	return false
}

// Doctor verifies that the configured collaborators are reachable.
type Doctor struct {
	cfg *config.Config

	lookPath  func(string) (string, error)
	getenv    func(string) string
	dial      func(ctx context.Context, network, addr string) (net.Conn, error)
	openStore func(backend, path string) (core.SessionStore, error)
	host      func(ctx context.Context, diskPath string) HostInfo
}

// NewDoctor creates a doctor for cfg.
func NewDoctor(cfg *config.Config) *Doctor {
	d := &net.Dialer{Timeout: dialTimeout}
	return &Doctor{
		cfg:       cfg,
		lookPath:  exec.LookPath,
		getenv:    os.Getenv,
		dial:      d.DialContext,
		openStore: session.NewStore,
		host:      CollectHost,
	}
}

// Run executes every check in a fixed order.
func (d *Doctor) Run(ctx context.Context) Report {
	host := d.host(ctx, filepath.Dir(d.cfg.Session.Path))
	return Report{
		Checks: []Check{
			d.checkConfig(),
			d.checkLLM(),
			d.checkSearch(),
			d.checkMemory(ctx),
			d.checkSessions(ctx),
			checkDisk(host),
			checkRAM(host),
		},
		Host: host,
	}
}

func (d *Doctor) checkConfig() Check {
	if err := config.ValidateConfig(d.cfg); err != nil {
		return Check{Name: "config", Status: StatusFail, Detail: err.Error()}
	}
	return Check{Name: "config", Status: StatusOK, Detail: "valid"}
}

func (d *Doctor) checkLLM() Check {
	cfg := d.cfg.LLM
	switch cfg.Backend {
	case "cli":
		path, err := d.lookPath(cfg.Path)
		if err != nil {
			return Check{Name: "llm", Status: StatusFail, Detail: fmt.Sprintf("%s not found in PATH", cfg.Path)}
		}
		return Check{Name: "llm", Status: StatusOK, Detail: "cli " + path}
	case "genai":
		if !d.hasGeminiKey() {
			return Check{Name: "llm", Status: StatusFail,
				Detail: "no API key, set llm.api_key or " + strings.Join(geminiKeyEnv, "/")}
		}
		return Check{Name: "llm", Status: StatusOK, Detail: "genai " + cfg.Model}
	default:
		return Check{Name: "llm", Status: StatusFail, Detail: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
}

func (d *Doctor) hasGeminiKey() bool {
	if strings.TrimSpace(d.cfg.LLM.APIKey) != "" {
		return true
	}
	for _, name := range geminiKeyEnv {
		if d.getenv(name) != "" {
			return true
		}
	}
	return false
}

func (d *Doctor) checkSearch() Check {
	cfg := d.cfg.Search
	switch {
	case cfg.Provider == "" || cfg.Provider == "none":
		return Check{Name: "search", Status: StatusOK, Detail: "disabled"}
	case strings.TrimSpace(cfg.APIKey) == "":
		return Check{Name: "search", Status: StatusWarn, Detail: cfg.Provider + " has no API key, answers will not cite the web"}
	default:
		return Check{Name: "search", Status: StatusOK, Detail: cfg.Provider}
	}
}

func (d *Doctor) checkMemory(ctx context.Context) Check {
	cfg := d.cfg.Memory
	if cfg.Backend != "qdrant" {
		return Check{Name: "memory", Status: StatusOK, Detail: orNone(cfg.Backend)}
	}

	addr := net.JoinHostPort(cfg.Qdrant.Host, strconv.Itoa(cfg.Qdrant.Port))
	conn, err := d.dial(ctx, "tcp", addr)
	if err != nil {
		return Check{Name: "memory", Status: StatusFail, Detail: fmt.Sprintf("qdrant at %s unreachable: %v", addr, err)}
	}
	_ = conn.Close()

	if !d.hasGeminiKey() {
		return Check{Name: "memory", Status: StatusWarn, Detail: "qdrant reachable but embeddings need a Gemini API key"}
	}
	return Check{Name: "memory", Status: StatusOK, Detail: "qdrant " + addr}
}

func (d *Doctor) checkSessions(ctx context.Context) Check {
	cfg := d.cfg.Session
	if cfg.Backend == "none" {
		return Check{Name: "sessions", Status: StatusOK, Detail: "disabled"}
	}

	store, err := d.openStore(cfg.Backend, cfg.Path)
	if err != nil {
		return Check{Name: "sessions", Status: StatusFail, Detail: err.Error()}
	}
	defer store.Close()

	list, err := store.ListSessions(ctx)
	if err != nil {
		return Check{Name: "sessions", Status: StatusFail, Detail: err.Error()}
	}
	return Check{Name: "sessions", Status: StatusOK, Detail: fmt.Sprintf("%s, %d stored", cfg.Backend, len(list))}
}

func checkDisk(h HostInfo) Check {
	if h.DiskTotalGB == 0 {
		return Check{Name: "disk", Status: StatusWarn, Detail: "usage unavailable"}
	}
	detail := fmt.Sprintf("%.1f GB free on %s", h.DiskFreeGB, h.DiskPath)
	if 100-h.DiskPercent < MinFreeDiskPercent {
		return Check{Name: "disk", Status: StatusWarn, Detail: detail}
	}
	return Check{Name: "disk", Status: StatusOK, Detail: detail}
}

func checkRAM(h HostInfo) Check {
	if h.MemTotalMB == 0 {
		return Check{Name: "ram", Status: StatusWarn, Detail: "usage unavailable"}
	}
	detail := fmt.Sprintf("%.0f MB available of %.0f MB", h.MemAvailableMB, h.MemTotalMB)
	if h.MemAvailableMB < MinAvailableMemMB {
		return Check{Name: "ram", Status: StatusWarn, Detail: detail}
	}
	return Check{Name: "ram", Status: StatusOK, Detail: detail}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
