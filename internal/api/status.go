package api

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"

	internalerrors "github.com/rcourtman/cpe-console/internal/errors"
)

const acsPingTimeout = 2 * time.Second

type acsStatus struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

type processStatus struct {
	PID        int     `json:"pid"`
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	Goroutines int     `json:"goroutines"`
}

type statusResponse struct {
	Version       string        `json:"version"`
	StartedAt     time.Time     `json:"startedAt"`
	UptimeSeconds int64         `json:"uptimeSeconds"`
	ACS           acsStatus     `json:"acs"`
	Process       processStatus `json:"process"`
}

func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:       h.deps.Version,
		StartedAt:     h.deps.StartTime.UTC(),
		UptimeSeconds: int64(h.deps.Now().Sub(h.deps.StartTime).Seconds()),
		ACS:           acsStatus{URL: h.deps.ACS.BaseURL()},
		Process:       readProcessStatus(r.Context()),
	}

	ctx, cancel := context.WithTimeout(r.Context(), acsPingTimeout)
	defer cancel()
	if err := h.deps.ACS.Ping(ctx); err != nil {
		resp.ACS.Error = internalerrors.Message(err)
	} else {
		resp.ACS.Reachable = true
	}
	writeJSON(w, http.StatusOK, resp)
}

// readProcessStatus samples this process. Sampling failures leave fields zeroed.
func readProcessStatus(ctx context.Context) processStatus {
	st := processStatus{PID: os.Getpid(), Goroutines: runtime.NumGoroutine()}

	p, err := process.NewProcessWithContext(ctx, int32(st.PID))
	if err != nil {
		log.Debug().Err(err).Msg("Process stats unavailable")
		return st
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		st.RSSBytes = mem.RSS
	}
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		st.CPUPercent = cpu
	}
	return st
}
