package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

// StatusPanel implementa ports.StatusView. Solo imprime cuando el estado cambia.
type StatusPanel struct {
	mu        sync.Mutex
	out       io.Writer
	kill      *bool
	scheduler *domain.SchedulerStatus
}

func NewStatusPanel(w io.Writer) *StatusPanel {
	return &StatusPanel{out: w}
}

func (p *StatusPanel) ShowKillSwitch(active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.kill != nil && *p.kill == active {
		return
	}
	p.kill = &active
	state := "off"
	if active {
		state = "ACTIVE"
	}
	fmt.Fprintf(p.out, "[%s] kill switch: %s\n", time.Now().Format("15:04:05"), state)
}

func (p *StatusPanel) ShowScheduler(st domain.SchedulerStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scheduler != nil && p.scheduler.Enabled == st.Enabled && p.scheduler.Running == st.Running {
		return
	}
	p.scheduler = &st
	fmt.Fprintf(p.out, "[%s] scheduler: enabled=%t running=%t\n",
		time.Now().Format("15:04:05"), st.Enabled, st.Running)
}
