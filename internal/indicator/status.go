package indicator

import (
	"sync"
	"time"

	"github.com/TheCacophonyProject/x728-battery/internal/display"
	"github.com/TheCacophonyProject/x728-battery/monitor"
)

// latestStatus holds the most recent snapshot for readers on other goroutines.
type latestStatus struct {
	mu       sync.Mutex
	snapshot monitor.StatusSnapshot
	ok       bool
}

func (l *latestStatus) set(s monitor.StatusSnapshot) {
	l.mu.Lock()
	l.snapshot = s
	l.ok = true
	l.mu.Unlock()
}

func (l *latestStatus) get() (monitor.StatusSnapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot, l.ok
}

// statusLogger logs every snapshot at debug level and at info level once per
// logRate or whenever the category changes.
type statusLogger struct {
	logRate      time.Duration
	lastLogTime  time.Time
	lastCategory monitor.StatusCategory
	now          func() time.Time
}

func newStatusLogger(logRate time.Duration) *statusLogger {
	return &statusLogger{logRate: logRate, now: time.Now}
}

func (l *statusLogger) observe(s monitor.StatusSnapshot) {
	now := l.now()
	if now.Sub(l.lastLogTime) > l.logRate || s.Category != l.lastCategory {
		log.Infof("Battery %s (%s)", display.Tooltip(s), s.Category)
		l.lastLogTime = now
	} else {
		log.Debugf("Battery %s (%s)", display.Tooltip(s), s.Category)
	}
	l.lastCategory = s.Category
}
