package indicator

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TheCacophonyProject/x728-battery/monitor"
)

const trimInterval = 24 * time.Hour

// csvLogger appends a line per snapshot to a CSV file, at most once per
// logRate, and keeps the file to the last maxLines lines.
type csvLogger struct {
	path         string
	maxLines     int
	logRate      time.Duration
	lastLogTime  time.Time
	lastTrimTime time.Time
	now          func() time.Time
}

func newCSVLogger(path string, maxLines int, logRate time.Duration) (*csvLogger, error) {
	c := &csvLogger{
		path:     path,
		maxLines: maxLines,
		logRate:  logRate,
		now:      time.Now,
	}
	if err := keepLastLines(path, maxLines); err != nil {
		return nil, err
	}
	c.lastTrimTime = c.now()
	return c, nil
}

func (c *csvLogger) observe(s monitor.StatusSnapshot) {
	now := c.now()
	if now.Sub(c.lastTrimTime) > trimInterval {
		if err := keepLastLines(c.path, c.maxLines); err != nil {
			log.Errorf("Error trimming %s: %v", c.path, err)
		}
		c.lastTrimTime = now
	}

	if !c.lastLogTime.IsZero() && now.Sub(c.lastLogTime) < c.logRate {
		return
	}
	if err := c.write(now, s); err != nil {
		log.Errorf("Error writing battery reading to %s: %v", c.path, err)
		return
	}
	c.lastLogTime = now
}

func (c *csvLogger) write(now time.Time, s monitor.StatusSnapshot) error {
	file, err := os.OpenFile(c.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s, %.3f, %.1f, %.1f, %t, %s\n",
		now.Format("2006-01-02 15:04:05"), s.Voltage, s.ChargePercent, s.MinutesRemaining, s.OnExternalPower, s.Category)
	if _, err := file.WriteString(line); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// keepLastLines keeps the last `maxLines` lines of the specified file.
func keepLastLines(filePath string, maxLines int) error {
	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > maxLines {
			lines = lines[1:]
		}
	}
	file.Close()
	if err := scanner.Err(); err != nil {
		return err
	}

	tmpFile := filepath.Join(filepath.Dir(filePath), "."+filepath.Base(filePath)+".tmp")
	out, err := os.Create(tmpFile)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmpFile, filePath)
}
