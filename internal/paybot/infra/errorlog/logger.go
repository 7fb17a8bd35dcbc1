// Package errorlog writes diagnostic traces of failed Bot API calls to dated
// text files.
package errorlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/izzddalfk/telepay/internal/paybot/infra/telegram"
	"github.com/spf13/afero"
)

const (
	DefaultDir  = "logs"
	DefaultName = "TelegramErrorLogger"

	dateBanner     = "============[Date]============"
	responseBanner = "==========[Response]=========="
	sentBanner     = "=========[Sent Data]=========="
	traceBanner    = "============[Trace]==========="
)

var _ telegram.ErrorLogger = (*Logger)(nil)

// Logger appends a trace of every failed reply to <Dir>/<Name>-<YYYY-MM-DD>.txt.
// The file is opened and closed on each call.
type Logger struct {
	dir    string
	name   string
	fs     afero.Fs
	now    func() time.Time
	logger *slog.Logger
}

type Config struct {
	Dir  string
	Name string

	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// Now defaults to time.Now.
	Now func() time.Time
	// Logger receives the logger's own failures. Defaults to slog.Default().
	Logger *slog.Logger
}

func New(cfg Config) *Logger {
	l := &Logger{
		dir:    cfg.Dir,
		name:   cfg.Name,
		fs:     cfg.Fs,
		now:    cfg.Now,
		logger: cfg.Logger,
	}
	if l.dir == "" {
		l.dir = DefaultDir
	}
	if l.name == "" {
		l.name = DefaultName
	}
	if l.fs == nil {
		l.fs = afero.NewOsFs()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return l
}

// Log writes a trace when reply is not ok. contexts are the request data
// (inbound update, sent params) rendered in the Sent Data section. Errors are
// reported through the slog logger and never returned.
func (l *Logger) Log(reply telegram.Reply, contexts ...telegram.Object) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Failed to write error log", "error", fmt.Sprint(r))
		}
	}()

	if !explicitlyFailed(reply) {
		return
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(responseBanner + "\n")
	b.WriteString(renderResponse(reply))
	b.WriteString(sentBanner + "\n")
	for _, c := range contexts {
		b.WriteString(RenderTree(c))
		b.WriteString("\n\n")
	}
	b.WriteString(traceBanner + "\n")
	b.WriteString(renderTrace(1))

	if err := l.write(b.String()); err != nil {
		l.logger.Error("Failed to write error log", "error", err, "dir", l.dir)
	}
}

// Path returns the log file used for entries written at t.
func (l *Logger) Path(t time.Time) string {
	return filepath.Join(l.dir, l.name+"-"+t.Format(time.DateOnly)+".txt")
}

func (l *Logger) write(entry string) error {
	now := l.now()

	if err := l.fs.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := l.fs.OpenFile(l.Path(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	header := dateBanner + "\n" + "[ " + now.Format(time.DateTime) + "  " + zoneName(now) + " ] "
	if _, err := f.WriteString(header + entry + "\n\n"); err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}
	return nil
}

func zoneName(t time.Time) string {
	if name := t.Location().String(); name != "Local" {
		return name
	}
	name, _ := t.Zone()
	return name
}

// explicitlyFailed reports whether reply carries a boolean ok set to false
func explicitlyFailed(reply telegram.Reply) bool {
	v, found := reply.Get("ok")
	b, isBool := v.(telegram.Bool)
	return found && isBool && !bool(b)
}
