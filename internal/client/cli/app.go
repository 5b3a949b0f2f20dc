package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/a-h/templ"

	"github.com/dmitrijs2005/studycircle/internal/broadcast"
	"github.com/dmitrijs2005/studycircle/internal/client/models"
	"github.com/dmitrijs2005/studycircle/internal/client/session"
	"github.com/dmitrijs2005/studycircle/internal/client/views"
	"github.com/dmitrijs2005/studycircle/internal/logging"
)

// Session is the part of *session.Manager the terminal client uses.
type Session interface {
	SignUp(ctx context.Context, email string, password []byte, name string) (*models.Identity, error)
	LogIn(ctx context.Context, email string, password []byte) (*models.Identity, error)
	LogOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, u models.ProfileUpdate) (*models.Identity, error)
	Current() *models.Identity
	Subscribe(ctx context.Context) broadcast.Subscriber[session.Event]
	Ready() <-chan struct{}
	Degraded() bool
}

var _ Session = (*session.Manager)(nil)

type App struct {
	session Session
	logger  logging.Logger
	reader  *bufio.Reader
	out     io.Writer

	warnedDegraded atomic.Bool
}

// NewApp builds the terminal client over s, reading commands from in and
// printing to out.
func NewApp(s Session, logger logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		session: s,
		logger:  logger.With("component", "cli"),
		reader:  bufio.NewReader(in),
		out:     &syncWriter{w: out},
	}
}

// Run waits for the session to be restored, then serves the REPL until the
// user exits, input ends or ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.println("Welcome to Study Circle (type 'help' for commands)")

	select {
	case <-a.session.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	watchCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.watch(watchCtx)
	}()
	defer func() {
		stop()
		wg.Wait()
	}()

	if cur := a.session.Current(); cur != nil {
		a.printf("Logged in as %s\n", cur.Email)
	}
	a.onDegraded(a.session.Degraded())

	runREPL(ctx, a, a.getStatus, a.reader, a.out, func(cmd string, err error) {
		a.logger.Debug(ctx, "command failed", "command", cmd, "error", err)
	})
	return nil
}

// watch follows session events until ctx is done or the session closes. A
// subscription dropped for falling behind is replaced, and the state it may
// have missed is re-read.
func (a *App) watch(ctx context.Context) {
	for {
		err := views.Watch(ctx, a.session.Subscribe(ctx), a.onSessionEvent)
		if !errors.Is(err, broadcast.ErrSlowSubscriber) {
			return
		}
		a.logger.Warn(ctx, "session events dropped, resubscribing", "error", err)
		a.onDegraded(a.session.Degraded())
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.Current() != nil
}

func (a *App) getStatus() string {
	s := ""
	if cur := a.session.Current(); cur != nil {
		s = cur.Name
	}
	if a.session.Degraded() {
		if s != "" {
			s += " "
		}
		s += "memory-only"
	}
	if s != "" {
		s = fmt.Sprintf("(%s) ", s)
	}
	return s
}

func (a *App) onSessionEvent(ev session.Event) {
	a.logger.Debug(context.Background(), "session changed", "reason", string(ev.Reason), "logged_in", ev.Identity != nil)
	a.onDegraded(ev.Degraded)
}

func (a *App) onDegraded(degraded bool) {
	if degraded && a.warnedDegraded.CompareAndSwap(false, true) {
		a.println("Warning: session storage is unavailable; your login will not survive a restart.")
	}
}

func (a *App) render(ctx context.Context, c templ.Component) {
	if err := c.Render(ctx, a.out); err != nil {
		a.logger.Error(ctx, "render failed", "error", err)
	}
}

func (a *App) println(s string) {
	fmt.Fprintln(a.out, s)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// syncWriter serializes writes from the REPL and the session watcher.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
