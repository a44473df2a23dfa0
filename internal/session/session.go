// Package session owns the teacher-side lifecycle of one attendance session:
// a session is started with a human-chosen code, rotates its scan token on a
// fixed cadence while active, and releases the timer on close. Nothing is
// persisted; reopening always starts a fresh session.
package session

import (
	"errors"
	"sync"
	"time"

	"presence/internal/geo"
	"presence/internal/token"
)

// DefaultRotationPeriod is how often the presented token is superseded.
// The expiry window equals the rotation period, so a presented token stays
// fresh until it rotates away.
const DefaultRotationPeriod = 80 * time.Second

var (
	// ErrSessionActive is returned by Start when a session is already open.
	ErrSessionActive = errors.New("attendance session already active")
	// ErrNoActiveSession is returned when no session is open.
	ErrNoActiveSession = errors.New("no active attendance session")
)

// Announcement is what the teacher publishes alongside the scan code. A nil
// TeacherLoc means the session does not require location verification.
type Announcement struct {
	TeacherLoc *geo.Coordinate
	RadiusM    float64
}

// Issuer is the session state machine: Idle -> Active -> Idle. All methods
// are safe for concurrent use; each rotation produces exactly one token
// under the lock, so ticks never overlap.
type Issuer struct {
	rotation time.Duration
	nowFunc  func() time.Time

	mu          sync.Mutex
	active      bool
	subjectID   string
	subjectName string
	code        string
	ann         Announcement
	current     token.Token
	transport   string
	rotations   chan token.Token
	stop        chan struct{}
	done        chan struct{}
}

// NewIssuer creates an idle issuer. rotation <= 0 uses DefaultRotationPeriod.
func NewIssuer(rotation time.Duration) *Issuer {
	if rotation <= 0 {
		rotation = DefaultRotationPeriod
	}
	return &Issuer{rotation: rotation, nowFunc: time.Now}
}

// Start opens a session for the subject and issues the first token
// immediately. The announcement travels with every issued token so the
// student side can evaluate the geofence.
func (i *Issuer) Start(subjectID, subjectName, sessionCode string, ann Announcement) (token.Token, string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.active {
		return token.Token{}, "", ErrSessionActive
	}
	if ann.RadiusM <= 0 {
		ann.RadiusM = geo.DefaultRadiusM
	}

	i.active = true
	i.subjectID = subjectID
	i.subjectName = subjectName
	i.code = sessionCode
	i.ann = ann
	i.rotations = make(chan token.Token, 1)
	i.stop = make(chan struct{})
	i.done = make(chan struct{})

	i.issueLocked(false)
	go i.rotate(i.stop, i.done)
	return i.current, i.transport, nil
}

// Current returns the presentable token while the session is active.
func (i *Issuer) Current() (token.Token, string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.active {
		return token.Token{}, "", ErrNoActiveSession
	}
	return i.current, i.transport, nil
}

// Announcement returns the published session parameters.
func (i *Issuer) Announcement() (Announcement, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.active {
		return Announcement{}, ErrNoActiveSession
	}
	return i.ann, nil
}

// Rotations exposes rotation events for re-rendering the optical code.
// The channel drops notifications when the consumer lags; consumers read
// the authoritative token via Current.
func (i *Issuer) Rotations() <-chan token.Token {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rotations
}

// Close stops the rotation timer and returns the issuer to idle. The
// current token is discarded; submissions already recorded against prior
// tokens are unaffected. Close on an idle issuer is a no-op.
func (i *Issuer) Close() {
	i.mu.Lock()
	if !i.active {
		i.mu.Unlock()
		return
	}
	i.active = false
	stop, done := i.stop, i.done
	i.mu.Unlock()

	close(stop)
	<-done

	i.mu.Lock()
	i.current = token.Token{}
	i.transport = ""
	i.subjectID, i.subjectName, i.code = "", "", ""
	i.ann = Announcement{}
	i.mu.Unlock()
}

// Active reports whether a session is open.
func (i *Issuer) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

func (i *Issuer) rotate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(i.rotation)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			i.mu.Lock()
			if !i.active {
				i.mu.Unlock()
				return
			}
			i.issueLocked(true)
			i.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// issueLocked supersedes the current token, notifying subscribers only for
// rotations, not the initial issue. Callers hold i.mu.
func (i *Issuer) issueLocked(notify bool) {
	t, transport := token.Issue(i.subjectID, i.subjectName, i.code, i.nowFunc(), i.rotation)
	i.current = t
	i.transport = transport
	if notify {
		select {
		case i.rotations <- t:
		default:
		}
	}
}
