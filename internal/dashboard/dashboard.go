// Package dashboard holds the dashboard's component state and runs the
// upload-and-review workflow against the detection backend.
//
// Every view is rebuilt from a fresh backend response after a state-changing
// action; detection data is never edited locally.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anugulalokeshreddy-code/deepfake/internal/client"
	"github.com/anugulalokeshreddy-code/deepfake/internal/logging"
	"github.com/anugulalokeshreddy-code/deepfake/internal/models"
	"github.com/anugulalokeshreddy-code/deepfake/internal/session"
	"github.com/anugulalokeshreddy-code/deepfake/internal/upload"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
)

// Tabs of the dashboard.
const (
	TabUpload   = "upload"
	TabResults  = "results"
	TabStats    = "stats"
	TabSettings = "settings"
)

// Status region texts.
const (
	MsgProcessing       = "Processing image... Please wait."
	MsgProcessed        = "Image processed successfully!"
	MsgPasswordMismatch = "New passwords do not match"
)

// ErrUnknownTab is returned by SwitchTab for a tab that does not exist.
var ErrUnknownTab = errors.New("unknown tab")

// ErrSessionEnded is returned by Upload when the user signed out while the
// transfer was outstanding. The outcome is discarded.
var ErrSessionEnded = errors.New("signed out during upload")

// Backend is the part of the detection API the dashboard calls.
// *client.Client satisfies it.
type Backend interface {
	Me(ctx context.Context) (*models.User, error)
	Login(ctx context.Context, creds models.Credentials) (*models.User, error)
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, change models.PasswordChange) (string, error)
	Upload(ctx context.Context, file *models.CandidateFile) (*models.DetectionResult, error)
	History(ctx context.Context, page, limit int) (*models.HistoryPage, error)
	Details(ctx context.Context, id string) (*models.Detection, error)
	Delete(ctx context.Context, id string) (string, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Options tunes a Dashboard.
type Options struct {
	HistoryPageSize int
	BannerDelay     time.Duration
	Logger          *log.Logger
}

// region identifies a status region whose success banner auto-clears.
type region int

const (
	regionUpload region = iota
	regionHistory
	regionSettings
)

// Dashboard is the dashboard's state plus the operations that change it.
type Dashboard struct {
	backend  Backend
	uploads  *upload.Manager
	sessions *session.Manager
	pageSize int
	banner   time.Duration
	logger   *log.Logger

	mu       sync.Mutex
	view     models.DashboardView
	selected *models.CandidateFile
	version  uint64
	// bumped on logout; uploads begun under an older epoch are discarded
	epoch    uint64

	// status generation per region; a banner timer only clears its own text
	gen    map[region]uint64
	timers map[region]*time.Timer

	historySeq    uint64
	historyCancel context.CancelFunc

	// notifyMu orders snapshot and delivery so subscribers see versions in order
	notifyMu sync.Mutex
	subMu    sync.Mutex
	nextSub  int
	subs     map[int]func(models.DashboardView)
}

// New creates a Dashboard.
func New(backend Backend, uploads *upload.Manager, sessions *session.Manager, opts Options) *Dashboard {
	if opts.HistoryPageSize <= 0 {
		opts.HistoryPageSize = 20
	}
	if opts.BannerDelay <= 0 {
		opts.BannerDelay = 3 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	return &Dashboard{
		backend:  backend,
		uploads:  uploads,
		sessions: sessions,
		pageSize: opts.HistoryPageSize,
		banner:   opts.BannerDelay,
		logger:   opts.Logger,
		view:     models.DashboardView{ActiveTab: TabUpload},
		gen:      make(map[region]uint64),
		timers:   make(map[region]*time.Timer),
		subs:     make(map[int]func(models.DashboardView)),
	}
}

// Uploads returns the upload task manager.
func (d *Dashboard) Uploads() *upload.Manager {
	return d.uploads
}

// View returns a snapshot of the current state.
func (d *Dashboard) View() models.DashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// Nav returns navigation visibility.
func (d *Dashboard) Nav() models.NavView {
	return d.sessions.Nav()
}

// Subscribe registers fn to receive a snapshot after every change.
// The returned func unregisters it.
func (d *Dashboard) Subscribe(fn func(models.DashboardView)) func() {
	d.subMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subMu.Unlock()

	return func() {
		d.subMu.Lock()
		delete(d.subs, id)
		d.subMu.Unlock()
	}
}

// Close stops pending banner timers and any in-flight history refresh.
func (d *Dashboard) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for r, t := range d.timers {
		t.Stop()
		delete(d.timers, r)
	}
	if d.historyCancel != nil {
		d.historyCancel()
		d.historyCancel = nil
	}
}

// CheckAuth asks the backend who is signed in. A backend rejection also
// removes the persisted user; a transport failure only drops it from memory.
func (d *Dashboard) CheckAuth(ctx context.Context) (models.User, error) {
	user, err := d.backend.Me(ctx)
	if err != nil {
		if client.KindOf(err) == client.KindApplication {
			if cerr := d.sessions.Clear(); cerr != nil {
				d.logger.Errorf("[Dashboard] %v", cerr)
			}
		} else {
			d.sessions.Forget()
		}
		d.notify()
		return models.User{}, err
	}

	if err := d.sessions.SetUser(*user); err != nil {
		d.logger.Warnf("[Dashboard] %v", err)
	}
	d.notify()
	return *user, nil
}

// Init runs the page-load sequence: auth check, then the initial history
// and statistics loads. Load failures are logged, not returned.
func (d *Dashboard) Init(ctx context.Context) (models.User, error) {
	user, err := d.CheckAuth(ctx)
	if err != nil {
		return models.User{}, err
	}
	if err := d.RefreshAll(ctx); err != nil {
		d.logger.Warnf("[Dashboard] Initial load: %v", err)
	}
	return user, nil
}

// Login signs in and loads the initial data.
func (d *Dashboard) Login(ctx context.Context, creds models.Credentials) (models.User, error) {
	user, err := d.backend.Login(ctx, creds)
	if err != nil {
		return models.User{}, err
	}
	if err := d.sessions.SetUser(*user); err != nil {
		d.logger.Warnf("[Dashboard] %v", err)
	}
	d.notify()

	if err := d.RefreshAll(ctx); err != nil {
		d.logger.Warnf("[Dashboard] Initial load: %v", err)
	}
	return *user, nil
}

// Register creates an account on the backend.
func (d *Dashboard) Register(ctx context.Context, reg models.Registration) (models.User, error) {
	user, err := d.backend.Register(ctx, reg)
	if err != nil {
		return models.User{}, err
	}
	return *user, nil
}

// Logout ends the session and removes the persisted key. A transport
// failure leaves everything as it was; a backend rejection still signs out
// locally. An upload in flight is canceled and its outcome discarded.
func (d *Dashboard) Logout(ctx context.Context) error {
	if err := d.backend.Logout(ctx); err != nil {
		if client.KindOf(err) != client.KindApplication {
			d.logger.Errorf("[Dashboard] Logout failed: %v", err)
			return err
		}
		d.logger.Warnf("[Dashboard] Backend refused logout: %v", err)
	}

	if err := d.sessions.Clear(); err != nil {
		d.logger.Errorf("[Dashboard] %v", err)
	}

	d.mu.Lock()
	d.epoch++
	d.mu.Unlock()
	d.uploads.Cancel()
	d.Close()

	d.mu.Lock()
	d.view = models.DashboardView{ActiveTab: TabUpload}
	d.selected = nil
	d.mu.Unlock()
	d.notify()
	return nil
}

// SwitchTab activates a tab. The results tab reloads history and the
// stats tab reloads statistics.
func (d *Dashboard) SwitchTab(ctx context.Context, tab string) error {
	switch tab {
	case TabUpload, TabResults, TabStats, TabSettings:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTab, tab)
	}

	d.mu.Lock()
	d.view.ActiveTab = tab
	d.mu.Unlock()
	d.notify()

	switch tab {
	case TabResults:
		return d.RefreshHistory(ctx)
	case TabStats:
		return d.RefreshStats(ctx)
	}
	return nil
}

// RefreshHistory re-fetches the first history page. Starting a refresh
// cancels any earlier one still in flight; a superseded refresh leaves the
// state alone. On failure the previous list stays and the history message
// region shows the error.
func (d *Dashboard) RefreshHistory(ctx context.Context) error {
	hctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.mu.Lock()
	if d.historyCancel != nil {
		d.historyCancel()
	}
	d.historySeq++
	seq := d.historySeq
	d.historyCancel = cancel
	d.mu.Unlock()

	page, err := d.backend.History(hctx, 1, d.pageSize)

	d.mu.Lock()
	if seq != d.historySeq {
		d.mu.Unlock()
		if err == nil {
			err = context.Canceled
		}
		return err
	}
	d.historyCancel = nil
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			d.setStatusLocked(regionHistory, models.StatusError, err.Error())
		}
		d.mu.Unlock()
		d.notify()
		d.logger.Warnf("[Dashboard] Failed to load history: %v", err)
		return err
	}
	hv := RenderHistory(page.Detections)
	hv.Message = d.view.History.Message
	d.view.History = hv
	d.mu.Unlock()

	d.notify()
	return nil
}

// RefreshStats re-fetches statistics. On failure the previous values stay.
func (d *Dashboard) RefreshStats(ctx context.Context) error {
	stats, err := d.backend.Stats(ctx)
	if err != nil {
		d.logger.Warnf("[Dashboard] Failed to load statistics: %v", err)
		return err
	}

	d.mu.Lock()
	d.view.Stats = RenderStats(*stats)
	d.mu.Unlock()

	d.notify()
	return nil
}

// RefreshAll reloads history and statistics concurrently. Neither waits
// for the other and either may finish first.
func (d *Dashboard) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return d.RefreshHistory(ctx) })
	g.Go(func() error { return d.RefreshStats(ctx) })
	return g.Wait()
}

// Details fetches a single detection.
func (d *Dashboard) Details(ctx context.Context, id string) (*models.Detection, error) {
	return d.backend.Details(ctx, id)
}

// Delete removes a detection. The outcome is shown in the history message
// region, then history and statistics are re-fetched.
func (d *Dashboard) Delete(ctx context.Context, id string) error {
	msg, err := d.backend.Delete(ctx, id)
	if err != nil {
		d.logger.Warnf("[Dashboard] Delete %s failed: %v", id, err)
		d.setStatus(regionHistory, models.StatusError, err.Error())
		return err
	}

	d.setStatus(regionHistory, models.StatusSuccess, msg)
	if err := d.RefreshAll(ctx); err != nil {
		d.logger.Warnf("[Dashboard] Refresh after delete: %v", err)
	}
	return nil
}

// ChangePassword submits the settings form. Mismatched new passwords are
// refused without a request.
func (d *Dashboard) ChangePassword(ctx context.Context, change models.PasswordChange) error {
	if change.NewPassword != change.ConfirmPassword {
		err := client.NewValidationError(MsgPasswordMismatch)
		d.setStatus(regionSettings, models.StatusError, err.Message)
		return err
	}

	msg, err := d.backend.ChangePassword(ctx, change)
	if err != nil {
		d.setStatus(regionSettings, models.StatusError, err.Error())
		return err
	}

	d.setStatus(regionSettings, models.StatusSuccess, msg)
	return nil
}

// CancelUpload aborts the in-flight upload, if any.
func (d *Dashboard) CancelUpload() bool {
	return d.uploads.Cancel()
}

// Upload runs the workflow for one file: validate, transfer, reconcile.
// A nil file is a no-op returning upload.ErrNoFile. While another upload is
// in flight it returns upload.ErrInProgress and changes nothing.
func (d *Dashboard) Upload(ctx context.Context, file *models.CandidateFile) (upload.Task, error) {
	if file == nil {
		return upload.Task{}, upload.ErrNoFile
	}

	task, tctx, err := d.uploads.Begin(ctx, file)
	if errors.Is(err, upload.ErrInProgress) {
		return task, err
	}

	d.mu.Lock()
	d.selected = file
	d.mu.Unlock()

	if err != nil {
		d.setStatus(regionUpload, models.StatusError, err.Error())
		return task, err
	}

	d.mu.Lock()
	epoch := d.epoch
	shown := d.view.Result.Visible
	d.setStatusLocked(regionUpload, models.StatusLoading, MsgProcessing)
	d.view.Result.Visible = false
	d.mu.Unlock()
	d.notify()

	result, err := d.backend.Upload(tctx, file)

	d.mu.Lock()
	if d.epoch != epoch {
		d.mu.Unlock()
		d.logger.Infof("[Dashboard] Discarding upload %s: signed out", task.ID)
		return d.finishUpload(task.ID, nil, ErrSessionEnded), ErrSessionEnded
	}
	if err != nil {
		d.view.Result.Visible = shown
		d.setStatusLocked(regionUpload, models.StatusError, err.Error())
	} else {
		d.setStatusLocked(regionUpload, models.StatusSuccess, MsgProcessed)
		d.view.Result = RenderResult(*result, file)
		d.selected = nil
	}
	d.mu.Unlock()

	finished := d.finishUpload(task.ID, result, err)
	d.notify()
	if err != nil {
		return finished, err
	}

	if err := d.RefreshHistory(ctx); err != nil {
		d.logger.Warnf("[Dashboard] Refresh after upload: %v", err)
	}
	return finished, nil
}

// finishUpload releases the in-flight slot for task id.
func (d *Dashboard) finishUpload(id string, result *models.DetectionResult, err error) upload.Task {
	finished, ok := d.uploads.Finish(id, result, err)
	if !ok {
		d.logger.Warnf("[Dashboard] Upload %s was no longer in flight", id)
	}
	return finished
}

// setStatus updates a status region and notifies subscribers.
func (d *Dashboard) setStatus(r region, kind models.StatusKind, text string) {
	d.mu.Lock()
	d.setStatusLocked(r, kind, text)
	d.mu.Unlock()
	d.notify()
}

// setStatusLocked writes a region and, for success, schedules its clearing
// after the banner delay. Caller holds d.mu.
func (d *Dashboard) setStatusLocked(r region, kind models.StatusKind, text string) {
	d.setRegionLocked(r, models.StatusView{Kind: kind, Text: text})

	d.gen[r]++
	if t, ok := d.timers[r]; ok {
		t.Stop()
		delete(d.timers, r)
	}
	if kind != models.StatusSuccess {
		return
	}

	gen := d.gen[r]
	d.timers[r] = time.AfterFunc(d.banner, func() {
		d.mu.Lock()
		if d.gen[r] != gen {
			d.mu.Unlock()
			return
		}
		delete(d.timers, r)
		d.setRegionLocked(r, models.StatusView{})
		d.mu.Unlock()
		d.notify()
	})
}

func (d *Dashboard) setRegionLocked(r region, status models.StatusView) {
	switch r {
	case regionUpload:
		d.view.Upload = status
	case regionHistory:
		d.view.History.Message = status
	case regionSettings:
		d.view.Settings = status
	}
}

// snapshotLocked copies the view. Caller holds d.mu.
func (d *Dashboard) snapshotLocked() models.DashboardView {
	v := d.view
	v.Version = d.version
	if d.view.History.Items != nil {
		v.History.Items = make([]models.HistoryItemView, len(d.view.History.Items))
		copy(v.History.Items, d.view.History.Items)
	}
	v.UserDisplay = d.sessions.Greeting()
	v.UploadInProgress = d.uploads.InProgress()
	if d.selected != nil {
		v.SelectedFile = d.selected.Name
	}
	return v
}

// notify publishes a new snapshot. Subscribers must not block or call back
// into methods that notify.
func (d *Dashboard) notify() {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()

	d.mu.Lock()
	d.version++
	v := d.snapshotLocked()
	d.mu.Unlock()

	d.subMu.Lock()
	subs := make([]func(models.DashboardView), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.subMu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}
