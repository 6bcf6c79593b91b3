package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/shared"
)

const (
	DefaultPlayerName = "Spotlight Web Player"
	DefaultVolume     = 0.7
)

// Options configures a [Controller].
type Options struct {
	Name       string
	Volume     float64
	Credential func() string
	Logger     *log.Logger
}

// Controller is the playback state machine for one page.
type Controller struct {
	sdk      SDK
	commands Commands
	tracks   TrackSource
	opts     Options
	logger   *log.Logger

	// ctx outlives requests; event-driven work runs under it until Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	st        state
	player    Player
	mounted   bool
	closed    bool
	nextSub   int
	listeners map[int]func(Snapshot)
}

// NewController wires a controller. Missing options fall back to the player defaults.
func NewController(sdk SDK, commands Commands, tracks TrackSource, opts Options) *Controller {
	if opts.Name == "" {
		opts.Name = DefaultPlayerName
	}
	if opts.Volume <= 0 || opts.Volume > 1 {
		opts.Volume = DefaultVolume
	}
	if opts.Credential == nil {
		opts.Credential = func() string { return "" }
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		sdk:       sdk,
		commands:  commands,
		tracks:    tracks,
		opts:      opts,
		logger:    opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
		st:        uninitialized{},
		listeners: make(map[int]func(Snapshot)),
	}
}

// SDK returns the SDK the controller was built with.
func (c *Controller) SDK() SDK {
	return c.sdk
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshotOf(c.st)
}

// Subscribe registers fn to receive a snapshot after every transition.
// Callbacks run outside the controller lock. The returned func removes the subscription.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// transition applies fn under the lock and notifies subscribers when it reports a change.
func (c *Controller) transition(fn func() bool) {
	c.mu.Lock()
	if c.closed || !fn() {
		c.mu.Unlock()
		return
	}
	snap := snapshotOf(c.st)
	listeners := make([]func(Snapshot), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// updateDevice applies fn to the ready state if deviceID is still the active device.
func (c *Controller) updateDevice(deviceID string, fn func(r *deviceReady)) {
	c.transition(func() bool {
		r, ok := c.st.(deviceReady)
		if !ok || r.device.ID != deviceID {
			return false
		}
		fn(&r)
		c.st = r
		return true
	})
}

// selecting reports whether artistID is still the pending selection on deviceID.
// A stop, a newer selection or a device change ends it.
func (c *Controller) selecting(deviceID, artistID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.st.(deviceReady)
	return ok && !c.closed && r.device.ID == deviceID && r.loadingArtist == artistID
}

// Mount starts loading the SDK. Only the first call has an effect.
//
// When the loader is already resolved the player connects right away; otherwise the script is
// injected and the player connects once the loader resolves. Connecting happens in the background
// under ctx.
func (c *Controller) Mount(ctx context.Context) {
	loader := c.sdk.Loader()

	c.mu.Lock()
	if c.mounted || c.closed {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.mu.Unlock()

	if loader.Resolved() {
		c.transition(func() bool {
			c.st = sdkReady{}
			return true
		})
		go c.connect(ctx)
		return
	}

	loader.Inject()
	c.transition(func() bool {
		c.st = sdkLoading{}
		return true
	})

	go func() {
		select {
		case <-loader.Ready():
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		}
		c.transition(func() bool {
			if _, ok := c.st.(sdkLoading); !ok {
				return false
			}
			c.st = sdkReady{}
			return true
		})
		c.connect(ctx)
	}()
}

// connect creates the player, registers listeners and connects it.
func (c *Controller) connect(ctx context.Context) {
	player, err := c.sdk.NewPlayer(PlayerOptions{
		Name:   c.opts.Name,
		Token:  c.opts.Credential,
		Volume: c.opts.Volume,
	})
	if err != nil {
		c.logger.Error("failed to create player", "error", err)
		c.transition(func() bool {
			c.st = sdkReady{lastError: err.Error()}
			return true
		})
		return
	}

	player.AddListener(EventReady, func(p EventPayload) { c.handleReady(p.DeviceID) })
	player.AddListener(EventNotReady, func(p EventPayload) { c.handleNotReady(p.DeviceID) })
	for _, ev := range ErrorEvents {
		player.AddListener(ev, func(p EventPayload) { c.handleError(ev, p.Message) })
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		player.Disconnect()
		return
	}
	c.player = player
	c.mu.Unlock()

	c.transition(func() bool {
		c.st = deviceConnecting{}
		return true
	})

	ok, err := player.Connect(ctx)
	if err == nil && ok {
		return
	}

	reason := "player refused to connect"
	if err != nil {
		reason = err.Error()
	}
	c.logger.Error("player connection failed", "error", reason)
	c.transition(func() bool {
		if _, connecting := c.st.(deviceConnecting); !connecting {
			return false
		}
		c.st = sdkReady{lastError: reason}
		return true
	})
}

func (c *Controller) handleReady(deviceID string) {
	if deviceID == "" {
		c.logger.Warn("ready event without device id")
		return
	}

	changed := false
	c.transition(func() bool {
		if r, ok := c.st.(deviceReady); ok && r.device.ID == deviceID {
			return false
		}
		c.st = deviceReady{device: models.Device{ID: deviceID}, activity: ActivityIdle}
		changed = true
		return true
	})
	if !changed {
		return
	}

	c.logger.Info("player ready", "device", deviceID)
	if err := c.commands.TransferPlayback(c.ctx, c.opts.Credential(), deviceID, false); err != nil {
		c.logger.Warn("failed to transfer playback", "device", deviceID, "error", err)
		return
	}
	c.updateDevice(deviceID, func(r *deviceReady) { r.transferred = true })
}

func (c *Controller) handleNotReady(deviceID string) {
	c.logger.Warn("player went offline", "device", deviceID)
	c.transition(func() bool {
		r, ok := c.st.(deviceReady)
		if !ok || (deviceID != "" && r.device.ID != deviceID) {
			return false
		}
		c.st = sdkReady{}
		return true
	})
}

func (c *Controller) handleError(ev Event, message string) {
	c.logger.Error("player error", "event", ev, "message", message)
	c.transition(func() bool {
		c.st = sdkReady{lastError: fmt.Sprintf("%s: %s", ev, message)}
		return true
	})
}

// SelectArtist plays artistID's top track on this page's device.
//
// Returns [shared.ErrDeviceNotReady] without any network call when the device is not ready.
// A failed lookup or play is logged, restores the previous activity and is returned wrapped.
// An artist without tracks leaves the controller idle with nothing playing.
func (c *Controller) SelectArtist(ctx context.Context, artistID string) error {
	if artistID == "" {
		return fmt.Errorf("%w: artist id is required", shared.ErrInvalidArgument)
	}

	var (
		deviceID    string
		prev        Activity
		transferred bool
		rejected    = true
	)
	c.transition(func() bool {
		r, ok := c.st.(deviceReady)
		if !ok {
			return false
		}
		rejected = false
		deviceID, prev, transferred = r.device.ID, r.activity, r.transferred
		r.activity = ActivityTrackLoading
		r.loadingArtist = artistID
		c.st = r
		return true
	})
	if rejected {
		return shared.ErrDeviceNotReady
	}

	credential := c.opts.Credential()
	tracks, err := c.tracks.FetchTopTracks(ctx, artistID, credential)
	if err != nil {
		c.logger.Error("failed to load top tracks", "artist", artistID, "error", err)
		c.updateDevice(deviceID, func(r *deviceReady) { r.finish(artistID, settle(prev, r.nowPlaying)) })
		return err
	}

	if len(tracks) == 0 {
		c.logger.Info("artist has no top tracks", "artist", artistID)
		c.updateDevice(deviceID, func(r *deviceReady) {
			if r.loadingArtist != artistID {
				return
			}
			r.nowPlaying = nil
			r.externalURL = ""
			r.finish(artistID, ActivityIdle)
		})
		return nil
	}

	if !c.selecting(deviceID, artistID) {
		c.logger.Debug("selection superseded during lookup, dropping result", "artist", artistID, "device", deviceID)
		return nil
	}

	first := tracks[0]
	c.updateDevice(deviceID, func(r *deviceReady) { r.externalURL = first.ExternalURL })

	if !transferred {
		if err := c.commands.TransferPlayback(ctx, credential, deviceID, false); err != nil {
			c.logger.Warn("failed to transfer playback before play", "device", deviceID, "error", err)
		} else {
			c.updateDevice(deviceID, func(r *deviceReady) { r.transferred = true })
		}
	}

	if err := c.commands.Play(ctx, credential, deviceID, []string{first.URI}); err != nil {
		c.logger.Error("failed to start playback", "track", first.ID, "error", err)
		c.updateDevice(deviceID, func(r *deviceReady) { r.finish(artistID, settle(prev, r.nowPlaying)) })
		return err
	}

	c.updateDevice(deviceID, func(r *deviceReady) {
		if r.loadingArtist != artistID {
			return
		}
		r.nowPlaying = &models.NowPlaying{ArtistID: artistID, TrackID: first.ID, Title: first.Name}
		r.finish(artistID, ActivityPlaying)
	})
	return nil
}

// TogglePause pauses or resumes the current track.
//
// The account state decides the direction: a paused account resumes, anything else pauses.
// When the state cannot be read, resume is tried first and pause second.
func (c *Controller) TogglePause(ctx context.Context) error {
	var (
		deviceID string
		err      error
	)
	c.mu.Lock()
	r, ok := c.st.(deviceReady)
	switch {
	case c.closed || !ok:
		err = shared.ErrDeviceNotReady
	case r.activity != ActivityPlaying && r.activity != ActivityPaused:
		err = shared.ErrNotPlaying
	default:
		deviceID = r.device.ID
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	credential := c.opts.Credential()
	state, err := c.commands.PlaybackState(ctx, credential)
	if err != nil {
		c.logger.Warn("failed to read playback state", "error", err)
		if rerr := c.commands.Resume(ctx, credential, deviceID); rerr == nil {
			c.setActivity(deviceID, ActivityPlaying)
			return nil
		}
		if perr := c.commands.Pause(ctx, credential, deviceID); perr != nil {
			c.logger.Error("failed to toggle playback", "error", perr)
			return perr
		}
		c.setActivity(deviceID, ActivityPaused)
		return nil
	}

	if state != nil && !state.IsPlaying {
		if err := c.commands.Resume(ctx, credential, deviceID); err != nil {
			c.logger.Error("failed to resume playback", "error", err)
			return err
		}
		c.setActivity(deviceID, ActivityPlaying)
		return nil
	}

	if err := c.commands.Pause(ctx, credential, deviceID); err != nil {
		c.logger.Error("failed to pause playback", "error", err)
		return err
	}
	c.setActivity(deviceID, ActivityPaused)
	return nil
}

// setActivity switches between playing and paused unless a selection or stop intervened.
func (c *Controller) setActivity(deviceID string, a Activity) {
	c.updateDevice(deviceID, func(r *deviceReady) {
		if r.activity == ActivityPlaying || r.activity == ActivityPaused {
			r.activity = a
		}
	})
}

// Stop pauses the device, if ready, and clears the now-playing track. It never fails.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	r, ok := c.st.(deviceReady)
	closed := c.closed
	c.mu.Unlock()
	if !ok || closed {
		return
	}

	deviceID := r.device.ID
	if err := c.commands.Pause(ctx, c.opts.Credential(), deviceID); err != nil {
		c.logger.Warn("failed to pause on stop", "device", deviceID, "error", err)
	}

	c.updateDevice(deviceID, func(r *deviceReady) {
		r.nowPlaying = nil
		r.loadingArtist = ""
		r.activity = ActivityIdle
	})
}

// Close disconnects the player and stops reacting to events. An SDK with a Close method is closed too.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	player := c.player
	c.player = nil
	c.st = uninitialized{}
	c.listeners = make(map[int]func(Snapshot))
	c.mu.Unlock()

	c.cancel()
	if player != nil {
		player.Disconnect()
	}
	if closer, ok := c.sdk.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
