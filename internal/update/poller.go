package update

import (
	"context"

	"go.uber.org/zap"

	"github.com/stillwater-systems/appdock/internal/appimage"
)

// Result is the outcome of one availability poll, delivered on the
// channel returned by PollAsync.
type Result struct {
	App       string
	Updatable bool
	Err       error
}

// Apply stores a successful poll result on the app. Failed polls leave
// the flag untouched. Meant to run on the goroutine that owns the app
// value.
func (r Result) Apply(app *appimage.App) {
	if r.Err != nil {
		return
	}
	updatable := r.Updatable
	app.UpdatableFromURL = &updatable
}

// Poller answers "is a newer revision published" for installed apps.
// It only ever writes the app's UpdatableFromURL flag; the installed
// status is left to the lifecycle machine.
type Poller struct {
	checker URLChecker
}

// NewPoller builds a poller around the given checker.
func NewPoller(checker URLChecker) *Poller {
	return &Poller{checker: checker}
}

// Poll checks descriptorURL for a newer revision of app. On success the
// result is stored in app.UpdatableFromURL. An unrecognized or
// unreachable descriptor returns ErrUnresolvedDescriptor and leaves the
// flag untouched, not forced false. Resolver errors do the same.
// Resolver cleanup runs regardless of outcome.
func (p *Poller) Poll(ctx context.Context, app *appimage.App, descriptorURL string) (bool, error) {
	resolver := p.checker.CheckURL(ctx, descriptorURL)
	if resolver == nil {
		return false, ErrUnresolvedDescriptor
	}
	defer func() {
		if err := resolver.Cleanup(); err != nil {
			zap.L().Sugar().Warnf("resolver cleanup failed for %s: %v", app.Name, err)
		}
	}()

	updatable, err := resolver.IsUpdateAvailable(ctx, app)
	if err != nil {
		return false, err
	}

	app.UpdatableFromURL = &updatable
	return updatable, nil
}

// PollAsync runs the availability check on its own goroutine and
// delivers the result on the returned channel, so callers never block
// on the network. The app value is not touched from the background
// goroutine; the owner applies the result with Result.Apply.
func (p *Poller) PollAsync(ctx context.Context, app *appimage.App, descriptorURL string) <-chan Result {
	name := app.Name
	version := app.Version
	ch := make(chan Result, 1)
	go func() {
		probe := &appimage.App{Name: name, Version: version}
		resolver := p.checker.CheckURL(ctx, descriptorURL)
		if resolver == nil {
			ch <- Result{App: name, Err: ErrUnresolvedDescriptor}
			return
		}
		defer func() {
			if err := resolver.Cleanup(); err != nil {
				zap.L().Sugar().Warnf("resolver cleanup failed for %s: %v", name, err)
			}
		}()

		updatable, err := resolver.IsUpdateAvailable(ctx, probe)
		ch <- Result{App: name, Updatable: updatable, Err: err}
	}()
	return ch
}
