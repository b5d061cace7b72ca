package cli

import (
	"context"

	"github.com/kinly-app/kinly/internal/app/remotesync"
	"github.com/kinly-app/kinly/internal/daemon"
	"github.com/kinly-app/kinly/internal/domain"
	"github.com/kinly-app/kinly/internal/infra/remote"
)

// openSession starts an engine session for user. With remoteURL it syncs
// against a running daemon; otherwise it opens the local database.
// The returned close func flushes pending pushes.
func openSession(ctx context.Context, user, remoteURL string) (*remotesync.Session, func(), error) {
	if remoteURL == "" {
		d, err := daemon.New()
		if err != nil {
			return nil, nil, err
		}
		return d.Sessions.Session(ctx, user), d.Close, nil
	}

	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	loc, _ := cfg.Location()
	sess := remotesync.StartSession(ctx, remotesync.SessionConfig{
		Store:    remote.New(remoteURL, remote.WithPollInterval(cfg.PollInterval())),
		Identity: domain.StaticIdentity(user),
		Location: loc,
		Debounce: cfg.Debounce(),
	})
	return sess, sess.Close, nil
}
