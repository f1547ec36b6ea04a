package cli

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/siteext-labs/siteext/internal/config"
	"github.com/siteext-labs/siteext/internal/extension"
	"github.com/siteext-labs/siteext/internal/feed"
	"github.com/siteext-labs/siteext/internal/installer"
	"github.com/siteext-labs/siteext/internal/logging"
	"github.com/siteext-labs/siteext/internal/store"
)

// app is the wiring shared by the extension commands.
type app struct {
	settings config.Settings
	logger   zerolog.Logger
	feed     *feed.Client
	store    *store.Store
	manager  *extension.Manager
}

func newApp(cmd *cobra.Command) (*app, error) {
	s := settings()
	logger, err := logging.New(cmd.ErrOrStderr(), s.LogLevel, s.LogFormat)
	if err != nil {
		return nil, err
	}

	client := feed.New(s.FeedURL,
		feed.WithHTTPClient(&http.Client{Timeout: s.FeedTimeout}),
		feed.WithLogger(logging.Component(logger, "feed")),
		feed.WithAPIKey(s.FeedAPIKey),
		feed.WithPageSize(s.FeedPageSize),
		feed.WithMaxResults(s.FeedMaxResults),
		feed.WithRetry(s.FeedRetryAttempts, 0),
	)
	st := store.New(s.ExtensionsRoot,
		store.WithIndexPath(s.StoreIndexPath),
		store.WithLogger(logging.Component(logger, "store")),
	)
	in := installer.New(
		installer.WithLogger(logging.Component(logger, "installer")),
		installer.WithRetry(s.InstallRetryAttempts, s.InstallRetryDelay),
	)
	mgr := extension.NewManager(client, st, in,
		extension.WithLogger(logging.Component(logger, "manager")),
		extension.WithConcurrency(s.CheckLatestConcurrency),
	)

	return &app{settings: s, logger: logger, feed: client, store: st, manager: mgr}, nil
}
