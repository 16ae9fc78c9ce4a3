// Command catalog-browse loads pages of the catalog, applies a search term,
// enriches the visible records and prints them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/Sternrassler/catalog-client/pkg/browser"
	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/client"
	"github.com/Sternrassler/catalog-client/pkg/config"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/Sternrassler/catalog-client/pkg/metrics"
	"github.com/Sternrassler/catalog-client/pkg/projection"
	"github.com/Sternrassler/catalog-client/pkg/state"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "catalog-browse: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("catalog-browse", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}

	logger, err := logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Format: logging.Format(cfg.Logging.Format),
		Output: stderr,
	})
	if err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, logging.NewLogger("metrics")); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	transportCfg := client.DefaultConfig(cfg.API.BaseURL, cfg.API.UserAgent)
	transportCfg.Timeout = cfg.API.Timeout
	transportCfg.Retry.MaxAttempts = cfg.API.MaxAttempts
	transportCfg.Breaker.ConsecutiveFailures = cfg.API.BreakerFailures

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, response cache disabled")
		} else {
			transportCfg.Redis = rdb
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
		}
	}

	transport, err := client.New(transportCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	source := catalog.NewClient(transport, catalog.WithPageSize(cfg.API.PageSize))

	mode, err := projection.ParseMode(cfg.Browse.SearchMode)
	if err != nil {
		return err
	}

	store := state.NewStore()
	for _, name := range cfg.Browse.Favorites {
		if !store.IsFavorite(name) {
			store.ToggleFavorite(name)
		}
	}

	session := browser.New(source, source, store, browser.Config{
		SearchDebounce: cfg.Browse.SearchDebounce,
		Mode:           mode,
		MaxConcurrency: cfg.Browse.MaxConcurrency,
	})
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("something went wrong loading the catalog: %w", err)
	}
	for i := 1; i < cfg.Browse.Pages && session.HasMore(); i++ {
		if err := session.LoadMore(ctx); err != nil {
			logger.Warn().Err(err).Int("page", i).Msg("Stopped loading pages")
			break
		}
	}

	store.SetSearch(cfg.Browse.Search)
	session.EnrichVisible()

	done := make(chan struct{})
	go func() {
		session.WaitDetails()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		session.Close()
		<-done
	}

	return render(stdout, session)
}

// render prints one row per visible record.
func render(w io.Writer, session *browser.Session) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FAV\tNAME\tID\tTYPES\tIMAGE")

	visible := session.Visible()
	for _, r := range visible {
		fav := ""
		if session.IsFavorite(r.Name) {
			fav = "*"
		}
		id, types, image := "-", "-", "-"
		if d, ok := session.Detail(r); ok && !d.IsEmpty() {
			id = fmt.Sprint(d.NumericID)
			if len(d.Categories) > 0 {
				types = strings.Join(d.Categories, ",")
			}
			if d.ImageRef != "" {
				image = d.ImageRef
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", fav, r.Name, id, types, image)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	more := ""
	if session.HasMore() {
		more = ", more available"
	}
	_, err := fmt.Fprintf(w, "%d of %d loaded records shown%s\n", len(visible), len(session.Accumulated()), more)
	return err
}
