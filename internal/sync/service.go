package sync

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mlindegarde/blog--bg-stats/pkg/bgg"
	"github.com/mlindegarde/blog--bg-stats/pkg/config"
	"github.com/mlindegarde/blog--bg-stats/pkg/events"
	"github.com/mlindegarde/blog--bg-stats/pkg/logger"
	"github.com/mlindegarde/blog--bg-stats/pkg/metrics"
	"github.com/mlindegarde/blog--bg-stats/pkg/model"
	"github.com/mlindegarde/blog--bg-stats/pkg/retry"
	"github.com/mlindegarde/blog--bg-stats/pkg/store"

	"go.uber.org/zap"
)

// maxPlaysPerPage is the fixed server-side page size of the BGG plays
// endpoint. A page shorter than this is the last page; the total attribute
// is informational only.
const maxPlaysPerPage = 100

const (
	strategyFull        = "full"
	strategyIncremental = "incremental"
)

// Service drives the play synchronization loop: once per pass it walks the
// tracked-game list, runs a full import or an incremental update per game,
// then sleeps for the configured delay. Games and pages are processed
// strictly sequentially.
type Service struct {
	logger   *logger.Logger
	store    store.Store
	client   bgg.Client
	notifier events.Notifier
	cfg      config.SyncConfig
	policy   retry.Policy

	// now is swappable so tests can pin the clock.
	now func() time.Time
}

// NewService creates a new sync Service instance.
func NewService(
	l *logger.Logger,
	st store.Store,
	c bgg.Client,
	n events.Notifier,
	cfg config.SyncConfig,
	policy retry.Policy,
) *Service {
	return &Service{
		logger:   l,
		store:    st,
		client:   c,
		notifier: n,
		cfg:      cfg,
		policy:   policy,
		now:      time.Now,
	}
}

// Start runs sync passes until the context is cancelled or a pass fails.
// A per-game fatal error stops the loop after the pass completes; the
// service then requires a restart. Cancellation returns ctx.Err().
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("starting play sync loop")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.runPass(ctx); err != nil {
			if isCancellation(err) {
				return err
			}
			return fmt.Errorf("sync pass failed: %w", err)
		}
		metrics.PassesCompletedTotal.Inc()

		s.logger.Info("finished processing list",
			zap.Int("next_update_minutes", s.cfg.UpdateDelayMinutes))

		delay := time.Duration(s.cfg.UpdateDelayMinutes) * time.Minute
		if err := retry.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// runPass synchronizes every tracked game once. A per-game failure is
// logged, the remaining games of the pass still run, and the pass reports
// the error afterwards so the outer loop halts.
func (s *Service) runPass(ctx context.Context) error {
	games, err := s.store.ListTrackedGames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tracked games: %w", err)
	}

	s.logger.Info("will log plays", zap.Int("game_count", len(games)))
	for _, game := range games {
		s.logger.Debug("tracking game",
			zap.String("game", game.Name),
			zap.Int("objectid", game.ObjectID))
	}

	var passErr error
	for _, game := range games {
		if ctx.Err() != nil {
			s.logger.Info("skipping game, service is shutting down", zap.String("game", game.Name))
			continue
		}

		s.logger.Info("starting play logging", zap.String("game", game.Name))

		if err := s.syncGame(ctx, game); err != nil {
			if isCancellation(err) {
				return err
			}
			s.logger.Error("failed to get plays", err, zap.String("game", game.Name))
			passErr = err
			continue
		}

		s.logger.Info("completed updating plays", zap.String("game", game.Name))
	}

	return passErr
}

// syncGame picks the strategy for one game from its stored status.
func (s *Service) syncGame(ctx context.Context, game model.TrackedGame) error {
	status, err := s.store.GetSyncStatus(ctx, game.ObjectID)
	if err != nil {
		return fmt.Errorf("failed to load sync status: %w", err)
	}

	if status != nil && status.ImportSuccessful {
		return s.updateRecentPlays(ctx, game, *status)
	}
	return s.importAllPlays(ctx, game)
}

// importAllPlays replaces the game's stored history: delete everything, then
// fetch every page from page 1 with no date bound. The import status is only
// written once the last page has landed.
func (s *Service) importAllPlays(ctx context.Context, game model.TrackedGame) error {
	log := s.logger.With(zap.String("game", game.Name))
	startedAt := s.now()

	log.Info("removing any existing plays")
	if err := s.store.DeletePlaysForGame(ctx, game.ObjectID); err != nil {
		return fmt.Errorf("failed to delete existing plays: %w", err)
	}

	log.Info("starting play import")

	page := 1
	for {
		result, err := s.client.FetchPlays(ctx, game.ObjectID, page)
		if err != nil {
			return fmt.Errorf("failed to fetch plays page %d: %w", page, err)
		}

		if retryWait, retrying := s.classify(log, result, page, s.policy.FullRetryDelay); retrying {
			if err := retry.Sleep(ctx, retryWait); err != nil {
				return err
			}
			continue
		}

		log.Info("successfully downloaded page",
			zap.Int("page", result.Page),
			zap.Int("total_pages", totalPages(result.TotalCount)))

		start := time.Now()
		if err := s.store.InsertPlays(ctx, result.Plays); err != nil {
			return fmt.Errorf("failed to insert plays: %w", err)
		}
		metrics.UpsertLatency.Observe(time.Since(start).Seconds())

		s.notifyPage(ctx, game, strategyFull, result.Page, len(result.Plays), model.MergeOutcome{})

		if len(result.Plays) < maxPlaysPerPage {
			break
		}
		page++
	}

	status := model.SyncStatus{
		ObjectID:         game.ObjectID,
		BoardGameName:    game.Name,
		ImportSuccessful: true,
		LastUpdated:      startedAt,
	}
	if err := s.store.ReplaceSyncStatus(ctx, status); err != nil {
		return fmt.Errorf("failed to record import status: %w", err)
	}
	metrics.FullImportsTotal.Inc()

	if count, err := s.store.CountPlaysForGame(ctx, game.ObjectID); err == nil {
		log.Info("play import complete", zap.Int64("stored_plays", count))
	}

	return nil
}

// updateRecentPlays merges plays from the last IncrementalSpanDays days onto
// the existing history and advances LastUpdated to the strategy start time.
func (s *Service) updateRecentPlays(ctx context.Context, game model.TrackedGame, status model.SyncStatus) error {
	log := s.logger.With(zap.String("game", game.Name))

	if s.cfg.OnceDailyOnly && sameDay(status.LastUpdated, s.now()) {
		metrics.GamesSkippedTotal.Inc()
		log.Info("already logged plays today")
		return nil
	}

	maxDate := s.now()
	minDate := maxDate.AddDate(0, 0, -s.cfg.IncrementalSpanDays)

	log.Info("getting recent plays",
		zap.String("min_date", minDate.Format("2006-01-02")),
		zap.String("max_date", maxDate.Format("2006-01-02")),
		zap.Int("span_days", s.cfg.IncrementalSpanDays))

	page := 1
	for {
		result, err := s.client.FetchPlaysBetween(ctx, game.ObjectID, minDate, maxDate, page)
		if err != nil {
			return fmt.Errorf("failed to fetch plays page %d: %w", page, err)
		}

		if retryWait, retrying := s.classify(log, result, page, s.policy.IncrementalRetryDelay); retrying {
			if err := retry.Sleep(ctx, retryWait); err != nil {
				return err
			}
			continue
		}

		log.Info("successfully downloaded page",
			zap.Int("page", result.Page),
			zap.Int("total_pages", totalPages(result.TotalCount)))

		start := time.Now()
		outcome, err := s.store.MergePlays(ctx, result.Plays)
		if err != nil {
			return fmt.Errorf("failed to merge plays: %w", err)
		}
		metrics.UpsertLatency.Observe(time.Since(start).Seconds())

		if len(result.Plays) > 0 && !outcome.WasSuccessful {
			log.Warn("failed to complete the upsert successfully", zap.Int("page", result.Page))
		}
		log.Info("upsert results",
			zap.Int64("matched", outcome.MatchedCount),
			zap.Int64("modified", outcome.ModifiedCount),
			zap.Int64("inserted", outcome.InsertedCount))

		s.notifyPage(ctx, game, strategyIncremental, result.Page, len(result.Plays), outcome)

		if len(result.Plays) < maxPlaysPerPage {
			break
		}
		page++
	}

	status.LastUpdated = maxDate
	if err := s.store.ReplaceSyncStatus(ctx, status); err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}

	return nil
}

// classify handles the two retryable page outcomes. It returns the wait to
// apply and true when the same page must be re-requested. Both paths retry
// without a ceiling; cancellation is the only way out of a persistently
// broken remote.
func (s *Service) classify(log *logger.Logger, result bgg.PlaysPage, page int, transientDelay time.Duration) (time.Duration, bool) {
	if result.RateLimited {
		metrics.RateLimitedTotal.Inc()
		log.Warn("too many requests, will wait to resume", zap.Int("page", page))
		return s.policy.RateLimitCooldown, true
	}
	if !result.Successful {
		metrics.FetchFailuresTotal.Inc()
		log.Warn("failed to get plays, will retry", zap.Int("page", page))
		return transientDelay, true
	}

	metrics.PagesFetchedTotal.Inc()
	return 0, false
}

// notifyPage publishes a best-effort sync event for one written page.
func (s *Service) notifyPage(ctx context.Context, game model.TrackedGame, strategy string, page, playCount int, outcome model.MergeOutcome) {
	if playCount == 0 {
		return
	}

	event := events.SyncEvent{
		GameID:        game.ObjectID,
		GameName:      game.Name,
		Strategy:      strategy,
		Page:          page,
		PlayCount:     playCount,
		MatchedCount:  outcome.MatchedCount,
		ModifiedCount: outcome.ModifiedCount,
		InsertedCount: outcome.InsertedCount,
		OccurredAt:    s.now(),
	}

	if err := s.notifier.PlaysSynced(ctx, event); err != nil {
		s.logger.Warn("failed to publish sync event",
			zap.Error(err),
			zap.String("game", game.Name))
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func totalPages(totalCount int) int {
	return int(math.Ceil(float64(totalCount) / float64(maxPlaysPerPage)))
}
