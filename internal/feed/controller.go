// internal/feed/controller.go
package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"vidfeed/internal/client"
	"vidfeed/internal/config"
	"vidfeed/internal/dedup"
	"vidfeed/internal/models"
	"vidfeed/internal/normalize"
	"vidfeed/internal/storage"
)

const (
	// Replenishment starts when the viewer is this close to the end.
	lookahead = 10

	// Consecutive fruitless load cycles before the fallback source is tried.
	emptyStreakLimit = 5

	// Attempts within one load cycle when a page comes back all-duplicates.
	duplicateRetryLimit = 3

	duplicateRetryDelay = 300 * time.Millisecond

	initialCategoryCount = 2
)

var sortMethods = []string{"hot", "top", "rising", "new"}

// Controller owns one viewer session's growing, randomized, de-duplicated
// video list and keeps it replenished ahead of the scroll position. Only one
// load-more cycle may be in flight at a time; results from a superseded cycle
// are discarded.
type Controller struct {
	store   storage.VideoStore
	reddit  client.RedditSource
	redgifs client.RedGifsSource
	cfg     *config.Config
	logger  *slog.Logger

	mu          sync.Mutex
	videos      []models.Video
	seen        *dedup.SeenSet
	cursors     map[string]string
	sortIdx     int
	emptyStreak int
	loading     bool
	seq         int64
	lastAccess  time.Time
}

func NewController(store storage.VideoStore, reddit client.RedditSource, redgifs client.RedGifsSource, cfg *config.Config, logger *slog.Logger) *Controller {
	return &Controller{
		store:      store,
		reddit:     reddit,
		redgifs:    redgifs,
		cfg:        cfg,
		logger:     logger,
		seen:       dedup.NewSeenSet(),
		cursors:    make(map[string]string),
		lastAccess: time.Now(),
	}
}

// Init performs the initial load: local stored videos and an initial
// randomized subset of subreddits fetched in parallel, merged, de-duplicated
// and shuffled. A remote failure does not block the transition to steady
// state; local videos alone are sufficient.
func (c *Controller) Init(ctx context.Context) {
	var (
		wg     sync.WaitGroup
		local  []models.Video
		remote []models.Video
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		videos, err := c.store.ListVideos(ctx)
		if err != nil {
			c.logger.Warn("initial local load failed", "error", err)
			return
		}
		local = videos
	}()
	go func() {
		defer wg.Done()
		remote = c.fetchInitialRemote(ctx)
	}()
	wg.Wait()

	merged := make([]models.Video, 0, len(local)+len(remote))
	for _, v := range append(local, remote...) {
		if c.seen.Admit(v.ID, v.VideoURL) {
			merged = append(merged, v)
		}
	}
	shuffle(merged)

	c.mu.Lock()
	c.videos = merged
	c.mu.Unlock()

	c.logger.Info("session initialized", "local", len(local), "remote", len(remote), "visible", len(merged))
}

func (c *Controller) fetchInitialRemote(ctx context.Context) []models.Video {
	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	if !c.cfg.RedditEnabled {
		gifs := c.redgifs.FetchBatch(fetchCtx, c.cfg.RedGifsTags, c.cfg.FeedPageSize)
		videos := make([]models.Video, 0, len(gifs))
		for _, g := range gifs {
			videos = append(videos, normalize.FromRedGifs(g))
		}
		return videos
	}

	pool := pickSubreddits(c.cfg.SubredditPool, initialCategoryCount)
	posts := c.reddit.FetchMulti(fetchCtx, pool, c.cfg.FeedPageSize, "hot")
	videos := make([]models.Video, 0, len(posts))
	for _, p := range posts {
		videos = append(videos, normalize.FromRedditPost(p))
	}
	return videos
}

// Videos returns a snapshot of the visible list.
func (c *Controller) Videos() []models.Video {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAccess = time.Now()
	out := make([]models.Video, len(c.videos))
	copy(out, c.videos)
	return out
}

// InFlight reports whether a load-more cycle is currently running.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// LastAccess returns when the session was last read (used for eviction).
func (c *Controller) LastAccess() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAccess
}

// OnPosition informs the controller of the viewer's current index. When the
// position enters the lookahead window and no load is in flight, a load-more
// cycle runs synchronously. Returns the number of items appended.
func (c *Controller) OnPosition(ctx context.Context, position int) int {
	c.mu.Lock()
	trigger := len(c.videos)-position <= lookahead
	c.mu.Unlock()

	if !trigger {
		return 0
	}
	return c.LoadMore(ctx)
}

// LoadMore runs one replenishment cycle: pick a random subreddit, advance the
// sort rotation, request one page at that subreddit's cursor, filter through
// the dedup engine and append survivors. If the page is all duplicates it
// retries with a different subreddit a bounded number of times. Fruitless
// cycles feed the empty streak; at the threshold the fallback source is tried
// once. Only one cycle runs at a time; concurrent callers return immediately.
func (c *Controller) LoadMore(ctx context.Context) int {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return 0
	}
	c.loading = true
	c.seq++
	seq := c.seq
	sortMethod := sortMethods[c.sortIdx%len(sortMethods)]
	c.sortIdx++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	if !c.cfg.RedditEnabled {
		return c.loadFromFallback(ctx, seq)
	}

	sawPage := false
	for attempt := 0; attempt < duplicateRetryLimit; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0
			case <-time.After(duplicateRetryDelay):
			}
		}

		subreddit := c.cfg.SubredditPool[rand.Intn(len(c.cfg.SubredditPool))]

		c.mu.Lock()
		cursor := c.cursors[subreddit]
		c.mu.Unlock()

		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		page, err := c.reddit.FetchPage(fetchCtx, subreddit, c.cfg.FeedPageSize, sortMethod, cursor)
		cancel()
		if err != nil {
			// The viewer keeps consuming the already-loaded list.
			c.logger.Warn("load-more fetch failed", "subreddit", subreddit, "error", err)
			return 0
		}

		c.mu.Lock()
		if page.After != "" || len(page.Posts) > 0 {
			c.cursors[subreddit] = page.After
		} else {
			// Empty page with no cursor: start this subreddit over next time.
			delete(c.cursors, subreddit)
		}
		c.mu.Unlock()

		if len(page.Posts) == 0 {
			break
		}
		sawPage = true

		fresh := make([]models.Video, 0, len(page.Posts))
		for _, p := range page.Posts {
			v := normalize.FromRedditPost(p)
			if c.seen.Admit(v.ID, v.VideoURL) {
				fresh = append(fresh, v)
			}
		}
		if len(fresh) == 0 {
			// All duplicates: retry with a different random subreddit.
			continue
		}

		if n := c.append(seq, fresh); n > 0 {
			c.mu.Lock()
			c.emptyStreak = 0
			c.mu.Unlock()
			return n
		}
		return 0
	}

	c.mu.Lock()
	c.emptyStreak++
	streak := c.emptyStreak
	c.mu.Unlock()
	c.logger.Info("load-more cycle yielded nothing", "empty_streak", streak, "had_items", sawPage)

	if streak >= emptyStreakLimit {
		return c.loadFromFallback(ctx, seq)
	}
	return 0
}

// loadFromFallback pulls from the secondary source. Any success resets the
// empty streak.
func (c *Controller) loadFromFallback(ctx context.Context, seq int64) int {
	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	gifs := c.redgifs.FetchBatch(fetchCtx, c.cfg.RedGifsTags, c.cfg.FeedPageSize)

	fresh := make([]models.Video, 0, len(gifs))
	for _, g := range gifs {
		v := normalize.FromRedGifs(g)
		if c.seen.Admit(v.ID, v.VideoURL) {
			fresh = append(fresh, v)
		}
	}
	if len(fresh) == 0 {
		return 0
	}

	n := c.append(seq, fresh)
	if n > 0 {
		c.mu.Lock()
		c.emptyStreak = 0
		c.mu.Unlock()
		c.logger.Info("fallback source replenished feed", "added", n)
	}
	return n
}

// append adds survivors to the visible list unless the cycle has been
// superseded by a newer one.
func (c *Controller) append(seq int64, fresh []models.Video) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		c.logger.Warn("discarding stale load result", "seq", seq, "current", c.seq)
		return 0
	}
	c.videos = append(c.videos, fresh...)
	return len(fresh)
}

func pickSubreddits(pool []string, n int) []string {
	if len(pool) <= n {
		return pool
	}
	picked := make([]string, len(pool))
	copy(picked, pool)
	rand.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked[:n]
}

func shuffle(videos []models.Video) {
	rand.Shuffle(len(videos), func(i, j int) {
		videos[i], videos[j] = videos[j], videos[i]
	})
}
