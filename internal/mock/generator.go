// Package mock writes synthetic channels and messages so the viewer has a
// live feed to show without a real extractor upstream.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/tgate/dataviewer/internal/notify"
	"github.com/tgate/dataviewer/internal/store"
)

// Inserter stores one row and returns its id.
type Inserter interface {
	Insert(ctx context.Context, table string, row store.Row) (int64, error)
}

type channel struct {
	numericID int64
	username  string
	private   bool
	authors   []string
}

// Generator inserts a new message every interval and a new channel every
// fifth tick. When pub is set each insert is also published; leave it nil
// when the database announces changes itself.
type Generator struct {
	st       Inserter
	pub      notify.Publisher
	interval time.Duration
	rng      *rand.Rand
	now      func() time.Time

	tick     int
	msgID    int64
	channels []*channel
}

func NewGenerator(st Inserter, pub notify.Publisher, interval time.Duration, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		st:       st,
		pub:      pub,
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
	}
}

// Seed inserts an initial set of channels and n messages.
func (g *Generator) Seed(ctx context.Context, n int) error {
	for i := 0; i < 3; i++ {
		if err := g.addChannel(ctx); err != nil {
			return err
		}
	}
	for i := 0; i < n; i++ {
		if err := g.addMessage(ctx); err != nil {
			return err
		}
	}
	glog.Infof("mock: seeded %d channels and %d messages", len(g.channels), n)
	return nil
}

// Start runs the generator until ctx is done.
func (g *Generator) Start(ctx context.Context) {
	go g.run(ctx)
}

func (g *Generator) run(ctx context.Context) {
	interval := g.interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.Step(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				glog.Warningf("mock: %v", err)
			}
		}
	}
}

// Step performs one tick.
func (g *Generator) Step(ctx context.Context) error {
	g.tick++
	if len(g.channels) == 0 || g.tick%5 == 0 {
		if err := g.addChannel(ctx); err != nil {
			return err
		}
	}
	return g.addMessage(ctx)
}

func (g *Generator) insert(ctx context.Context, table string, row store.Row) error {
	id, err := g.st.Insert(ctx, table, row)
	if err != nil {
		return err
	}
	if g.pub != nil {
		g.pub.Publish(notify.ChangeNotification(table, "INSERT", id))
	}
	return nil
}

func (g *Generator) newUUID() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

var statuses = []string{"normal", "normal", "normal", "verified", "scam", "fake"}

func (g *Generator) addChannel(ctx context.Context) error {
	ch := &channel{
		numericID: 1_000_000_000 + g.rng.Int63n(1_000_000_000),
		username:  pick(g.rng, handles) + fmt.Sprintf("_%d", g.rng.Intn(1000)),
		private:   g.rng.Intn(4) == 0,
	}
	for i := 0; i < 1+g.rng.Intn(3); i++ {
		ch.authors = append(ch.authors, g.newUUID())
	}

	now := g.now().UTC()
	row := store.Row{
		"labels":      "channel",
		"numeric_id":  ch.numericID,
		"username":    ch.username,
		"meta":        map[string]any{"title": strings.ReplaceAll(ch.username, "_", " "), "members": g.rng.Intn(50000)},
		"is_private":  ch.private,
		"status":      pick(g.rng, statuses),
		"created_at":  now,
		"updated_at":  now,
		"access_hash": g.rng.Int63(),
	}
	if err := g.insert(ctx, store.TableObjects, row); err != nil {
		return err
	}
	g.channels = append(g.channels, ch)
	return nil
}

func (g *Generator) addMessage(ctx context.Context) error {
	ch := g.channels[g.rng.Intn(len(g.channels))]
	g.msgID++
	now := g.now().UTC()
	m := compose(g.rng)

	row := store.Row{
		"labels":          "post",
		"numeric_id":      ch.numericID,
		"msg_id":          g.msgID,
		"account_id":      ch.authors[g.rng.Intn(len(ch.authors))],
		"author_is_bot":   g.rng.Intn(10) == 0,
		"views":           g.rng.Intn(20000),
		"forwards":        g.rng.Intn(200),
		"reactions":       map[string]int{"👍": g.rng.Intn(100), "🔥": g.rng.Intn(50)},
		"comments_count":  g.rng.Intn(30),
		"date":            now.Add(-time.Duration(g.rng.Intn(3600)) * time.Second),
		"text_markdown":   m.markdown,
		"text_clean":      m.plain,
		"text_string":     m.plain,
		"body":            m.plain,
		"external_url":    fmt.Sprintf("https://t.me/%s/%d", ch.username, g.msgID),
		"created_at":      now,
		"updated_at":      now,
		"diagnostics":     map[string]any{"source": "mock", "tick": g.tick},
		"email_addresses": list(m.emails),
		"tg_links":        list(m.tgLinks),
		"www_links":       list(m.wwwLinks),
		"mentions":        list(m.mentions),
		"hashtags":        list(m.hashtags),
		"phone_numbers":   list(m.phones),
		"intense_words":   list(m.intense),
		"questions":       list(m.questions),
		"exclamations":    list(m.exclamations),
		"emojis":          list(m.emojis),
		"topic_category":  pick(g.rng, topics),
	}
	return g.insert(ctx, store.TableMessages, row)
}

// list maps an empty extraction to NULL.
func list(xs []string) any {
	if len(xs) == 0 {
		return nil
	}
	return xs
}

func pick(rng *rand.Rand, from []string) string {
	return from[rng.Intn(len(from))]
}
