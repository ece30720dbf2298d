package querygen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/das-group/HOSIT/internal/random"
)

// Generator names known to the default table.
const (
	GeneratorHeadlines = "spiegelonline"
	GeneratorTrends    = "facebook"
	GeneratorDefault   = "default"
	// GeneratorSocial mixes celebrity names into the trends generator.
	GeneratorSocial = "social"
)

// CelebrityProbability is the chance SocialQuery picks from the static list.
const CelebrityProbability = 0.6

var (
	// ErrUnknownGenerator is returned for a name missing from the table.
	ErrUnknownGenerator = errors.New("querygen: unknown generator")
	// ErrNoQueries is returned when every item of a feed evaluated to an empty query.
	ErrNoQueries = errors.New("querygen: no queries available")
)

// FeedSource supplies the items of a named feed.
type FeedSource interface {
	Items(ctx context.Context, feed string) ([]Item, error)
}

// GeneratorSpec binds a feed to the evaluator applied to its items.
type GeneratorSpec struct {
	Feed      string
	Evaluator Evaluator
}

// DefaultTable returns the built-in generators. "default" aliases the trends generator.
func DefaultTable() map[string]GeneratorSpec {
	trends := GeneratorSpec{Feed: GeneratorTrends, Evaluator: Normal}
	return map[string]GeneratorSpec{
		GeneratorHeadlines: {Feed: GeneratorHeadlines, Evaluator: Headline},
		GeneratorTrends:    trends,
		GeneratorDefault:   trends,
	}
}

// Generator picks random queries from evaluated feed items.
type Generator struct {
	source      FeedSource
	table       map[string]GeneratorSpec
	rng         *random.Engine
	celebrities []string
	logger      *zap.Logger
}

// NewGenerator creates a generator. A nil table uses DefaultTable.
func NewGenerator(source FeedSource, table map[string]GeneratorSpec, rng *random.Engine, logger *zap.Logger) *Generator {
	if table == nil {
		table = DefaultTable()
	}
	return &Generator{
		source:      source,
		table:       table,
		rng:         rng,
		celebrities: Celebrities(),
		logger:      logger.Named("querygen"),
	}
}

// Queries evaluates every item of the named generator's feed and drops empty results.
func (g *Generator) Queries(ctx context.Context, name string) ([]string, error) {
	spec, ok := g.table[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, name)
	}
	items, err := g.source.Items(ctx, spec.Feed)
	if err != nil {
		return nil, fmt.Errorf("querygen: failed to read feed %q: %w", spec.Feed, err)
	}
	queries := make([]string, 0, len(items))
	for _, item := range items {
		if q := spec.Evaluator.Evaluate(item); q != "" {
			queries = append(queries, q)
		}
	}
	g.logger.Debug("Evaluated feed.", zap.String("generator", name), zap.Int("items", len(items)), zap.Int("queries", len(queries)))
	return queries, nil
}

// Query returns a random query of the named generator. GeneratorSocial
// delegates to SocialQuery.
func (g *Generator) Query(ctx context.Context, name string) (string, error) {
	if name == GeneratorSocial {
		return g.SocialQuery(ctx)
	}
	queries, err := g.Queries(ctx, name)
	if err != nil {
		return "", err
	}
	if len(queries) == 0 {
		return "", fmt.Errorf("%w: generator %q", ErrNoQueries, name)
	}
	return queries[g.rng.Pick(len(queries))], nil
}

// SocialQuery returns a lower-cased celebrity name with CelebrityProbability,
// otherwise a query of the trends generator.
func (g *Generator) SocialQuery(ctx context.Context) (string, error) {
	if len(g.celebrities) > 0 && g.rng.NextBoolean(CelebrityProbability) {
		return strings.ToLower(g.celebrities[g.rng.Pick(len(g.celebrities))]), nil
	}
	return g.Query(ctx, GeneratorTrends)
}

// StaticSource serves feeds from memory.
type StaticSource map[string][]Item

// Items implements FeedSource.
func (s StaticSource) Items(_ context.Context, feed string) ([]Item, error) {
	items, ok := s[feed]
	if !ok {
		return nil, fmt.Errorf("feed %q not available", feed)
	}
	return items, nil
}

// Feeds lists the feed names, sorted.
func (s StaticSource) Feeds() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFileSource reads a JSON object mapping feed names to item arrays, as
// produced by an external feed fetcher.
func LoadFileSource(path string) (StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("querygen: failed to read feed file: %w", err)
	}
	var src StaticSource
	if err := json.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("querygen: failed to parse feed file %s: %w", path, err)
	}
	return src, nil
}
