package loadorder

import (
	"slices"
	"strconv"
	"strings"

	"github.com/Yiling-J/theine-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ed-fi-alliance-oss/meadowlark/internal/build"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
)

const defaultMaxCacheSize = 64

var loadOrderCacheCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: build.ProjectName,
	Name:      "load_order_cache_count",
	Help:      "The total number of load order computations, labeled by whether the cache held the result.",
}, []string{"cache_hit"})

// Cache memoizes load orders per schema and set of transforms. Schemas are long lived, so
// the cache stays small.
type Cache struct {
	cache *theine.Cache[string, []LoadOrder]
}

type CacheOption func(*cacheConfig)

type cacheConfig struct {
	maxSize int64
}

func WithMaxCacheSize(n int64) CacheOption {
	return func(c *cacheConfig) {
		c.maxSize = n
	}
}

func NewCache(opts ...CacheOption) (*Cache, error) {
	cfg := &cacheConfig{maxSize: defaultMaxCacheSize}
	for _, opt := range opts {
		opt(cfg)
	}

	c, err := theine.NewBuilder[string, []LoadOrder](cfg.maxSize).Build()
	if err != nil {
		return nil, err
	}
	return &Cache{cache: c}, nil
}

// LoadOrder returns the load order of the schema, computing it on a miss. Transforms are
// distinguished by name, so transforms with different effects need different names.
func (c *Cache) LoadOrder(s *schema.ApiSchema, graphTransforms []GraphTransformer, orderTransforms []OrderTransformer) ([]LoadOrder, error) {
	key := cacheKey(s, graphTransforms, orderTransforms)
	if orders, ok := c.cache.Get(key); ok {
		loadOrderCacheCounter.WithLabelValues("true").Inc()
		return cloneOrders(orders), nil
	}
	loadOrderCacheCounter.WithLabelValues("false").Inc()

	g, err := Build(s)
	if err != nil {
		return nil, err
	}
	orders, err := ComputeLoadOrder(g, graphTransforms, orderTransforms)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, orders, 1)
	return cloneOrders(orders), nil
}

// cloneOrders copies orders deeply enough that callers cannot reach the cached entry.
func cloneOrders(orders []LoadOrder) []LoadOrder {
	out := slices.Clone(orders)
	for i := range out {
		out[i].Operations = slices.Clone(out[i].Operations)
	}
	return out
}

func (c *Cache) Close() {
	c.cache.Close()
}

func cacheKey(s *schema.ApiSchema, graphTransforms []GraphTransformer, orderTransforms []OrderTransformer) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(s.Fingerprint(), 16))
	for _, t := range graphTransforms {
		b.WriteString("/g:")
		b.WriteString(t.Name())
	}
	for _, t := range orderTransforms {
		b.WriteString("/o:")
		b.WriteString(t.Name())
	}
	return b.String()
}
