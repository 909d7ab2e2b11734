package observability

// Metrics is implemented by Inmem and satisfied by Noop in tests.
type Metrics interface {
	ObserveLookup(entity, source string, cacheMs, dbMs float64)
	ObserveMutation(entity, op string, dbMs float64)
	ObserveHTTP(method, route string, status int, durMs float64)
	ObserveConsume(topic, op string, processMs float64, ok bool)
	IncCacheHit()
	IncCacheMiss()
}

type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) ObserveLookup(string, string, float64, float64) {}
func (Noop) ObserveMutation(string, string, float64)        {}
func (Noop) ObserveHTTP(string, string, int, float64)       {}
func (Noop) ObserveConsume(string, string, float64, bool)   {}
func (Noop) IncCacheHit()                                   {}
func (Noop) IncCacheMiss()                                  {}
