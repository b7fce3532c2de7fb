package metrics

// NoopCollector discards every observation. Used when metrics are disabled
// and as the default in tests.
type NoopCollector struct{}

func (NoopCollector) ConnectionOpened()        {}
func (NoopCollector) ConnectionClosed()        {}
func (NoopCollector) SessionInserted()         {}
func (NoopCollector) SessionDeleted()          {}
func (NoopCollector) AuthAttempt(bool)         {}
func (NoopCollector) MessagePersisted(string)  {}
func (NoopCollector) PushEnqueued(string)      {}
func (NoopCollector) PushDropped(string)       {}
func (NoopCollector) PresenceEdge(bool)        {}
func (NoopCollector) CacheHit(string)          {}
func (NoopCollector) CacheMiss(string)         {}
