package relay

// Lifecycle registers connections on connect and removes every trace of them on disconnect.
//
// States: unregistered -> registered -> identified -> joined rooms -> deregistered.
// Disconnect is reachable from any state and is idempotent.
type Lifecycle struct {
	registry *Registry
}

// NewLifecycle creates a lifecycle manager for registry.
func NewLifecycle(registry *Registry) *Lifecycle {
	return &Lifecycle{registry: registry}
}

// Connect registers conn with no identity.
func (l *Lifecycle) Connect(conn ConnID) {
	l.registry.Register(conn)
}

// Disconnect removes conn from all rooms and drops it from the registry.
func (l *Lifecycle) Disconnect(conn ConnID) {
	l.registry.LeaveAll(conn)
	l.registry.Deregister(conn)
}
