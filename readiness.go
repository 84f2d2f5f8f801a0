package wsrelay

import "sync"

// ServiceState tracks the availability of the three backplane connections
// the relay depends on: the channel subscriber, the publisher, and the
// membership store. Overall readiness is the conjunction of all three.
//
// The state is an explicit object passed to the dispatcher at construction;
// backplane implementations flip the flags from their lifecycle signals.
type ServiceState struct {
	mu         sync.Mutex
	subscriber bool
	publisher  bool
	store      bool
}

// NewServiceState returns a state with all services marked unavailable.
func NewServiceState() *ServiceState {
	return &ServiceState{}
}

// SetSubscriberReady records the subscriber connection's availability.
func (s *ServiceState) SetSubscriberReady(ready bool) {
	s.mu.Lock()
	s.subscriber = ready
	s.mu.Unlock()
}

// SetPublisherReady records the publisher connection's availability.
func (s *ServiceState) SetPublisherReady(ready bool) {
	s.mu.Lock()
	s.publisher = ready
	s.mu.Unlock()
}

// SetStoreReady records the membership store connection's availability.
func (s *ServiceState) SetStoreReady(ready bool) {
	s.mu.Lock()
	s.store = ready
	s.mu.Unlock()
}

// Ready reports whether all three dependent services are available.
func (s *ServiceState) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscriber && s.publisher && s.store
}
