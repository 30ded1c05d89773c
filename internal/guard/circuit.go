package guard

import (
	"sort"
	"sync"
	"time"
)

// CircuitState represents the state of a topic's circuit.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// TopicBreaker tracks broker health per topic. A topic opens after threshold
// consecutive publish failures; once the cooldown passes a single publish is
// let through, and its outcome closes the topic or opens it again.
type TopicBreaker struct {
	mu        sync.Mutex
	topics    map[string]*topicCircuit
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// topicCircuit exists only while a topic has failures; a success drops it.
type topicCircuit struct {
	state    CircuitState
	failures int
	openedAt time.Time
	lastErr  string
}

// NewTopicBreaker creates a breaker that opens a topic after threshold
// consecutive failures and lets one attempt through after cooldown.
func NewTopicBreaker(threshold int, cooldown time.Duration) *TopicBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &TopicBreaker{
		topics:    make(map[string]*topicCircuit),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether topic may be published to. When it may not, wait is
// the remaining cooldown (zero while the half-open attempt is in flight).
func (b *TopicBreaker) Allow(topic string) (ok bool, wait time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, found := b.topics[topic]
	if !found {
		return true, 0
	}
	switch c.state {
	case CircuitOpen:
		elapsed := b.now().Sub(c.openedAt)
		if elapsed < b.cooldown {
			return false, b.cooldown - elapsed
		}
		c.state = CircuitHalfOpen
		return true, 0
	case CircuitHalfOpen:
		return false, 0
	default:
		return true, 0
	}
}

// Success closes topic.
func (b *TopicBreaker) Success(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.topics, topic)
}

// Failure records a failed publish to topic. A failed half-open attempt
// reopens at once.
func (b *TopicBreaker) Failure(topic string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, found := b.topics[topic]
	if !found {
		c = &topicCircuit{}
		b.topics[topic] = c
	}
	c.failures++
	if err != nil {
		c.lastErr = err.Error()
	}
	if c.state == CircuitHalfOpen || c.failures >= b.threshold {
		c.state = CircuitOpen
		c.openedAt = b.now()
	}
}

// State returns the current state for topic; unknown topics are closed.
func (b *TopicBreaker) State(topic string) CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.topics[topic]; ok {
		return c.state
	}
	return CircuitClosed
}

// OpenTopics lists topics that are not closed, with their last error, sorted by name.
func (b *TopicBreaker) OpenTopics() []TopicStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []TopicStatus
	for topic, c := range b.topics {
		if c.state == CircuitClosed {
			continue
		}
		out = append(out, TopicStatus{Topic: topic, State: c.state, Failures: c.failures, LastError: c.lastErr})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

// TopicStatus describes a topic whose circuit is not closed.
type TopicStatus struct {
	Topic     string
	State     CircuitState
	Failures  int
	LastError string
}
