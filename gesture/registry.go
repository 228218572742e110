package gesture

import "sync"

// Token identifies one registered handler so it can be unregistered
// later. Tokens are never reused within an engine instance.
type Token uint64

// Handler is invoked synchronously on the engine's processing
// goroutine when its gesture fires.
type Handler func()

// registry fans a fired gesture out to its subscribers. Registration is
// instance-scoped so engines under test cannot collide, and is safe
// from inside a handler being invoked: dispatch iterates a snapshot.
type registry struct {
	mu       sync.Mutex
	next     Token
	handlers map[Kind]map[Token]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[Kind]map[Token]Handler)}
}

func (r *registry) register(k Kind, h Handler) Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	tok := r.next
	m := r.handlers[k]
	if m == nil {
		m = make(map[Token]Handler)
		r.handlers[k] = m
	}
	m[tok] = h
	return tok
}

func (r *registry) unregister(tok Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.handlers {
		delete(m, tok)
	}
}

func (r *registry) dispatch(k Kind) {
	r.mu.Lock()
	snapshot := make([]Handler, 0, len(r.handlers[k]))
	for _, h := range r.handlers[k] {
		snapshot = append(snapshot, h)
	}
	r.mu.Unlock()

	for _, h := range snapshot {
		h()
	}
}
