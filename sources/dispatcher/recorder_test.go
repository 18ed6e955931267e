package dispatcher_test

import (
	"chaldea/sources/dispatcher"
	"sync"
)

// recorder is a command that records every hook it receives.
type recorder struct {
	meta dispatcher.Meta

	mu      sync.Mutex
	starts  []*dispatcher.Context
	replies []*dispatcher.ReplyContext
	presses []*dispatcher.CallbackContext

	onStart    func(*dispatcher.Context) error
	onReply    func(*dispatcher.ReplyContext) error
	onCallback func(*dispatcher.CallbackContext) error
}

func newRecorder(meta dispatcher.Meta) *recorder {
	return &recorder{meta: meta}
}

func (p *recorder) Meta() dispatcher.Meta {
	return p.meta
}

func (p *recorder) OnStart(ctx *dispatcher.Context) error {
	p.mu.Lock()
	p.starts = append(p.starts, ctx)
	p.mu.Unlock()
	if p.onStart != nil {
		return p.onStart(ctx)
	}
	return nil
}

func (p *recorder) OnReply(ctx *dispatcher.ReplyContext) error {
	p.mu.Lock()
	p.replies = append(p.replies, ctx)
	p.mu.Unlock()
	if p.onReply != nil {
		return p.onReply(ctx)
	}
	return nil
}

func (p *recorder) OnCallback(ctx *dispatcher.CallbackContext) error {
	p.mu.Lock()
	p.presses = append(p.presses, ctx)
	p.mu.Unlock()
	if p.onCallback != nil {
		return p.onCallback(ctx)
	}
	return nil
}

func (p *recorder) Starts() []*dispatcher.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*dispatcher.Context(nil), p.starts...)
}

func (p *recorder) Replies() []*dispatcher.ReplyContext {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*dispatcher.ReplyContext(nil), p.replies...)
}

func (p *recorder) Presses() []*dispatcher.CallbackContext {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*dispatcher.CallbackContext(nil), p.presses...)
}

// plain only implements OnStart.
type plain struct {
	meta  dispatcher.Meta
	calls int
}

func (p *plain) Meta() dispatcher.Meta {
	return p.meta
}

func (p *plain) OnStart(ctx *dispatcher.Context) error {
	p.calls++
	return nil
}

// listener is a chat hook that records messages and can stop the chain.
type listener struct {
	meta    dispatcher.Meta
	proceed bool
	seen    int
	words   int
}

func (l *listener) Meta() dispatcher.Meta {
	return l.meta
}

func (l *listener) OnStart(ctx *dispatcher.Context) error {
	return nil
}

func (l *listener) OnChat(ctx *dispatcher.ChatContext) (bool, error) {
	l.seen++
	return l.proceed, nil
}

func (l *listener) OnWord(ctx *dispatcher.ChatContext) error {
	l.words++
	return nil
}

type recorder struct {
	meta  dispatcher.EventMeta
	calls []dispatcher.EventType
	err   error
}

func (r *recorder) Meta() dispatcher.EventMeta {
	return r.meta
}

func (r *recorder) OnEvent(ctx *dispatcher.EventContext) error {
	r.calls = append(r.calls, ctx.Type)
	return r.err
}
