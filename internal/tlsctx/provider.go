package tlsctx

import "sync"

// Provider builds a Context at most once and hands the same result to every
// caller. It lets a context be built lazily, on first connector creation,
// without ever being rebuilt.
type Provider struct {
	build func() (*Context, error)

	once sync.Once
	ctx  *Context
	err  error
}

// NewProvider wraps build.
func NewProvider(build func() (*Context, error)) *Provider {
	return &Provider{build: build}
}

// Get returns the context, building it on the first call.
func (p *Provider) Get() (*Context, error) {
	p.once.Do(func() {
		p.ctx, p.err = p.build()
	})
	return p.ctx, p.err
}
