// Package embedding turns text into fixed-length vectors, with a random
// fallback when no encoder is configured or the encoder fails.
package embedding

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultDimensions is the vector length used by fallback mode.
const DefaultDimensions = 384

// Encoder produces one vector per input text.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Mode names which path a Provider takes.
type Mode string

const (
	ModeReal     Mode = "real"
	ModeFallback Mode = "fallback"
)

// Provider embeds text. Embed never fails: without an encoder, or when the
// encoder errors, it returns uniform random vectors in [0,1).
type Provider struct {
	encoder Encoder
	dims    int
	cache   *lru.Cache[string, []float32]
	logger  *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Provider)

// WithEncoder enables real mode.
func WithEncoder(e Encoder) Option {
	return func(p *Provider) { p.encoder = e }
}

// WithCache keeps up to size real-mode vectors keyed by input text.
func WithCache(size int) Option {
	return func(p *Provider) {
		if size <= 0 {
			return
		}
		c, err := lru.New[string, []float32](size)
		if err == nil {
			p.cache = c
		}
	}
}

// WithRand makes fallback vectors reproducible.
func WithRand(r *rand.Rand) Option {
	return func(p *Provider) { p.rng = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New builds a Provider producing vectors of length dims in fallback mode.
func New(dims int, opts ...Option) *Provider {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	p := &Provider{dims: dims, logger: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Mode reports whether an encoder is configured.
func (p *Provider) Mode() Mode {
	if p.encoder == nil {
		return ModeFallback
	}
	return ModeReal
}

// Dimensions is the fallback vector length.
func (p *Provider) Dimensions() int {
	return p.dims
}

// Embed returns exactly one vector per text, in order. An encoder failure or
// a short result downgrades the whole call to fallback vectors.
func (p *Provider) Embed(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return [][]float32{}
	}
	if p.encoder == nil {
		return p.random(len(texts))
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if p.cache != nil {
			if v, ok := p.cache.Get(t); ok {
				out[i] = v
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out
	}

	vecs, err := p.encoder.Encode(ctx, missTexts)
	if err != nil {
		p.logger.Warn("embedding encoder failed, using fallback vectors", "texts", len(texts), "error", err)
		return p.random(len(texts))
	}
	if len(vecs) != len(missTexts) {
		p.logger.Warn("embedding encoder returned wrong count, using fallback vectors", "want", len(missTexts), "got", len(vecs))
		return p.random(len(texts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		if p.cache != nil {
			p.cache.Add(missTexts[j], vecs[j])
		}
	}
	return out
}

func (p *Provider) random(n int) [][]float32 {
	out := make([][]float32, n)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range out {
		v := make([]float32, p.dims)
		for j := range v {
			if p.rng != nil {
				v[j] = p.rng.Float32()
			} else {
				v[j] = rand.Float32()
			}
		}
		out[i] = v
	}
	return out
}
