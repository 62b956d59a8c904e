package hardware

import (
	"time"

	"golang.org/x/time/rate"
)

type pacedTransport struct {
	Transport
	limiter *rate.Limiter
}

// Paced limits t to opsPerSec transactions per second. Waiting blocks the
// caller; it is not cancellable. opsPerSec <= 0 returns t unchanged.
func Paced(t Transport, opsPerSec int) Transport {
	if opsPerSec <= 0 {
		return t
	}
	return &pacedTransport{Transport: t, limiter: rate.NewLimiter(rate.Limit(opsPerSec), 1)}
}

func (p *pacedTransport) wait() {
	if d := p.limiter.Reserve().Delay(); d > 0 {
		time.Sleep(d)
	}
}

func (p *pacedTransport) Tx(w, r []byte) error {
	p.wait()
	return p.Transport.Tx(w, r)
}

func (p *pacedTransport) Write(b []byte) error {
	p.wait()
	return p.Transport.Write(b)
}
