package progress

import "io"

// Emit receives a quantized percentage.
type Emit func(percent int)

type reader struct {
	r     io.Reader
	total int64
	seen  int64
	q     Quantizer
	emit  Emit
}

// NewReader wraps r so that quantized progress is reported to emit as bytes
// flow through it. total is the expected byte count; pass 0 when unknown to
// disable reporting.
func NewReader(r io.Reader, total int64, emit Emit) io.Reader {
	return &reader{r: r, total: total, emit: emit}
}

func (p *reader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.seen += int64(n)
		if pct, ok := p.q.Update(p.seen, p.total); ok {
			p.emit(pct)
		}
	}
	return n, err
}
