package client

import (
	"io"
	"sync"

	"github.com/coolhand-ai/coolhand-go/provider"
)

var _ io.ReadCloser = (*streamBody)(nil)

// streamBody hands the caller the exact bytes of a streamed response
// while feeding a copy of each read slice to the decoder. The
// exchange is finalized exactly once, on EOF, on a read error, or on
// Close, whichever the caller reaches first.
type streamBody struct {
	body      io.ReadCloser
	decoder   *provider.StreamDecoder
	ext       *exchangeTracking
	transport *Transport

	finishOnce sync.Once
}

func (s *streamBody) Read(p []byte) (int, error) {
	n, err := s.body.Read(p)
	if n > 0 {
		for _, c := range s.decoder.Feed(p[:n]) {
			s.ext.exchange.OnChunk(c)
		}
	}
	if err != nil {
		readErr := err
		if readErr == io.EOF {
			readErr = nil
		}
		s.finish(readErr)
	}
	return n, err
}

// Close finalizes the record even when the caller abandons the stream
// early: whatever was reconstructed so far is still delivered.
func (s *streamBody) Close() error {
	err := s.body.Close()
	s.finish(nil)
	return err
}

func (s *streamBody) finish(err error) {
	s.finishOnce.Do(func() {
		for _, c := range s.decoder.Flush() {
			s.ext.exchange.OnChunk(c)
		}
		if err != nil {
			s.ext.err = err
		}
		s.ext.exchange.CompleteStream(s.decoder.Model(), s.decoder.Usage(), err)
		s.transport.finish(s.ext)
	})
}
