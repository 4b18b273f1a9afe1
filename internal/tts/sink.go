package tts

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// drain copies PCM frames into sink until both channels close or ctx is done.
func drain(ctx context.Context, sink io.Writer, pcmCh <-chan []byte, errCh <-chan error) error {
	var streamErr error
	openPCM, openErr := true, true
	for openPCM || openErr {
		select {
		case b, ok := <-pcmCh:
			if !ok {
				openPCM = false
				continue
			}
			if _, err := sink.Write(b); err != nil {
				return fmt.Errorf("tts: write sink: %w", err)
			}
		case e, ok := <-errCh:
			if !ok {
				openErr = false
				continue
			}
			if e != nil {
				streamErr = e
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return streamErr
}

// FileSink appends PCM to a file (or a named pipe read by a player). Writes are serialized.
type FileSink struct {
	mu sync.Mutex
	f  *os.File
}

func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tts: open sink %s: %w", path, err)
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Write(p)
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
