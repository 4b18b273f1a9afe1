package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Source yields the audio of one capture. AssemblyAI expects raw 16 kHz PCM16LE mono;
// the upload-based recognizers expect an encoded clip (wav, webm, mp3).
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads a clip from disk, e.g. a named pipe fed by a recorder.
type FileSource struct{ Path string }

func (f FileSource) Open(context.Context) (io.ReadCloser, error) {
	if f.Path == "" {
		return nil, errors.New("transcript: audio file path is empty")
	}
	return os.Open(f.Path)
}

// BytesSource replays an in-memory clip.
type BytesSource []byte

func (b BytesSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// CommandSource records by running an external capture program and reading its stdout,
// e.g. `arecord -q -f S16_LE -r 16000 -c 1 -d 6`.
type CommandSource struct {
	Name string
	Args []string
}

func (c CommandSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if c.Name == "" {
		return nil, errors.New("transcript: capture command is empty")
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("transcript: start %s: %w", c.Name, err)
	}
	return &commandReader{ReadCloser: out, cmd: cmd}, nil
}

type commandReader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (r *commandReader) Close() error {
	_ = r.ReadCloser.Close()
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	_ = r.cmd.Wait()
	return nil
}
