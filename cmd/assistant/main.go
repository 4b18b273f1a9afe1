package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gramudyog/assist/internal/app"
	"github.com/gramudyog/assist/internal/assistant"
	"github.com/gramudyog/assist/internal/config"
	"github.com/gramudyog/assist/internal/feature"
	"github.com/gramudyog/assist/internal/i18n"
	"github.com/gramudyog/assist/internal/logger"
	"github.com/gramudyog/assist/internal/visual"
)

func main() {
	cfg := config.Load()
	lang := flag.String("lang", cfg.Language, "conversation language")
	quiet := flag.Bool("quiet", false, "discard logs")
	flag.Parse()

	lg := logger.Nop()
	if !*quiet {
		var err error
		if lg, err = logger.New(cfg.LogMode); err != nil {
			log.Fatalf("logger init failed: %v", err)
		}
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, lg)
	if err != nil {
		log.Fatalf("app init failed: %v", err)
	}
	defer a.Close()

	sess := a.NewSession(assistant.WithLanguage(*lang))
	defer sess.Close()

	r := newREPL(sess, os.Stdout)
	r.help()
	if err := r.run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("assistant: %v", err)
	}
}

type repl struct {
	sess *assistant.Session
	out  io.Writer

	heard   chan heard
	pending int
}

// heard carries a finished capture back to the input loop.
type heard struct {
	text string
	err  error
}

func newREPL(sess *assistant.Session, out io.Writer) *repl {
	return &repl{sess: sess, out: out, heard: make(chan heard, 1)}
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
		readErr <- sc.Err()
	}()
	var (
		eof    bool
		eofErr error
	)
	for {
		if eof && r.pending == 0 {
			return eofErr
		}
		if !eof {
			fmt.Fprint(r.out, "> ")
		}
		select {
		case <-ctx.Done():
			r.sess.StopListening()
			return ctx.Err()
		case err := <-readErr:
			eof, eofErr, readErr = true, err, nil
		case h := <-r.heard:
			r.pending--
			if quit := r.finishListen(ctx, h); quit {
				return nil
			}
		case line := <-lines:
			if quit := r.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

// listen captures in the background so :stop stays reachable.
func (r *repl) listen(ctx context.Context) {
	fmt.Fprintln(r.out, i18n.T(r.sess.Language(), "status.listening"))
	r.pending++
	go func() {
		text, err := r.sess.Listen(ctx)
		r.heard <- heard{text: text, err: err}
	}()
}

func (r *repl) finishListen(ctx context.Context, h heard) bool {
	if h.err != nil {
		r.printNotice()
		return false
	}
	fmt.Fprintf(r.out, "%s %s\n", i18n.T(r.sess.Language(), "labels.transcribed"), h.text)
	return r.handle(ctx, h.text)
}

// handle runs one input line and reports whether the user asked to quit.
func (r *repl) handle(ctx context.Context, line string) bool {
	lang := r.sess.Language()
	if !strings.HasPrefix(line, ":") {
		if err := r.sess.Submit(ctx, line); errors.Is(err, assistant.ErrEmptyInput) {
			fmt.Fprintln(r.out, i18n.T(lang, "error.emptyInput"))
			return false
		}
		r.waitTranslated(ctx)
		r.print()
		return false
	}
	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "quit", "q":
		return true
	case "help":
		r.help()
	case "listen":
		r.listen(ctx)
	case "stop":
		r.sess.StopListening()
		r.sess.StopSpeaking()
	case "tts":
		r.sess.SetTTS(arg != "off")
	case "lang":
		r.sess.SetLanguage(arg)
		r.waitTranslated(ctx)
		r.print()
	case "next":
		r.sess.VisualKey(visual.KeyRight)
		r.printVisual()
	case "prev":
		r.sess.VisualKey(visual.KeyLeft)
		r.printVisual()
	case "close":
		r.sess.VisualKey(visual.KeyEscape)
	default:
		fmt.Fprintf(r.out, "unknown command :%s\n", cmd)
	}
	return false
}

func (r *repl) waitTranslated(ctx context.Context) {
	deadline := time.NewTimer(30 * time.Second)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for r.sess.Snapshot().Translating {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}

func (r *repl) print() {
	snap := r.sess.Snapshot()
	if snap.Output != "" {
		fmt.Fprintf(r.out, "%s %s\n", i18n.T(snap.Language, "labels.assistant"), snap.Output)
	}
	if snap.Summary != "" {
		fmt.Fprintf(r.out, "%s %s\n", i18n.T(snap.Language, "labels.summary"), snap.Summary)
	}
	if snap.Block != nil && !snap.VisualOpen {
		_ = feature.WriteText(r.out, snap.Block, snap.Language)
	}
	r.printVisual()
	r.printNotice()
}

func (r *repl) printVisual() {
	snap := r.sess.Snapshot()
	if snap.Visual == nil {
		return
	}
	v := snap.Visual
	fmt.Fprintf(r.out, "== %s: %s == (%s)\n", v.Topic, v.Title, v.Position)
	fmt.Fprintf(r.out, "%s\n%s\n", v.Section.Title, v.Section.Text)
	if v.Media.Kind == visual.MediaEmbed {
		fmt.Fprintln(r.out, v.Media.EmbedURL)
	}
	if v.MediaMsg != "" {
		fmt.Fprintln(r.out, v.MediaMsg)
		if v.Media.URL != "" {
			fmt.Fprintln(r.out, v.Media.URL)
		}
	}
	if v.AudioURL != "" {
		fmt.Fprintf(r.out, "audio: %s\n", v.AudioURL)
	}
}

func (r *repl) printNotice() {
	if n := r.sess.Snapshot().Notice; n != "" {
		fmt.Fprintf(r.out, "! %s\n", n)
	}
}

func (r *repl) help() {
	lang := r.sess.Language()
	fmt.Fprintln(r.out, i18n.T(lang, "title"))
	fmt.Fprintln(r.out, i18n.T(lang, "help.title"))
	for _, k := range []string{"jobs", "schemes", "business", "courses", "skills", "events", "projects", "youtube", "profile", "general"} {
		fmt.Fprintf(r.out, "  - %s\n", i18n.T(lang, "help."+k))
	}
	fmt.Fprintln(r.out, "commands: :listen :stop :tts on|off :lang <code> :next :prev :close :quit")
}
