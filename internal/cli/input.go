// Package cli is a line-based debug front end: each line typed becomes the
// session input and the resolved suggestions are printed with matches in bold.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bastiangx/omniserve/pkg/highlight"
	"github.com/bastiangx/omniserve/pkg/resolver"
	"github.com/bastiangx/omniserve/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	matchStyle = lipgloss.NewStyle().Bold(true)
	kindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	urlStyle   = lipgloss.NewStyle().Faint(true)
)

// InputHandler reads lines and resolves them against one session.
type InputHandler struct {
	resolver *resolver.Resolver
	session  *resolver.Session
	in       io.Reader
	out      io.Writer
	timeout  time.Duration
}

// NewInputHandler creates a handler; timeout <= 0 means no deadline.
func NewInputHandler(res *resolver.Resolver, session *resolver.Session, in io.Reader, out io.Writer, timeout time.Duration) *InputHandler {
	return &InputHandler{
		resolver: res,
		session:  session,
		in:       in,
		out:      out,
		timeout:  timeout,
	}
}

// Start runs the loop until the input ends or ctx is done.
// An empty line resolves the empty input, which lists bookmarks.
func (h *InputHandler) Start(ctx context.Context) error {
	log.Print("omniserve CLI [debug]")
	log.Print("type something and press Enter to see the suggestions (Ctrl+D to exit):")

	reader := bufio.NewReader(h.in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if line != "" || err == nil {
			h.handleInput(ctx, strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return nil
		}
	}
}

// handleInput resolves one input and prints the result list.
func (h *InputHandler) handleInput(ctx context.Context, input string) {
	h.session.SetInput(input)

	rctx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	err := h.resolver.Resolve(rctx, h.session, func() {
		log.Debugf("Took [ %v ] for input '%s'", time.Since(start), input)
		h.print(input)
	})
	if err != nil {
		log.Errorf("Resolving '%s': %v", input, err)
	}
}

func (h *InputHandler) print(input string) {
	items := h.session.Results()
	if len(items) == 0 {
		fmt.Fprintf(h.out, "No suggestions for '%s'\n", input)
		return
	}
	if g, ok := h.session.URLGuess(); ok {
		fmt.Fprintf(h.out, "guess: %s\n", matchStyle.Render(g.Input))
	}
	for i, item := range items {
		fmt.Fprintf(h.out, "%2d. %s\n", i+1, Render(item))
	}
}

// Render formats one suggestion on a single line.
func Render(item suggest.Item) string {
	bold := func(s string) string { return matchStyle.Render(s) }
	title, url := item.Label(), item.Target()
	extra := ""

	switch v := item.(type) {
	case *suggest.History:
		if len(v.TitleDecorated) > 0 {
			title = highlight.Join(v.TitleDecorated, bold)
		}
		if len(v.URLDecorated) > 0 {
			url = highlight.Join(v.URLDecorated, bold)
		}
	case *suggest.Content:
		if len(v.TitleDecorated) > 0 {
			title = highlight.Join(v.TitleDecorated, bold)
		}
		extra = "  (" + v.Origin.Label + ")"
	case suggest.GoTo:
		if v.IsGuessingScheme {
			extra = "  (scheme guessed)"
		}
	}

	tag := kindStyle.Render(fmt.Sprintf("[%s]", item.Kind()))
	return fmt.Sprintf("%-10s %s  %s%s", tag, title, urlStyle.Render(url), extra)
}
