package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bastiangx/omniserve/internal/logger"
	"github.com/bastiangx/omniserve/pkg/resolver"
	"github.com/bastiangx/omniserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Error codes, HTTP-like.
const (
	CodeBadRequest = 400
	CodeNotFound   = 404
	CodeInternal   = 500
	CodeTimeout    = 504
)

// HistoryRecorder records visits for the "visit" action.
type HistoryRecorder interface {
	Add(url, title string)
}

// BookmarksFetcher starts a bookmarks fetch for a session.
type BookmarksFetcher interface {
	Fetch() *resolver.Pending[[]suggest.Item]
}

// Options configure a Server.
type Options struct {
	Engines []suggest.Engine
	// Timeout bounds each resolution; zero means none.
	Timeout time.Duration
}

// Server handles the IPC for location-bar sessions.
type Server struct {
	resolver  *resolver.Resolver
	history   HistoryRecorder
	bookmarks BookmarksFetcher
	opts      Options

	reader io.Reader

	wmu sync.Mutex
	enc *msgpack.Encoder

	mu       sync.Mutex
	sessions map[string]*resolver.Session

	wg  sync.WaitGroup
	log *log.Logger
}

// NewServer creates a server using stdin/stdout for IPC.
func NewServer(res *resolver.Resolver, history HistoryRecorder, bookmarks BookmarksFetcher, opts Options) *Server {
	return New(res, history, bookmarks, opts, os.Stdin, os.Stdout)
}

// New creates a server on the given streams.
func New(res *resolver.Resolver, history HistoryRecorder, bookmarks BookmarksFetcher, opts Options, r io.Reader, w io.Writer) *Server {
	return &Server{
		resolver:  res,
		history:   history,
		bookmarks: bookmarks,
		opts:      opts,
		reader:    r,
		enc:       msgpack.NewEncoder(w),
		sessions:  make(map[string]*resolver.Session),
		log:       logger.New("server"),
	}
}

// Start reads requests until the input closes or ctx is cancelled. It waits
// for in-flight resolutions before returning.
func (s *Server) Start(ctx context.Context) error {
	s.log.Debug("Starting Server.")
	defer s.wg.Wait()

	s.sendResponse(StatusResponse{Status: "ready"})

	dec := msgpack.NewDecoder(s.reader)
	for {
		if ctx.Err() != nil {
			return nil
		}
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			s.log.Errorf("Decoding request: %v", err)
			return err
		}
		s.handleRequest(ctx, req)
	}
}

// handleRequest dispatches a request by action.
func (s *Server) handleRequest(ctx context.Context, req Request) {
	switch req.Action {
	case "session":
		s.handleSession(req)
	case "focus":
		s.handleFocus(req)
	case "resolve":
		s.handleResolve(ctx, req)
	case "visit":
		s.handleVisit(req)
	case "health":
		s.sendResponse(StatusResponse{ID: req.ID, Status: "ok"})
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown action: %q", req.Action), CodeBadRequest)
	}
}

// handleSession creates a session. A client may pick its own id.
func (s *Server) handleSession(req Request) {
	id := req.Session
	if id == "" {
		id = uuid.NewString()
	}
	sess := resolver.NewSession()
	sess.SetSearchEngines(resolver.Ready(s.opts.Engines))
	if s.bookmarks != nil {
		sess.SetBookmarksFetch(s.bookmarks.Fetch())
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.log.Debug("session created", "session", id)
	s.sendResponse(SessionResponse{ID: req.ID, Session: id})
}

func (s *Server) handleFocus(req Request) {
	sess, ok := s.session(req)
	if !ok {
		return
	}
	if s.bookmarks != nil {
		sess.SetBookmarksFetch(s.bookmarks.Fetch())
	}
	s.sendResponse(StatusResponse{ID: req.ID, Status: "ok"})
}

// handleResolve sets the session input and resolves it in the background.
func (s *Server) handleResolve(ctx context.Context, req Request) {
	sess, ok := s.session(req)
	if !ok {
		return
	}
	sess.SetInput(req.Query)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		start := time.Now()

		rctx := ctx
		if s.opts.Timeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
			defer cancel()
		}

		err := s.resolver.Resolve(rctx, sess, func() {
			s.sendResponse(s.resolveResponse(req, sess, time.Since(start)))
		})
		if err == nil {
			return
		}
		s.log.Warn("resolve failed", "session", req.Session, "q", req.Query, "err", err)
		code := CodeInternal
		if errors.Is(err, context.DeadlineExceeded) {
			code = CodeTimeout
		}
		s.sendError(req.ID, err.Error(), code)
	}()
}

func (s *Server) handleVisit(req Request) {
	if req.URL == "" {
		s.sendError(req.ID, "Missing 'u' parameter", CodeBadRequest)
		return
	}
	if s.history != nil {
		s.history.Add(req.URL, req.Title)
	}
	s.sendResponse(StatusResponse{ID: req.ID, Status: "ok"})
}

// session looks up the request's session, replying with an error if absent.
func (s *Server) session(req Request) (*resolver.Session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[req.Session]
	s.mu.Unlock()
	if !ok {
		s.sendError(req.ID, fmt.Sprintf("Unknown session: %q", req.Session), CodeNotFound)
	}
	return sess, ok
}

func (s *Server) resolveResponse(req Request, sess *resolver.Session, took time.Duration) ResolveResponse {
	items := sess.Results()
	resp := ResolveResponse{
		ID:          req.ID,
		Session:     req.Session,
		Query:       sess.LastInput(),
		Suggestions: make([]Suggestion, 0, len(items)),
		Count:       len(items),
		TimeTaken:   took.Microseconds(),
	}
	for _, item := range items {
		resp.Suggestions = append(resp.Suggestions, toSuggestion(item))
	}
	if g, ok := sess.URLGuess(); ok {
		resp.Guess = &Guess{Input: g.Input, URL: g.URL}
	}
	return resp
}

// toSuggestion flattens an item for the wire.
func toSuggestion(item suggest.Item) Suggestion {
	out := Suggestion{
		Kind:  string(item.Kind()),
		URL:   item.Target(),
		Title: item.Label(),
	}
	switch v := item.(type) {
	case suggest.GoTo:
		out.Guessing = v.IsGuessingScheme
	case suggest.Search:
		out.Query = v.Query
	case *suggest.Content:
		out.TitleFragments = v.TitleDecorated
		out.Icon = v.Origin.Icon
		out.Label = v.Origin.Label
	case *suggest.History:
		out.URLFragments = v.URLDecorated
		out.TitleFragments = v.TitleDecorated
	}
	return out
}

// sendResponse encodes response to the client. Writers are serialised so
// background resolutions never interleave their messages.
func (s *Server) sendResponse(response any) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.enc.Encode(response); err != nil {
		s.log.Errorf("Encoding response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.sendResponse(ErrorResponse{ID: id, Error: message, Code: code})
}
