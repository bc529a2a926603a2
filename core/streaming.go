package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"
)

const (
	streamDataPrefix  = "data:"
	streamStripPrefix = "data: "
	streamSentinel    = "[DONE]"
	streamReadSize    = 32 * 1024
)

// StreamOption configures a Stream.
type StreamOption func(*streamConfig)

type streamConfig struct {
	finish  func(error)
	cancel  context.CancelFunc
	observe func(any)
}

// WithStreamFinish registers fn to run exactly once when the stream ends,
// with the terminal error or nil.
func WithStreamFinish(fn func(err error)) StreamOption {
	return func(c *streamConfig) {
		c.finish = fn
	}
}

// WithStreamCancel registers the cancel func of the request context so that
// ending or closing the stream also aborts the request.
func WithStreamCancel(cancel context.CancelFunc) StreamOption {
	return func(c *streamConfig) {
		c.cancel = cancel
	}
}

// WithStreamObserver registers fn to see every decoded item before Next
// returns it.
func WithStreamObserver(fn func(item any)) StreamOption {
	return func(c *streamConfig) {
		c.observe = fn
	}
}

// Stream decodes a newline-delimited `data: <json>` event body into values
// of type T, one per Next call.
//
// Iteration stops at the `[DONE]` sentinel, at the end of the body, or at the
// first error. A Stream is single-use: once it has stopped, Next always
// returns false and Err keeps returning the same value.
//
// Stream is not safe for concurrent use.
//
//	stream, err := client.StreamChatCompletion(ctx, req)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//	    chunk := stream.Current()
//	    ...
//	}
//	if err := stream.Err(); err != nil {
//	    return err
//	}
type Stream[T any] struct {
	body    io.ReadCloser
	cfg     streamConfig
	readBuf []byte

	// pending holds bytes after the last newline seen so far.
	pending []byte
	// lines holds complete lines not yet processed.
	lines []string
	// srcErr is the error returned by the body, io.EOF included. Lines
	// already queued are still processed before it takes effect.
	srcErr error

	cur  T
	err  error
	done bool
}

// NewStream wraps body. The stream owns body and closes it when it stops.
func NewStream[T any](body io.ReadCloser, opts ...StreamOption) *Stream[T] {
	s := &Stream[T]{body: body}
	for _, opt := range opts {
		opt(&s.cfg)
	}
	return s
}

// Next advances to the next item, reading from the body as needed. It
// returns false when the stream has ended; check Err to tell a normal end
// from a failure.
func (s *Stream[T]) Next() bool {
	if s.done {
		return false
	}
	for {
		for len(s.lines) > 0 {
			line := strings.TrimSpace(s.lines[0])
			s.lines = s.lines[1:]

			if !strings.HasPrefix(line, streamDataPrefix) {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, streamStripPrefix))
			if payload == streamSentinel {
				s.stop(nil)
				return false
			}

			var v T
			if err := json.Unmarshal([]byte(payload), &v); err != nil {
				s.stop(&Error{Kind: KindGeneric, Code: "decode_error", Message: err.Error(), Err: err})
				return false
			}
			s.cur = v
			if s.cfg.observe != nil {
				s.cfg.observe(v)
			}
			return true
		}

		if s.srcErr != nil {
			if errors.Is(s.srcErr, io.EOF) {
				s.stop(nil)
			} else {
				s.stop(&Error{Kind: KindNetwork, Message: s.srcErr.Error(), Err: s.srcErr})
			}
			return false
		}

		s.fill()
	}
}

// fill performs one read from the body and queues every line it completes.
func (s *Stream[T]) fill() {
	if s.readBuf == nil {
		s.readBuf = make([]byte, streamReadSize)
	}
	n, err := s.body.Read(s.readBuf)
	if n > 0 {
		s.pending = append(s.pending, s.readBuf[:n]...)
		if i := bytes.LastIndexByte(s.pending, '\n'); i >= 0 {
			s.lines = append(s.lines, strings.Split(string(s.pending[:i]), "\n")...)
			s.pending = append(s.pending[:0], s.pending[i+1:]...)
		}
	}
	if err != nil {
		s.srcErr = err
	}
}

// Current returns the item produced by the last successful Next.
func (s *Stream[T]) Current() T {
	return s.cur
}

// Err returns the error that stopped the stream, or nil.
func (s *Stream[T]) Err() error {
	return s.err
}

// Close stops the stream and releases the underlying connection. Closing a
// stream that already stopped is a no-op.
func (s *Stream[T]) Close() error {
	if s.done {
		return nil
	}
	return s.stop(nil)
}

// All returns an iterator over the remaining items. A decode or read error is
// yielded once as the last pair. Breaking out of the loop closes the stream.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.Current(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

func (s *Stream[T]) stop(err error) error {
	s.done = true
	s.err = err
	s.lines = nil
	s.pending = nil
	s.readBuf = nil

	closeErr := s.body.Close()
	if s.cfg.cancel != nil {
		s.cfg.cancel()
	}
	if s.cfg.finish != nil {
		s.cfg.finish(err)
	}
	return closeErr
}
