package tickets

import (
	"context"
	"image"
	"iter"
	"time"
)

// FrameSource yields camera frames. NextFrame blocks until a frame is
// available and returns an error (io.EOF included) once the feed ends.
type FrameSource interface {
	NextFrame(ctx context.Context) (image.Image, error)
}

// Scanner samples a FrameSource and yields well-formed ticket codes.
// Malformed payloads and frames without a QR symbol are skipped; the same
// code seen again within the cooldown is suppressed so one attendee held in
// front of the camera is only reported once.
type Scanner struct {
	src      FrameSource
	interval time.Duration
	cooldown time.Duration
	decode   func(image.Image) (string, error)
	now      func() time.Time

	last   string
	lastAt time.Time
}

// NewScanner creates a Scanner sampling src at most once per interval.
func NewScanner(src FrameSource, interval, cooldown time.Duration) *Scanner {
	return &Scanner{
		src:      src,
		interval: interval,
		cooldown: cooldown,
		decode:   Decode,
		now:      time.Now,
	}
}

// Next blocks until a code is detected, ctx ends, or the source fails.
func (s *Scanner) Next(ctx context.Context) (string, error) {
	var ticker *time.Ticker
	if s.interval > 0 {
		ticker = time.NewTicker(s.interval)
		defer ticker.Stop()
	}
	for {
		frame, err := s.src.NextFrame(ctx)
		if err != nil {
			return "", err
		}
		if code, ok := s.accept(frame); ok {
			return code, nil
		}
		if ticker == nil {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// Codes returns the detected codes as a lazy sequence. The sequence ends when
// ctx ends or the source fails; ranging over it again resumes sampling.
func (s *Scanner) Codes(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			code, err := s.Next(ctx)
			if err != nil || !yield(code) {
				return
			}
		}
	}
}

// Reset forgets the last detection so the same code is reported again immediately.
func (s *Scanner) Reset() {
	s.last = ""
	s.lastAt = time.Time{}
}

func (s *Scanner) accept(frame image.Image) (string, bool) {
	if frame == nil {
		return "", false
	}
	text, err := s.decode(frame)
	if err != nil {
		return "", false
	}
	code := Normalize(text)
	if !IsWellFormed(code) {
		return "", false
	}
	now := s.now()
	if code == s.last && now.Sub(s.lastAt) < s.cooldown {
		return "", false
	}
	s.last, s.lastAt = code, now
	return code, true
}
