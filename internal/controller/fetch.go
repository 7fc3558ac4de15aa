package controller

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ShayCichocki/trimwatch/internal/status"
)

// Fetch opens the status stream, returns its first well-formed envelope and
// closes the stream.
func (c *Client) Fetch(ctx context.Context) (status.Envelope, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	s, err := c.Subscribe(ctx)
	if err != nil {
		return status.Envelope{}, err
	}
	defer s.Close()

	for {
		env, err := s.Next()
		if status.IsDecodeError(err) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return status.Envelope{}, errors.New("status stream closed without a document")
		}
		if err != nil {
			return status.Envelope{}, fmt.Errorf("read status: %w", err)
		}
		return env, nil
	}
}

// Active reports whether an auto-adjust run is in progress.
func (c *Client) Active(ctx context.Context) (bool, error) {
	env, err := c.Fetch(ctx)
	if err != nil {
		return false, err
	}
	if env.Kind == status.KindAck {
		return false, nil
	}
	return env.Snapshot.Phase.Active(), nil
}

// Start begins a run. The toggle endpoint would cancel a run already in
// progress, so Start checks first and leaves a running one alone.
func (c *Client) Start(ctx context.Context) (status.Acknowledgment, error) {
	active, err := c.Active(ctx)
	if err != nil {
		return status.Acknowledgment{}, err
	}
	if active {
		return status.Acknowledgment{}, errors.New("auto-adjust is already running")
	}
	return c.Toggle(ctx)
}

// Cancel stops the run in progress. It returns ErrNotActive instead of
// toggling when nothing runs, since toggling would start a new run.
func (c *Client) Cancel(ctx context.Context) (status.Acknowledgment, error) {
	active, err := c.Active(ctx)
	if err != nil {
		return status.Acknowledgment{}, err
	}
	if !active {
		return status.Acknowledgment{}, ErrNotActive
	}
	return c.Toggle(ctx)
}
