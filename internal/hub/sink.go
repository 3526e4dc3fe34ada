package hub

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sink is the outbound half of one socket. Implementations must be
// comparable (pointer types in practice): registries use sink identity to
// tell a connection apart from the one that replaced it.
type Sink interface {
	Send(ctx context.Context, msg []byte) error
	Close(reason string) error
}

type Options struct {
	// WriteTimeout bounds a single send to one recipient.
	WriteTimeout time.Duration
	// FanoutLimit caps concurrent sends within one broadcast.
	FanoutLimit int
}

const (
	defaultWriteTimeout = 3 * time.Second
	defaultFanoutLimit  = 32
)

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.FanoutLimit <= 0 {
		o.FanoutLimit = defaultFanoutLimit
	}
	return o
}

// peer serializes writes to one sink. Registry locks are never held while
// a peer is writing.
type peer struct {
	sink Sink
	mu   sync.Mutex
}

func newPeer(s Sink) *peer { return &peer{sink: s} }

func (p *peer) send(ctx context.Context, timeout time.Duration, msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Deliveries outlive the request that triggered them.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return p.sink.Send(ctx, msg)
}

type target struct {
	id string
	p  *peer
}

// deliver pushes payload to every target. Each send is isolated: failures are
// logged and never stop the remaining sends. It returns once all sends finished.
func (o Options) deliver(ctx context.Context, log *zap.Logger, lobbyID int, targets []target, payload []byte) {
	if len(targets) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(o.FanoutLimit)
	for _, t := range targets {
		g.Go(func() error {
			if err := t.p.send(ctx, o.WriteTimeout, payload); err != nil {
				log.Error("send failed",
					zap.Int("lobby_id", lobbyID),
					zap.String("session_id", t.id),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// closePeers closes every peer concurrently and combines the errors.
func closePeers(peers []*peer, reason string) error {
	errs := make([]error, len(peers))
	var g errgroup.Group
	for i, p := range peers {
		g.Go(func() error {
			errs[i] = p.sink.Close(reason)
			return nil
		})
	}
	_ = g.Wait()
	return multierr.Combine(errs...)
}

// closeStale closes a sink that lost its registry slot to a newer connection.
func closeStale(log *zap.Logger, p *peer, fields ...zap.Field) {
	go func() {
		if err := p.sink.Close("replaced by a newer connection"); err != nil {
			log.Debug("closing replaced connection", append(fields, zap.Error(err))...)
		}
	}()
}
