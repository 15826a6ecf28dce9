package annotation

import (
	"context"

	"go.uber.org/zap"
)

// Subscription delivers push envelopes one at a time and acknowledges each
// after the handler returns.
type Subscription interface {
	Run(ctx context.Context, handle func(ctx context.Context, value []byte)) error
}

// Consume handles envelopes from sub sequentially until ctx is done or the
// subscription fails.
func (s *Service) Consume(ctx context.Context, sub Subscription) error {
	return sub.Run(ctx, func(ctx context.Context, value []byte) {
		res := s.HandleEnvelope(ctx, value)
		s.logger.Debug("consumed event", zap.String("status", string(res.Status)))
	})
}
