package club

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"codingclub/internal/metrics"
	"codingclub/internal/queue"
)

// RunSummaryWorker processes summary jobs from msgs until the channel closes
// or ctx is done. Messages of other types are ignored.
func (s *Service) RunSummaryWorker(ctx context.Context, msgs <-chan queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			s.handleJob(ctx, msg)
		}
	}
}

func (s *Service) handleJob(ctx context.Context, msg queue.Message) {
	if msg.Type != queue.TypeSummarize {
		metrics.QueueMessages.WithLabelValues(msg.Type, "ignored").Inc()
		return
	}
	id, err := strconv.ParseUint(string(msg.Body), 10, 64)
	if err != nil || id == 0 {
		metrics.QueueMessages.WithLabelValues(msg.Type, "invalid").Inc()
		s.log.Warn("bad summary job", zap.ByteString("body", msg.Body))
		return
	}
	if err := s.RefreshSummary(ctx, uint(id)); err != nil {
		metrics.QueueMessages.WithLabelValues(msg.Type, "failed").Inc()
		s.log.Warn("summary job failed", zap.Uint64("meeting_id", id), zap.Error(err))
		return
	}
	metrics.QueueMessages.WithLabelValues(msg.Type, "processed").Inc()
	s.log.Debug("summary job processed", zap.Uint64("meeting_id", id))
}
