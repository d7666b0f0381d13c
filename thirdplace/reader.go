package thirdplace

import (
	"context"
	"sync"
)

// Reader pulls unprocessed batches from a QueueSource and decodes them.
type Reader struct {
	mu        sync.Mutex
	source    QueueSource
	decoder   *Decoder
	watermark *Watermark
	metrics   *Metrics
	logger    Logger
}

// NewReader wires a reader. metrics may be nil.
func NewReader(source QueueSource, decoder *Decoder, watermark *Watermark, metrics *Metrics, logger Logger) *Reader {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Reader{
		source:    source,
		decoder:   decoder,
		watermark: watermark,
		metrics:   metrics,
		logger:    logger,
	}
}

// PullNewEvents returns the events of every batch newer than the watermark,
// in batch order, then room key order, then list order. The watermark moves
// to each new batch's time once that batch is decoded, so a batch is handed
// out at most once. A queue that cannot be parsed fails the whole call with
// ErrorMalformedFeed and leaves the watermark where it was.
func (r *Reader) PullNewEvents(ctx context.Context) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := r.source.Load(ctx)
	if err != nil {
		r.metrics.malformed()
		return nil, WrapError(ErrorMalformedFeed, "cannot load broadcast queue", err)
	}
	batches, err := ParseQueue(raw)
	if err != nil {
		r.metrics.malformed()
		return nil, err
	}

	var result []Event
	for _, b := range batches {
		if !r.watermark.IsNew(b.Time) {
			continue
		}
		for _, room := range b.Content.Data {
			records, ok := room.Events()
			if !ok {
				continue
			}
			fields := map[string]any{"room_key": room.Key, "count": len(records)}
			if id, err := ParseRoomKey(room.Key); err == nil {
				fields["room_id"] = id
			}
			r.logger.Debug("parsing chat events", fields)

			for _, rec := range records {
				ev := r.decoder.DecodeJSON(rec)
				r.metrics.decoded(ev.Type())
				result = append(result, ev)
			}
		}
		r.watermark.Advance(b.Time)
		r.metrics.batch(r.watermark.Value())
		r.logger.Debug("advanced watermark", map[string]any{"watermark": b.Time})
	}
	return result, nil
}

func (r *Reader) setMetrics(m *Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}
