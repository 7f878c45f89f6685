package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// Config configures a Journal.
type Config struct {
	// Session names the key space streams are archived under.
	Session string

	// Capacity bounds the in-memory history. Default: DefaultCapacity.
	Capacity int

	// Codec encodes recorded streams. Default: protocol.CodecBinary.
	Codec protocol.Codec

	// Sink archives every recorded stream when set.
	Sink Sink

	// Logger. Default: slog.Default().
	Logger *slog.Logger
}

// Journal records applied streams.
type Journal struct {
	cfg     Config
	history *History
}

// New creates a journal.
func New(cfg Config) *Journal {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Journal{cfg: cfg, history: NewHistory(cfg.Capacity)}
}

// History returns the journal's in-memory history.
func (j *Journal) History() *History {
	return j.history
}

// Codec returns the codec streams are recorded with.
func (j *Journal) Codec() protocol.Codec {
	return j.cfg.Codec
}

// Key returns the archive key for seq.
func (j *Journal) Key(seq uint64) string {
	return fmt.Sprintf("%s/%020d.%s", j.cfg.Session, seq, j.cfg.Codec)
}

// Record encodes s, adds it to the history and archives it. A sink failure
// is returned after the history has been updated.
func (j *Journal) Record(ctx context.Context, s protocol.EditStream) error {
	data, err := j.cfg.Codec.EncodeStream(s)
	if err != nil {
		return fmt.Errorf("journal: encode stream %d: %w", s.Seq(), err)
	}
	j.history.Add(s.Seq(), s.Len(), data)

	if j.cfg.Sink == nil {
		return nil
	}
	if err := j.cfg.Sink.Put(ctx, j.Key(s.Seq()), data); err != nil {
		return err
	}
	j.cfg.Logger.Debug("stream archived", "session", j.cfg.Session, "seq", s.Seq(), "bytes", len(data))
	return nil
}

// Since decodes the streams recorded after seq, oldest first. It returns
// (nil, false) when the history no longer holds all of them.
func (j *Journal) Since(seq uint64) ([]protocol.EditStream, bool) {
	raw := j.history.Since(seq)
	if raw == nil {
		return nil, false
	}
	out := make([]protocol.EditStream, 0, len(raw))
	for _, data := range raw {
		s, err := j.cfg.Codec.DecodeStream(data)
		if err != nil {
			j.cfg.Logger.Error("journal entry unreadable", "session", j.cfg.Session, "error", err)
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
