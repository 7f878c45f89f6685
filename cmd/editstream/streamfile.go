package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/vango-dev/editstream/internal/errors"
	"github.com/vango-dev/editstream/pkg/protocol"
)

// A stream file is a sequence of Edits frames, the same framing the
// WebSocket link uses. Each frame's flags select its codec and mark
// rebuilds.

type fileStream struct {
	Stream  protocol.EditStream
	Rebuild bool
}

func readStreamFile(path string) ([]fileStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("E900").WithDetail("cannot open " + path).Wrap(err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var out []fileStream
	for i := 0; ; i++ {
		frame, err := protocol.ReadFrame(r)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, errors.New("E200").WithDetail(fmt.Sprintf("%s: frame %d", path, i)).Wrap(err)
		}
		if frame.Type != protocol.FrameEdits {
			continue
		}
		s, err := protocol.CodecFromFlags(frame.Flags).DecodeStream(frame.Payload)
		if err != nil {
			return nil, errors.New("E200").WithDetail(fmt.Sprintf("%s: frame %d", path, i)).Wrap(err)
		}
		out = append(out, fileStream{Stream: s, Rebuild: frame.Flags.Has(protocol.FlagRebuild)})
	}
}

func writeStream(w io.Writer, codec protocol.Codec, s protocol.EditStream, rebuild bool) error {
	payload, err := codec.EncodeStream(s)
	if err != nil {
		return err
	}
	flags := codec.Flags()
	if rebuild {
		flags |= protocol.FlagRebuild
	}
	return protocol.WriteFrame(w, protocol.NewFrameWithFlags(protocol.FrameEdits, flags, payload))
}
