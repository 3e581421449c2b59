package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/asticode/go-astits"
)

// tsProgram is the subset of a PMT's program map this package needs: the
// elementary streams it carries and their PSI stream types.
type tsProgram struct {
	Streams []tsStream
}

type tsStream struct {
	StreamType uint8
}

// inspectTSPrograms demuxes a single MPEG-TS segment to its end and collects
// every PMT it announces; all other demuxed data (PES included) is skipped.
func inspectTSPrograms(data []byte) ([]tsProgram, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dmx := astits.NewDemuxer(ctx, bytes.NewReader(data))

	var programs []tsProgram
	for {
		d, err := dmx.NextData()
		if err != nil {
			if err == astits.ErrNoMorePackets || err == io.EOF {
				break
			}
			return nil, fmt.Errorf("analyzer: demuxing TS segment: %w", err)
		}
		if d.PMT == nil {
			continue
		}
		p := tsProgram{}
		for _, es := range d.PMT.ElementaryStreams {
			p.Streams = append(p.Streams, tsStream{StreamType: uint8(es.StreamType)})
		}
		programs = append(programs, p)
	}
	return programs, nil
}
