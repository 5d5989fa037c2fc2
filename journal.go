package main

import (
	"io"
	"log"

	"github.com/segmentio/parquet-go"

	"github.com/ocupoint/awgctl/pkg/codec"
)

// DispatchRow is one dispatched frame recorded to the journal file: which
// list it came from, its position in that list's sequence, how many words
// it carried, and the first INDEX/GAIN pair found in it (0 if absent),
// repointed from the teacher's per-sample I/Q row to a per-frame dispatch
// row.
type DispatchRow struct {
	ListID     int32  `parquet:"list_id"`
	FrameIndex uint32 `parquet:"frame_index"`
	WordCount  uint16 `parquet:"word_count"`
	FirstIndex uint32 `parquet:"first_index"`
	FirstGain  uint32 `parquet:"first_gain"`
}

// Journal is the optional dispatch journal: one parquet row per frame the
// player sends to MMIO, enabled by -journal-file. Writes are buffered and
// flushed in batches off the player's hot path via a bounded channel; a
// slow or full journal drops rows rather than ever blocking dispatch,
// mirroring the non-blocking-enqueue discipline used for the dashboard.
type Journal struct {
	rows   chan DispatchRow
	done   chan struct{}
	log    *log.Logger
	closer io.Closer
}

// NewJournal returns a Journal writing parquet rows of DispatchRow to w,
// and starts its background flush goroutine. Close must be called to flush
// and release the underlying writer.
func NewJournal(w io.WriteCloser, logger *log.Logger) *Journal {
	j := &Journal{
		rows:   make(chan DispatchRow, 1024),
		done:   make(chan struct{}),
		log:    logger,
		closer: w,
	}
	go j.run(w)
	return j
}

func (j *Journal) run(w io.Writer) {
	defer close(j.done)
	pw := parquet.NewGenericWriter[DispatchRow](w)
	const batchSize = 256
	batch := make([]DispatchRow, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if _, err := pw.Write(batch); err != nil {
			j.log.Printf("journal: write error: %v", err)
		}
		batch = batch[:0]
	}

	for row := range j.rows {
		batch = append(batch, row)
		if len(batch) >= batchSize {
			flush()
		}
	}
	flush()
	if err := pw.Close(); err != nil {
		j.log.Printf("journal: close error: %v", err)
	}
}

// Record enqueues one dispatched frame for journaling. Non-blocking: if the
// channel is full the row is dropped, never stalling the player's tick.
func (j *Journal) Record(listID int, frameIdx uint32, words []uint32) {
	row := DispatchRow{
		ListID:     int32(listID),
		FrameIndex: frameIdx,
		WordCount:  uint16(len(words)),
	}
	var haveIndex, haveGain bool
	for _, w := range words {
		u := codec.Unpack(w)
		switch u.Cmd {
		case codec.CmdIndex:
			if !haveIndex {
				row.FirstIndex = u.Payload
				haveIndex = true
			}
		case codec.CmdGain:
			if !haveGain {
				row.FirstGain = u.Payload
				haveGain = true
			}
		}
	}
	select {
	case j.rows <- row:
	default:
		j.log.Printf("journal: row dropped, channel full (list %d frame %d)", listID, frameIdx)
	}
}

// Close stops accepting new rows, waits for the background writer to flush
// and close the underlying parquet writer, then closes the backing file.
func (j *Journal) Close() error {
	close(j.rows)
	<-j.done
	return j.closer.Close()
}
