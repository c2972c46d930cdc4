// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/paqkit/paqkit/lib/bridge"
	"github.com/paqkit/paqkit/lib/engine"
	"github.com/paqkit/paqkit/lib/fault"
	"github.com/paqkit/paqkit/lib/method"
)

// Options configures a parallel compression.
type Options struct {
	// Method is the method descriptor. Its block exponent fixes the
	// block size, exactly as for engine.Compress.
	Method string

	// Filename and Comment label the first block only.
	Filename string
	Comment  string

	// Checksum stores a SHA-1 in every segment trailer.
	Checksum bool

	// Threads is the number of workers. Values of 1 or less compress
	// inline on the calling goroutine.
	Threads int

	// Logger receives a debug summary per run and a warning on
	// failure. Nil means slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// compressBlock is the per-block codec session. Tests replace it to
// inject failures.
var compressBlock = engine.CompressBlock

// block is one unit of work. Indices are assigned by the producer in
// input order starting at 0.
type block struct {
	index   int
	payload []byte
}

// pool is the shared state between the producer and the workers. All
// fields below mu are guarded by it.
type pool struct {
	opts Options
	keep bool

	mu       sync.Mutex
	changed  *sync.Cond
	queue    []block
	blocks   int
	recorded int
	done     bool
	failed   bool
	failure  error
	sizes    []uint64
	outputs  [][]byte
}

// Size compresses in and returns the total compressed size without
// keeping any output. The result equals the size engine.Compress would
// write for the same input and options, whatever the thread count.
func Size(in bridge.Source, opts Options) (uint64, error) {
	if opts.Threads <= 1 {
		var counter bridge.Counter
		if err := engine.Compress(in, &counter, engineOptions(opts, 0)); err != nil {
			return 0, err
		}
		return counter.Count(), nil
	}
	p, err := run(in, opts, false)
	if err != nil {
		return 0, err
	}
	return p.total(), nil
}

// Compress compresses in and writes the blocks to out in input order.
// Compressed blocks are held in memory until every block is done, and
// nothing is written if any block fails. It returns the number of
// bytes written.
func Compress(in bridge.Source, out bridge.Writer, opts Options) (uint64, error) {
	if opts.Threads <= 1 {
		counter := &countingWriter{w: out}
		if err := engine.Compress(in, counter, engineOptions(opts, 0)); err != nil {
			return counter.count, err
		}
		return counter.count, nil
	}
	p, err := run(in, opts, true)
	if err != nil {
		return 0, err
	}
	var written uint64
	for index, output := range p.outputs {
		n, err := out.Write(output)
		written += uint64(n)
		if err != nil {
			return written, fault.Wrap(fault.KindCallback, err, "writing block %d", index)
		}
	}
	return written, nil
}

func engineOptions(opts Options, index int) engine.Options {
	segment := engine.Options{
		Method:   opts.Method,
		Filename: opts.Filename,
		Comment:  opts.Comment,
		Checksum: opts.Checksum,
	}
	if index > 0 {
		segment.Filename, segment.Comment = "", ""
	}
	return segment
}

func run(in bridge.Source, opts Options, keep bool) (*pool, error) {
	// Fail on a bad descriptor before starting any goroutine.
	program, err := method.Compile(opts.Method)
	if err != nil {
		return nil, err
	}

	p := &pool{opts: opts, keep: keep}
	p.changed = sync.NewCond(&p.mu)

	var group errgroup.Group
	for worker := 0; worker < opts.Threads; worker++ {
		group.Go(p.work)
	}
	p.produce(in, program.BlockSize())
	group.Wait()

	logger := opts.logger()
	if p.failed {
		logger.Warn("parallel compression failed",
			"method", opts.Method,
			"threads", opts.Threads,
			"error", p.failure,
		)
		return nil, p.failure
	}
	if p.recorded != p.blocks || len(p.sizes) != p.blocks {
		return nil, fault.New(fault.KindParallel, "%d block results for %d blocks", p.recorded, p.blocks)
	}
	logger.Debug("parallel compression finished",
		"method", opts.Method,
		"threads", opts.Threads,
		"blocks", p.blocks,
		"bytes", p.total(),
	)
	return p, nil
}

// produce reads the input block by block and queues each block. The
// queue is unbounded: reading is assumed to be slower than compressing.
func (p *pool) produce(in bridge.Source, blockSize int) {
	defer func() {
		p.mu.Lock()
		p.done = true
		p.changed.Broadcast()
		p.mu.Unlock()
	}()

	var scratch []byte
	for index := 0; ; index++ {
		p.mu.Lock()
		failed := p.failed
		p.mu.Unlock()
		if failed {
			return
		}

		var err error
		scratch, err = bridge.ReadBlock(in, scratch, blockSize)
		if len(scratch) > 0 {
			p.mu.Lock()
			p.queue = append(p.queue, block{index: index, payload: bytes.Clone(scratch)})
			p.blocks++
			p.changed.Signal()
			p.mu.Unlock()
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			p.fail(fault.Wrap(fault.KindCallback, err, "reading block %d", index))
			return
		}
	}
}

// work runs one worker until the queue is drained after the producer
// finishes, or until any block fails.
func (p *pool) work() error {
	var channel fault.Channel
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.done && !p.failed {
			p.changed.Wait()
		}
		if p.failed || len(p.queue) == 0 {
			p.mu.Unlock()
			return nil
		}
		next := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		var (
			counter bridge.Counter
			buffer  bytes.Buffer
			sink    bridge.Writer = &counter
		)
		if p.keep {
			sink = &buffer
		}
		err := channel.Run(fault.KindResource, func() error {
			return compressBlock(next.payload, sink, engineOptions(p.opts, next.index))
		})
		if err != nil {
			message, _ := channel.Last()
			p.fail(&fault.Error{
				Kind:    fault.KindParallel,
				Message: fmt.Sprintf("block %d: %s", next.index, message),
				Err:     err,
			})
			return nil
		}

		size := counter.Count()
		if p.keep {
			size = uint64(buffer.Len())
		}
		p.record(next.index, size, buffer.Bytes())
	}
}

func (p *pool) record(index int, size uint64, output []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index >= len(p.sizes) {
		p.sizes = append(p.sizes, make([]uint64, index+1-len(p.sizes))...)
		if p.keep {
			p.outputs = append(p.outputs, make([][]byte, index+1-len(p.outputs))...)
		}
	}
	p.sizes[index] = size
	p.recorded++
	if p.keep {
		p.outputs[index] = output
	}
}

// fail latches the first failure and wakes everyone. Later failures
// are dropped.
func (p *pool) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.failed {
		p.failed = true
		p.failure = err
		p.queue = nil
	}
	p.changed.Broadcast()
}

func (p *pool) total() uint64 {
	var total uint64
	for _, size := range p.sizes {
		total += size
	}
	return total
}

// countingWriter passes writes through and counts them.
type countingWriter struct {
	w     bridge.Writer
	count uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.count += uint64(n)
	return n, err
}

func (c *countingWriter) WriteByte(b byte) error {
	if err := c.w.WriteByte(b); err != nil {
		return err
	}
	c.count++
	return nil
}
