package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tradeflow/pkg/exception"
)

const (
	defaultJournalPrefix       = "events"
	defaultJournalSegmentBytes = 64 << 20
	defaultJournalQueueSize    = 1024
	defaultJournalBufferSize   = 64 * 1024
	maxJournalLine             = 1 << 20
)

// JournalConfig controls where and how events are journaled.
type JournalConfig struct {
	Dir             string
	FilePrefix      string
	SegmentMaxBytes int64
	QueueSize       int
	BufferSize      int
	// FlushInterval pushes buffered lines to the file; 0 flushes on rotate and close only.
	FlushInterval time.Duration
}

func (c JournalConfig) withDefaults() JournalConfig {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultJournalPrefix
	}
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultJournalSegmentBytes
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJournalQueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultJournalBufferSize
	}
	return c
}

func (c JournalConfig) Validate() error {
	switch {
	case c.Dir == "":
		return errors.Wrap(exception.ErrInvalidConfig, "journal dir is empty")
	case c.SegmentMaxBytes < 0:
		return errors.Wrap(exception.ErrInvalidConfig, "journal segmentMaxBytes must be > 0")
	case c.QueueSize < 0, c.BufferSize < 0:
		return errors.Wrap(exception.ErrInvalidConfig, "journal queue and buffer sizes must be > 0")
	case c.FlushInterval < 0:
		return errors.Wrap(exception.ErrInvalidConfig, "journal flushInterval must be >= 0")
	}
	return nil
}

// JournalPublisher appends events as JSON lines to size-rotated segment files.
// Publish never blocks: a full queue drops the event and reports ErrJournalFull.
type JournalPublisher struct {
	cfg JournalConfig
	ch  chan []byte
	wg  sync.WaitGroup
	err atomic.Value

	mu     sync.RWMutex
	closed bool

	seg   *journalSegment
	segID uint64
}

func NewJournalPublisher(cfg JournalConfig) (*JournalPublisher, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create journal dir")
	}

	p := &JournalPublisher{
		cfg: cfg,
		ch:  make(chan []byte, cfg.QueueSize),
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run()
	}()
	logs.Infof("events: journal ready, dir=%s prefix=%s", cfg.Dir, cfg.FilePrefix)
	return p, nil
}

func (p *JournalPublisher) Publish(_ context.Context, e Event) error {
	if err := p.Err(); err != nil {
		return err
	}
	line, err := e.Encode()
	if err != nil {
		return errors.Wrap(err, "encode event")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return exception.ErrJournalClosed
	}
	select {
	case p.ch <- line:
		return nil
	default:
		return exception.ErrJournalFull
	}
}

// Close drains queued events and closes the open segment.
func (p *JournalPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	p.mu.Unlock()

	p.wg.Wait()
	if err := p.Err(); err != nil {
		logs.Errorf("events: journal closed with error, err: %+v", err)
	}
}

// Err returns the first write error, after which the journal stops accepting events.
func (p *JournalPublisher) Err() error {
	if v := p.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func (p *JournalPublisher) run() {
	var flushC <-chan time.Time
	if p.cfg.FlushInterval > 0 {
		ticker := time.NewTicker(p.cfg.FlushInterval)
		defer ticker.Stop()
		flushC = ticker.C
	}
	defer func() {
		if err := p.seg.close(); err != nil {
			p.setErr(err)
		}
	}()

	for {
		select {
		case line, ok := <-p.ch:
			if !ok {
				return
			}
			if err := p.write(line); err != nil {
				p.setErr(err)
				p.discard()
				return
			}
		case <-flushC:
			if err := p.seg.flush(); err != nil {
				p.setErr(err)
				p.discard()
				return
			}
		}
	}
}

// discard empties the queue after a failure so Close does not wait on it.
func (p *JournalPublisher) discard() {
	for range p.ch {
	}
}

func (p *JournalPublisher) write(line []byte) error {
	size := int64(len(line) + 1)
	if p.seg == nil || p.seg.size+size > p.cfg.SegmentMaxBytes {
		if err := p.seg.close(); err != nil {
			return err
		}
		seg, err := p.openSegment(time.Now().UTC())
		if err != nil {
			return err
		}
		p.seg = seg
	}

	if _, err := p.seg.buf.Write(line); err != nil {
		return errors.Wrap(err, "write journal")
	}
	if err := p.seg.buf.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "write journal")
	}
	p.seg.size += size
	return nil
}

func (p *JournalPublisher) openSegment(now time.Time) (*journalSegment, error) {
	ts := now.Format("20060102-150405")
	for {
		p.segID++
		name := fmt.Sprintf("%s-%s-%06d.jsonl", p.cfg.FilePrefix, ts, p.segID)
		file, err := os.OpenFile(filepath.Join(p.cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return nil, errors.Wrap(err, "open journal segment")
		}
		return &journalSegment{
			file: file,
			buf:  bufio.NewWriterSize(file, p.cfg.BufferSize),
		}, nil
	}
}

func (p *JournalPublisher) setErr(err error) {
	if p.err.Load() == nil {
		p.err.Store(err)
	}
}

type journalSegment struct {
	file *os.File
	buf  *bufio.Writer
	size int64
}

func (s *journalSegment) flush() error {
	if s == nil {
		return nil
	}
	return s.buf.Flush()
}

func (s *journalSegment) close() error {
	if s == nil {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		_ = s.file.Close()
		return errors.Wrap(err, "flush journal segment")
	}
	if err := s.file.Sync(); err != nil {
		_ = s.file.Close()
		return errors.Wrap(err, "sync journal segment")
	}
	return s.file.Close()
}

// ReadJournal returns every event under dir written with prefix, oldest segment first.
func ReadJournal(dir, prefix string) ([]Event, error) {
	if prefix == "" {
		prefix = defaultJournalPrefix
	}
	paths, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl"))
	if err != nil {
		return nil, errors.Wrap(err, "list journal segments")
	}
	sort.Strings(paths)

	// The glob also matches longer prefixes such as "events-archive".
	name := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-\d{8}-\d{6}-\d{6,}\.jsonl$`)

	var out []Event
	for _, path := range paths {
		if !name.MatchString(filepath.Base(path)) {
			continue
		}
		read, err := readSegment(path)
		if err != nil {
			return nil, err
		}
		out = append(out, read...)
	}
	return out, nil
}

func readSegment(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open journal segment")
	}
	defer file.Close()

	var out []Event
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, defaultJournalBufferSize), maxJournalLine)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, errors.Wrapf(err, "decode journal line in %s", filepath.Base(path))
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan journal segment")
	}
	return out, nil
}
