// Baton: the progress-meter machinery behind the §4.8 "stdout
// progress" output delegate.
//
// Adapted from surgeon/baton.go's twirly/counter/progress triad
// multiplexed over a channel to one printer goroutine. Unlike the
// teacher, LOG-kind messages are routed through the ambient logrus
// logger (cvs2svn-go's structured-logging concern, sourced from
// rcowham-gitp4transfer) instead of raw terminfo escapes; PROGRESS-
// kind messages still overwrite the status line in place for TTY use.
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type msgType uint8

const (
	msgLog msgType = iota
	msgProgress
	msgSync
)

type batonMessage struct {
	ty  msgType
	str []byte
}

const twirlInterval = 100 * time.Millisecond
const progressInterval = 1 * time.Second

// Baton is the overall state of the stdout progress output.
type Baton struct {
	enabled bool
	stream  *os.File
	log     *logrus.Entry
	channel chan batonMessage
	start   time.Time
	twirly  twirlyState
	counter counterState
	progress progressState
}

type twirlyState struct {
	sync.RWMutex
	lastupdate time.Time
	count      uint8
}

type counterState struct {
	sync.RWMutex
	format string
	count  uint64
}

type progressState struct {
	sync.RWMutex
	start      time.Time
	lastupdate time.Time
	tag        string
	count      uint64
	lastcount  uint64
	expected   uint64
}

func newBaton(interactive bool, log *logrus.Entry) *Baton {
	b := &Baton{
		enabled: interactive,
		stream:  os.Stdout,
		log:     log,
		channel: make(chan batonMessage),
		start:   time.Now(),
	}
	go func() {
		var lastProgress []byte
		for msg := range b.channel {
			switch msg.ty {
			case msgSync:
				b.channel <- msg
			case msgLog:
				b.log.Info(string(bytes.TrimRight(msg.str, "\n")))
			case msgProgress:
				if b.enabled {
					fmt.Fprint(b.stream, "\r\x1b[K")
					b.stream.Write(msg.str)
					lastProgress = msg.str
				}
			}
			_ = lastProgress
		}
	}()
	return b
}

func (b *Baton) setInteractivity(enabled bool) {
	if b == nil {
		return
	}
	b.channel <- batonMessage{msgSync, nil}
	b.enabled = enabled
	<-b.channel
}

// printLog prints a one-shot message — StdoutDelegate uses this to
// announce each committed revision ("r3 committed").
func (b *Baton) printLog(format string, args ...interface{}) {
	if b == nil {
		return
	}
	b.channel <- batonMessage{msgLog, []byte(fmt.Sprintf(format, args...))}
}

func (b *Baton) twirl() {
	if b == nil || !b.enabled {
		return
	}
	b.twirly.Lock()
	if time.Since(b.twirly.lastupdate) > twirlInterval {
		b.twirly.count = (b.twirly.count + 1) % 4
		b.twirly.lastupdate = time.Now()
		b.twirly.Unlock()
		b.printProgress()
	} else {
		b.twirly.Unlock()
	}
}

func (b *Baton) printProgress() {
	if b == nil || !b.enabled {
		return
	}
	var buf bytes.Buffer
	b.render(&buf)
	b.channel <- batonMessage{msgProgress, buf.Bytes()}
}

func (b *Baton) startCounter(format string, initial uint64) {
	if b == nil {
		return
	}
	b.counter.Lock()
	b.counter.format = format
	b.counter.count = initial
	b.counter.Unlock()
}

func (b *Baton) bumpCounter() {
	if b == nil {
		return
	}
	b.counter.Lock()
	if b.counter.format != "" {
		b.counter.count++
		b.counter.Unlock()
		b.printProgress()
	} else {
		b.counter.Unlock()
		b.twirl()
	}
}

func (b *Baton) endCounter() {
	if b == nil {
		return
	}
	b.counter.Lock()
	b.counter.format = ""
	b.counter.count = 0
	b.counter.Unlock()
}

func (b *Baton) startProgress(tag string, expected uint64) {
	if b == nil {
		return
	}
	b.progress.Lock()
	b.progress.start = time.Now()
	b.progress.lastupdate = b.progress.start
	b.progress.tag = tag
	b.progress.count = 0
	b.progress.expected = expected
	b.progress.Unlock()
}

func (b *Baton) percentProgress(count uint64) {
	if b == nil {
		return
	}
	b.progress.Lock()
	if time.Since(b.progress.lastupdate) > progressInterval || count == b.progress.expected {
		b.progress.lastcount = b.progress.count
		b.progress.count = count
		b.progress.lastupdate = time.Now()
		b.progress.Unlock()
		b.printProgress()
	} else {
		b.progress.Unlock()
	}
}

func (b *Baton) endProgress() {
	if b == nil {
		return
	}
	b.progress.Lock()
	tag := b.progress.tag
	count := b.progress.expected
	b.progress.count = count
	b.progress.Unlock()
	if b.log != nil {
		b.log.Infof("%s: %d/%d complete", tag, count, count)
	}
	b.progress.Lock()
	b.progress.tag = ""
	b.progress.count = 0
	b.progress.expected = 0
	b.progress.Unlock()
}

func (b *Baton) render(w io.Writer) {
	b.counter.render(w)
	b.progress.render(w)
	fmt.Fprintf(w, " (%v)", time.Since(b.start).Round(time.Second))
	b.twirly.render(w)
}

func (t *twirlyState) render(w io.Writer) {
	t.RLock()
	defer t.RUnlock()
	w.Write([]byte{' ', "-\\|/"[t.count]})
}

func (c *counterState) render(w io.Writer) {
	c.RLock()
	defer c.RUnlock()
	if c.format != "" {
		fmt.Fprintf(w, c.format, c.count)
		w.Write([]byte{' '})
	}
}

func scaleCount(n float64) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%.0f", n)
	case n < 1000000:
		return fmt.Sprintf("%.2fK", n/1000)
	case n < 1000000000:
		return fmt.Sprintf("%.2fM", n/1000000)
	default:
		return fmt.Sprintf("%.2fG", n/1000000000)
	}
}

func (p *progressState) render(w io.Writer) {
	p.RLock()
	defer p.RUnlock()
	if p.expected == 0 {
		return
	}
	frac := float64(p.count) / float64(p.expected)
	elapsed := p.lastupdate.Sub(p.start)
	rate := float64(p.count) / elapsed.Seconds()
	var ratemsg string
	if elapsed.Seconds() == 0 || math.IsInf(rate, 0) {
		ratemsg = "inf"
	} else {
		ratemsg = scaleCount(rate)
	}
	fmt.Fprintf(w, "%s %.2f%% %s/%s, %v @ %s/s",
		p.tag, frac*100, scaleCount(float64(p.count)), scaleCount(float64(p.expected)),
		elapsed.Round(time.Second), ratemsg)
}

func (b *Baton) Sync() {
	if b == nil {
		return
	}
	b.channel <- batonMessage{msgSync, nil}
	<-b.channel
}

func (b *Baton) Close() {
	if b == nil {
		return
	}
	close(b.channel)
}
