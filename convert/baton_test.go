package main

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestScaleCount(t *testing.T) {
	cases := map[float64]string{
		42:        "42",
		1500:      "1.50K",
		2500000:   "2.50M",
		3000000000: "3.00G",
	}
	for n, want := range cases {
		if got := scaleCount(n); got != want {
			t.Errorf("scaleCount(%v) = %q, want %q", n, got, want)
		}
	}
}

// TestNilBatonIsInert ensures every Baton method is safe to call on a
// nil receiver, since tests build Contexts and Drivers without one.
func TestNilBatonIsInert(t *testing.T) {
	var b *Baton
	b.printLog("hello %d", 1)
	b.twirl()
	b.startCounter("%d", 0)
	b.bumpCounter()
	b.endCounter()
	b.startProgress("tag", 10)
	b.percentProgress(5)
	b.endProgress()
	b.Sync()
	b.Close()
	b.setInteractivity(true)
}

func TestBatonSyncRoundTrips(t *testing.T) {
	log := logrus.NewEntry(logrus.New())
	b := newBaton(false, log)
	defer b.Close()

	b.printLog("starting pass %s", "ingest")
	b.Sync() // must return once the printer goroutine has drained the log message
}
