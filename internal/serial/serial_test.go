package serial

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"dmgo/internal/interrupt"
	"dmgo/internal/logger"
)

type recorder struct {
	requests []interrupt.Source
}

func (r *recorder) Request(s interrupt.Source) {
	r.requests = append(r.requests, s)
}

func TestInternalTransfer(t *testing.T) {
	r := &recorder{}
	p := New(r)
	out := &bytes.Buffer{}
	p.SetOutput(out)

	for _, c := range []byte("ok") {
		p.Write(SB, c)
		p.Write(SC, 0x81)

		// 8 bits at 512 clocks each
		p.Tick(1023)
		if !p.Transferring() {
			t.Fatalf("transfer of %q finished early", c)
		}
		p.Tick(1)
		if p.Transferring() {
			t.Fatalf("transfer of %q did not finish", c)
		}
		if got := p.Read(SB); got != 0xFF {
			t.Errorf("SB after transfer = %02X, want FF", got)
		}
	}

	if out.String() != "ok" {
		t.Errorf("output = %q, want %q", out.String(), "ok")
	}
	if len(r.requests) != 2 {
		t.Errorf("expected 2 serial interrupts, got %d", len(r.requests))
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("link closed")
}

func TestOutputErrorDoesNotStopTransfer(t *testing.T) {
	logger.Clear()
	defer logger.Clear()

	r := &recorder{}
	p := New(r)
	p.SetOutput(failingWriter{})

	p.Write(SB, 0x41)
	p.Write(SC, 0x81)
	if !p.Transferring() {
		t.Fatal("transfer did not start")
	}

	p.Tick(1024)
	if p.Transferring() {
		t.Error("transfer did not finish")
	}
	if len(r.requests) != 1 || r.requests[0] != interrupt.Serial {
		t.Errorf("requests = %v, want one serial interrupt", r.requests)
	}

	var log bytes.Buffer
	logger.Write(&log)
	if !strings.Contains(log.String(), "serial: output write failed: link closed") {
		t.Errorf("write error not logged:\n%s", log.String())
	}
}

func TestExternalClockNeverCompletes(t *testing.T) {
	r := &recorder{}
	p := New(r)

	p.Write(SB, 0x55)
	p.Write(SC, 0x80)
	p.Tick(100000)

	if !p.Transferring() {
		t.Error("externally clocked transfer completed without a partner")
	}
	if len(r.requests) != 0 {
		t.Errorf("unexpected interrupts %v", r.requests)
	}
	if got := p.Read(SC); got != 0xFE {
		t.Errorf("SC = %02X, want FE", got)
	}
}
