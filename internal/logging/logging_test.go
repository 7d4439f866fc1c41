package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestInfoRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Silent)
	l.SetOutput(&buf)

	l.Info("hello %s", "world")
	if buf.Len() != 0 {
		t.Errorf("expected no output at Silent level, got %q", buf.String())
	}

	l.SetLevel(Info)
	l.Info("hello %s", "world")
	if !strings.Contains(buf.String(), "hello world") {
		t.Errorf("expected output to contain message, got %q", buf.String())
	}
}

func TestDebugRequiresDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Info)
	l.SetOutput(&buf)

	l.Debug("verbose detail")
	if buf.Len() != 0 {
		t.Errorf("expected no Debug output at Info level, got %q", buf.String())
	}

	l.SetLevel(Debug)
	l.Debug("verbose detail")
	if !strings.Contains(buf.String(), "verbose detail") {
		t.Errorf("expected Debug output once level raised, got %q", buf.String())
	}
}

func TestLevelRoundTrip(t *testing.T) {
	l := New(Debug)
	if l.Level() != Debug {
		t.Errorf("Level() = %v, want Debug", l.Level())
	}
	l.SetLevel(Silent)
	if l.Level() != Silent {
		t.Errorf("Level() = %v, want Silent", l.Level())
	}
}

func TestNewFile(t *testing.T) {
	path := t.TempDir() + "/engine.log"
	l, err := NewFile(Info, path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	l.Info("started")
}
