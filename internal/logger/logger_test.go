package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLevelFromEnv(t *testing.T) {
	cases := map[string]logrus.Level{
		"":        logrus.InfoLevel,
		"debug":   logrus.DebugLevel,
		"WARNING": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range cases {
		t.Setenv("LOG_LEVEL", in)
		if got := levelFromEnv(); got != want {
			t.Fatalf("LOG_LEVEL=%q: want=%v got=%v", in, want, got)
		}
	}
}

func TestNewTextWritesToGivenWriter(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	l := newText(&buf)
	l.WithField("audio_path", "call.wav").Info("diarizing")
	if !strings.Contains(buf.String(), "audio_path=call.wav") {
		t.Fatalf("output missing field: %q", buf.String())
	}
}
