package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"trace":   zerolog.TraceLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestSetup_WritesToFile(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var file bytes.Buffer
	Setup(Options{Level: "debug", File: &file, JSON: true})
	log.Debug().Str("pitch", "p1").Msg("classified")

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.Contains(t, file.String(), "classified")
	assert.Contains(t, file.String(), "pitch=p1")
}

func TestSampled(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	l := Sampled()
	for i := 0; i < 20; i++ {
		l.Warn().Int("i", i).Msg("frame skipped")
	}

	n := bytes.Count(buf.Bytes(), []byte("frame skipped"))
	assert.GreaterOrEqual(t, n, 5, "the burst is always logged")
	assert.Less(t, n, 10, "entries past the burst are sampled")
}
