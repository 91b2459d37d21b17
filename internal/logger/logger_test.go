package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetup_Levels(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, Setup(false).GetLevel())
	require.Equal(t, zerolog.DebugLevel, Setup(true).GetLevel())
}

func TestNew_Writer(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"message":"shown"`)

	buf.Reset()
	log = New(&buf, true)
	log.Debug().Msg("verbose")
	require.Contains(t, buf.String(), "verbose")
}

func TestMessages(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	Messages(&log, zerolog.WarnLevel, []api.Message{
		{
			Text:       "Could not resolve \"./missing.css\"",
			PluginName: "style-pipeline",
			Location:   &api.Location{File: "src/App.bs.js", Line: 3, Column: 7},
		},
		{Text: "no location"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "warn", first["level"])
	require.Equal(t, "esbuild", first["message"])
	require.Equal(t, "style-pipeline", first["plugin"])
	require.Equal(t, "src/App.bs.js", first["file"])
	require.EqualValues(t, 3, first["line"])
	require.EqualValues(t, 7, first["column"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.Equal(t, "no location", second["text"])
	require.NotContains(t, second, "file")
}
