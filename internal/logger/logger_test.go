package logger_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/billboardcp/billboard-server/internal/logger"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.TraceLevel, logger.ParseLevel("trace"))
	require.Equal(t, zerolog.DebugLevel, logger.ParseLevel("DEBUG"))
	require.Equal(t, zerolog.WarnLevel, logger.ParseLevel("warning"))
	require.Equal(t, zerolog.ErrorLevel, logger.ParseLevel(" error "))
	require.Equal(t, zerolog.InfoLevel, logger.ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, logger.ParseLevel("loud"))
}

func TestInitAppliesLevel(t *testing.T) {
	lg := logger.Init("debug", false)
	require.Equal(t, zerolog.DebugLevel, lg.GetLevel())
}
