package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
)

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SUBMIT_GRACE_SECONDS", "15")
	t.Setenv("UPLOAD_ALLOWED_EXT", ".pdf, .zip,,")
	t.Setenv("RECONCILE_INTERVAL", "30s")
	t.Setenv("EVENTS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.SubmitGrace)
	assert.Equal(t, []string{".pdf", ".zip"}, cfg.UploadAllowedExt)
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
	assert.False(t, cfg.Events.Enabled)
	assert.False(t, cfg.Plagiarism.Enabled())
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SUBMIT_GRACE_SECONDS", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), cfg.SubmitGrace)
	assert.Equal(t, int64(20<<20), cfg.UploadMaxBytes)
}

func TestCreateEventBus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	disabled := EventConfig{Enabled: false}
	bus, err := disabled.CreateEventBus(logger)
	require.NoError(t, err)
	assert.IsType(t, &events.MockEventPublisher{}, bus.Publisher)
	assert.Nil(t, bus.Queue)

	inProcess := EventConfig{Enabled: true, Publisher: "gochannel", NotificationTopic: "n", PlagiarismTopic: "p"}
	bus, err = inProcess.CreateEventBus(logger)
	require.NoError(t, err)
	assert.NotNil(t, bus.Queue)
	assert.NotNil(t, bus.Subscriber)
	assert.Equal(t, "p", bus.Topic)
	assert.NoError(t, bus.Close())

	unknown := EventConfig{Enabled: true, Publisher: "carrier-pigeon"}
	_, err = unknown.CreateEventBus(logger)
	assert.Error(t, err)
}
