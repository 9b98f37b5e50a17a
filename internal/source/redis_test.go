package source

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisreporter/internal/config"
	"aisreporter/internal/logger"
)

func newRedisSource(t *testing.T, mr *miniredis.Miniredis, rec *recorder, channels ...string) *RedisSource {
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	s := NewRedisSource(config.RedisConfig{
		Host:     mr.Host(),
		Port:     port,
		Channels: channels,
	}, fastPolicy(), rec, logger.NopLogger())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisSource_PublishesMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	rec := &recorder{}
	s := newRedisSource(t, mr, rec, "nmea0183", "nmea0183out")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return mr.Publish("nmea0183out", "!AIVDM,1,1,,A,x,0*00\r\n") > 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, published{channel: "nmea0183out", line: "!AIVDM,1,1,,A,x,0*00"}, rec.snapshot()[0])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("redis source did not stop")
	}
}

func TestRedisSource_ClientPing(t *testing.T) {
	mr := miniredis.RunT(t)
	s := newRedisSource(t, mr, &recorder{}, "nmea0183")

	assert.NoError(t, s.Client().Ping(context.Background()).Err())
	assert.Equal(t, "redis://"+mr.Host()+":"+mr.Port(), s.Name())
}
