package cache

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestRedisClient(t *testing.T, srv *fakeRedis, prefix string) *RedisClient {
	t.Helper()

	client, err := NewRedisClient(RedisConfig{
		Address:   srv.addr(),
		Timeout:   time.Second,
		KeyPrefix: prefix,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRedisClientRequiresAddress(t *testing.T) {
	_, err := NewRedisClient(RedisConfig{Address: "  "})
	require.Error(t, err)
}

func TestNewRedisClientFailsWhenUnreachable(t *testing.T) {
	srv := newFakeRedis(t)
	addr := srv.addr()
	require.NoError(t, srv.listener.Close())

	_, err := NewRedisClient(RedisConfig{Address: addr, Timeout: 200 * time.Millisecond})
	require.Error(t, err)
	require.Contains(t, err.Error(), "dial")
}

func TestRedisClientAuthenticatesAndSelects(t *testing.T) {
	srv := newFakeRedis(t)
	srv.password = "secret"

	client, err := NewRedisClient(RedisConfig{Address: srv.addr(), Password: "secret", DB: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(context.Background()))
	require.Equal(t, []string{"AUTH secret", "SELECT 2", "PING"}, srv.seen())
}

func TestRedisClientRejectsWrongPassword(t *testing.T) {
	srv := newFakeRedis(t)
	srv.password = "secret"

	_, err := NewRedisClient(RedisConfig{Address: srv.addr(), Password: "nope"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "AUTH failed")
}

func TestRedisClientSetGetDelete(t *testing.T) {
	ctx := context.Background()
	client := newTestRedisClient(t, newFakeRedis(t), "")

	require.NoError(t, client.Set(ctx, "k", []byte("hello\r\nworld"), 0))

	value, ok, err := client.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello\r\nworld"), value)

	require.NoError(t, client.Delete(ctx, "k", "missing"))

	_, ok, err = client.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisClientSetWithTTLSendsPX(t *testing.T) {
	ctx := context.Background()
	srv := newFakeRedis(t)
	client := newTestRedisClient(t, srv, "")

	require.NoError(t, client.Set(ctx, "page", []byte("body"), 10*time.Second))
	require.Contains(t, srv.seen(), "SET page body PX 10000")
}

func TestRedisClientKeyPrefix(t *testing.T) {
	ctx := context.Background()
	srv := newFakeRedis(t)
	client := newTestRedisClient(t, srv, "callcache:")

	require.NoError(t, client.Set(ctx, ":count::x", []byte("1"), 0))
	require.Contains(t, srv.seen(), "SET callcache::count::x 1")
}

func TestRedisClientKeyPrefixKeepsKeysDistinct(t *testing.T) {
	ctx := context.Background()
	srv := newFakeRedis(t)
	client := newTestRedisClient(t, srv, "callcache:")

	require.NoError(t, client.Set(ctx, "callcache:a", []byte("first"), 0))
	require.NoError(t, client.Set(ctx, "a", []byte("second"), 0))

	value, ok, err := client.Get(ctx, "callcache:a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("first"), value)

	require.NoError(t, client.Set(ctx, "cached:http://[::1]/", []byte("loopback"), 0))
	require.NoError(t, client.Set(ctx, "cached:http://[:1]/", []byte("other"), 0))

	value, ok, err = client.Get(ctx, "cached:http://[::1]/")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("loopback"), value)
	require.Contains(t, srv.seen(), "GET callcache:cached:http://[::1]/")
}

func TestRedisClientKeyCount(t *testing.T) {
	ctx := context.Background()
	client := newTestRedisClient(t, newFakeRedis(t), "")

	require.NoError(t, client.Set(ctx, "a", []byte("1"), 0))
	_, err := client.RPush(ctx, "list", []byte("x"))
	require.NoError(t, err)

	n, err := client.KeyCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestRedisClientIncrAndIncrementWithTTL(t *testing.T) {
	ctx := context.Background()
	srv := newFakeRedis(t)
	client := newTestRedisClient(t, srv, "")

	n, err := client.Incr(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = client.Incr(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	count, ttl, err := client.IncrementWithTTL(ctx, "window", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Greater(t, ttl, 50*time.Second)
	require.LessOrEqual(t, ttl, time.Minute)

	count, _, err = client.IncrementWithTTL(ctx, "window", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	pexpires := 0
	for _, cmd := range srv.seen() {
		if strings.HasPrefix(cmd, "PEXPIRE window") {
			pexpires++
		}
	}
	require.Equal(t, 1, pexpires, "window should only start on the first increment")
}

func TestRedisClientReplyErrorKeepsConnection(t *testing.T) {
	ctx := context.Background()
	client := newTestRedisClient(t, newFakeRedis(t), "")

	require.NoError(t, client.Set(ctx, "text", []byte("abc"), 0))

	_, err := client.Incr(ctx, "text")
	var replyErr *ReplyError
	require.True(t, errors.As(err, &replyErr))
	require.Contains(t, replyErr.Message, "not an integer")

	client.mu.Lock()
	conn := client.conn
	client.mu.Unlock()
	require.NotNil(t, conn)

	require.NoError(t, client.Ping(ctx))
}

func TestRedisClientLists(t *testing.T) {
	ctx := context.Background()
	client := newTestRedisClient(t, newFakeRedis(t), "")

	n, err := client.RPush(ctx, "calls", []byte("a"), []byte(""))
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	n, err = client.RPush(ctx, "calls", []byte("c"))
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	items, err := client.LRange(ctx, "calls", 0, -1)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("a"), []byte(""), []byte("c")}, items)

	items, err = client.LRange(ctx, "missing", 0, -1)
	require.NoError(t, err)
	require.Empty(t, items)

	_, err = client.RPush(ctx, "calls")
	require.Error(t, err)
}

func TestRedisClientExpireAndFlush(t *testing.T) {
	ctx := context.Background()
	client := newTestRedisClient(t, newFakeRedis(t), "")

	ok, err := client.Expire(ctx, "missing", time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, client.Set(ctx, "k", []byte("v"), 0))
	ok, err = client.Expire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, client.FlushAll(ctx))
	_, found, err := client.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisClientReconnectsAfterConnectionLoss(t *testing.T) {
	ctx := context.Background()
	client := newTestRedisClient(t, newFakeRedis(t), "")

	client.mu.Lock()
	_ = client.conn.Close()
	client.mu.Unlock()

	// The first call observes the broken connection and resets it.
	_ = client.Ping(ctx)
	require.NoError(t, client.Ping(ctx))
}

func TestReadResponseParsesReplies(t *testing.T) {
	input := "+OK\r\n:42\r\n$5\r\nhello\r\n$-1\r\n*2\r\n$1\r\na\r\n$-1\r\n*-1\r\n-ERR boom\r\n"
	reader := bufio.NewReader(strings.NewReader(input))

	v, err := readResponse(reader)
	require.NoError(t, err)
	require.Equal(t, "OK", v)

	v, err = readResponse(reader)
	require.NoError(t, err)
	require.Equal(t, int64(42), v)

	v, err = readResponse(reader)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)

	v, err = readResponse(reader)
	require.NoError(t, err)
	require.Nil(t, v)

	v, err = readResponse(reader)
	require.NoError(t, err)
	require.Equal(t, []interface{}{[]byte("a"), nil}, v)

	v, err = readResponse(reader)
	require.NoError(t, err)
	require.Nil(t, v)

	_, err = readResponse(reader)
	var replyErr *ReplyError
	require.True(t, errors.As(err, &replyErr))
	require.Equal(t, "ERR boom", replyErr.Message)
}

func TestWriteCommandEncodesArrays(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCommand(&buf, []string{"SET", "k", ""}))
	require.Equal(t, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$0\r\n\r\n", buf.String())
}

func TestRangeBounds(t *testing.T) {
	cases := []struct {
		name        string
		n           int64
		start, stop int64
		lo, hi      int64
		ok          bool
	}{
		{name: "full", n: 3, start: 0, stop: -1, lo: 0, hi: 3, ok: true},
		{name: "tail", n: 3, start: -2, stop: -1, lo: 1, hi: 3, ok: true},
		{name: "clamped stop", n: 3, start: 1, stop: 10, lo: 1, hi: 3, ok: true},
		{name: "negative start clamps", n: 3, start: -10, stop: 0, lo: 0, hi: 1, ok: true},
		{name: "empty list", n: 0, start: 0, stop: -1},
		{name: "inverted", n: 3, start: 2, stop: 1},
		{name: "start beyond end", n: 3, start: 5, stop: 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lo, hi, ok := rangeBounds(tc.n, tc.start, tc.stop)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.lo, lo)
				require.Equal(t, tc.hi, hi)
			}
		})
	}
}
