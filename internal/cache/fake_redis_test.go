package cache

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRedis is an in-process RESP server covering the commands RedisClient issues.
type fakeRedis struct {
	t        *testing.T
	listener net.Listener
	password string

	mu       sync.Mutex
	strings  map[string][]byte
	lists    map[string][][]byte
	expiries map[string]time.Time
	commands []string
}

func newFakeRedis(t *testing.T) *fakeRedis {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := &fakeRedis{
		t:        t,
		listener: ln,
		strings:  map[string][]byte{},
		lists:    map[string][][]byte{},
		expiries: map[string]time.Time{},
	}
	go srv.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return srv
}

func (s *fakeRedis) addr() string {
	return s.listener.Addr().String()
}

func (s *fakeRedis) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *fakeRedis) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeRedis) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		raw, err := readResponse(reader)
		if err != nil {
			return
		}
		items, ok := raw.([]interface{})
		if !ok || len(items) == 0 {
			return
		}
		args := make([]string, len(items))
		for i, item := range items {
			b, _ := item.([]byte)
			args[i] = string(b)
		}
		if _, err := io.WriteString(conn, s.exec(args)); err != nil {
			return
		}
	}
}

func (s *fakeRedis) expireLocked(key string) {
	if deadline, ok := s.expiries[key]; ok && !time.Now().Before(deadline) {
		delete(s.strings, key)
		delete(s.lists, key)
		delete(s.expiries, key)
	}
}

func (s *fakeRedis) exec(args []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := strings.ToUpper(args[0])
	s.commands = append(s.commands, strings.Join(append([]string{cmd}, args[1:]...), " "))
	if len(args) > 1 {
		s.expireLocked(args[1])
	}

	switch cmd {
	case "PING":
		return "+PONG\r\n"
	case "AUTH":
		if args[len(args)-1] != s.password {
			return "-WRONGPASS invalid password\r\n"
		}
		return "+OK\r\n"
	case "SELECT", "FLUSHDB":
		if cmd == "FLUSHDB" {
			s.strings = map[string][]byte{}
			s.lists = map[string][][]byte{}
			s.expiries = map[string]time.Time{}
		}
		return "+OK\r\n"
	case "SET":
		s.strings[args[1]] = []byte(args[2])
		delete(s.expiries, args[1])
		if len(args) == 5 && strings.EqualFold(args[3], "PX") {
			ms, _ := strconv.ParseInt(args[4], 10, 64)
			s.expiries[args[1]] = time.Now().Add(time.Duration(ms) * time.Millisecond)
		}
		return "+OK\r\n"
	case "GET":
		if _, isList := s.lists[args[1]]; isList {
			return "-WRONGTYPE Operation against a key holding the wrong kind of value\r\n"
		}
		v, ok := s.strings[args[1]]
		if !ok {
			return "$-1\r\n"
		}
		return bulk(v)
	case "DEL":
		removed := 0
		for _, key := range args[1:] {
			s.expireLocked(key)
			if _, ok := s.strings[key]; ok {
				removed++
			}
			if _, ok := s.lists[key]; ok {
				removed++
			}
			delete(s.strings, key)
			delete(s.lists, key)
			delete(s.expiries, key)
		}
		return fmt.Sprintf(":%d\r\n", removed)
	case "INCR":
		current := int64(0)
		if v, ok := s.strings[args[1]]; ok {
			n, err := strconv.ParseInt(string(v), 10, 64)
			if err != nil {
				return "-ERR value is not an integer or out of range\r\n"
			}
			current = n
		}
		current++
		s.strings[args[1]] = []byte(strconv.FormatInt(current, 10))
		return fmt.Sprintf(":%d\r\n", current)
	case "PEXPIRE":
		_, isString := s.strings[args[1]]
		_, isList := s.lists[args[1]]
		if !isString && !isList {
			return ":0\r\n"
		}
		ms, _ := strconv.ParseInt(args[2], 10, 64)
		s.expiries[args[1]] = time.Now().Add(time.Duration(ms) * time.Millisecond)
		return ":1\r\n"
	case "PTTL":
		deadline, ok := s.expiries[args[1]]
		if !ok {
			return ":-1\r\n"
		}
		return fmt.Sprintf(":%d\r\n", time.Until(deadline).Milliseconds())
	case "RPUSH":
		for _, v := range args[2:] {
			s.lists[args[1]] = append(s.lists[args[1]], []byte(v))
		}
		return fmt.Sprintf(":%d\r\n", len(s.lists[args[1]]))
	case "LRANGE":
		list := s.lists[args[1]]
		start, _ := strconv.ParseInt(args[2], 10, 64)
		stop, _ := strconv.ParseInt(args[3], 10, 64)
		lo, hi, ok := rangeBounds(int64(len(list)), start, stop)
		if !ok {
			return "*0\r\n"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "*%d\r\n", hi-lo)
		for _, v := range list[lo:hi] {
			b.WriteString(bulk(v))
		}
		return b.String()
	case "DBSIZE":
		for key := range s.expiries {
			s.expireLocked(key)
		}
		return fmt.Sprintf(":%d\r\n", len(s.strings)+len(s.lists))
	default:
		return fmt.Sprintf("-ERR unknown command '%s'\r\n", cmd)
	}
}

func bulk(v []byte) string {
	return fmt.Sprintf("$%d\r\n%s\r\n", len(v), v)
}
