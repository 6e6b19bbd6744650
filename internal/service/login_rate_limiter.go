package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LoginRateLimiter limita los intentos de login de un usuario desde una IP.
// Ambas implementaciones usan ventana deslizante y los intentos rechazados no cuentan.
type LoginRateLimiter interface {
	Allow(username, clientIP string) bool
}

// loginKey arma la clave del par usuario/IP. La IP va primero porque no puede
// contener '|', asi un username con '|' no colisiona con otro par.
func loginKey(username, clientIP string) (string, bool) {
	user := strings.ToLower(strings.TrimSpace(username))
	if user == "" {
		return "", false
	}
	return strings.TrimSpace(clientIP) + "|" + user, true
}

type memoryLoginRateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	hits      map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewLoginRateLimiter crea un rate limiter en memoria con ventana deslizante.
// Las claves vencidas se purgan como mucho una vez por ventana.
func NewLoginRateLimiter(window time.Duration, max int) LoginRateLimiter {
	return newMemoryLoginRateLimiter(window, max, time.Now)
}

func newMemoryLoginRateLimiter(window time.Duration, max int, now func() time.Time) *memoryLoginRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryLoginRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    now,
	}
}

func (l *memoryLoginRateLimiter) Allow(username, clientIP string) bool {
	key, ok := loginKey(username, clientIP)
	if !ok {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now().UTC()
	cutoff := now.Add(-l.window)
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	kept := pruneHits(l.hits[key], cutoff)
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

// sweep elimina las claves sin intentos dentro de la ventana.
func (l *memoryLoginRateLimiter) sweep(cutoff time.Time) {
	for key, entries := range l.hits {
		if len(entries) == 0 || !entries[len(entries)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}

func (l *memoryLoginRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

func pruneHits(entries []time.Time, cutoff time.Time) []time.Time {
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}

// El set ordenado guarda un miembro por intento con score en milisegundos;
// se recorta a la ventana antes de contar, igual que la version en memoria.
const redisLoginAllowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
if redis.call("ZCARD", key) >= max then
  return 0
end
redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, window)
return 1
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisLoginRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
	now    func() time.Time
}

// NewRedisLoginRateLimiter crea el limiter compartido entre instancias.
// Si Redis falla deja pasar el intento.
func NewRedisLoginRateLimiter(client *redis.Client, window time.Duration, max int) LoginRateLimiter {
	if client == nil {
		return nil
	}
	return newRedisLoginRateLimiter(client, window, max, time.Now)
}

func newRedisLoginRateLimiter(client redisEvaler, window time.Duration, max int, now func() time.Time) *redisLoginRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisLoginRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "login:rl:",
		now:    now,
	}
}

func (l *redisLoginRateLimiter) Allow(username, clientIP string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key, ok := loginKey(username, clientIP)
	if !ok {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	nowMs := l.now().UnixMilli()
	// Intentos en el mismo milisegundo, aun desde otra instancia, necesitan miembros distintos.
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()
	allowed, err := l.client.Eval(ctx, redisLoginAllowScript, []string{l.prefix + key},
		nowMs, l.window.Milliseconds(), l.max, member).Int()
	if err != nil {
		return true
	}
	return allowed == 1
}
