package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Session keys shared between packages.
const (
	// IntendedURLKey holds the URL a guest tried to reach before logging in.
	IntendedURLKey = "url.intended"
)

// Reserved hash fields. Caller keys never start with an underscore.
const (
	fieldUser    = "_user"
	fieldFlashes = "_flashes"
	fieldCreated = "_created"
)

// FlashMessage is a one-time notification stored in the session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager keeps cookie identified sessions as Redis hashes under
// "<cookieName>:<id>". The cookie carries "<id>.<mac>", where mac is an
// HMAC-SHA256 of the id under the session secret.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	secret     []byte
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session state.
type Session struct {
	ID      string
	data    map[string]string
	userID  string
	flashes []FlashMessage
	created time.Time

	fresh     bool
	changed   bool
	destroyed bool
	// staleID is dropped by Regenerate and removed from Redis on commit.
	staleID string
}

// NewSessionManager constructs a SessionManager signing cookies with secret.
func NewSessionManager(client *redis.Client, cookieName, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{client: client, cookieName: cookieName, secret: []byte(secret), ttl: ttl, secure: secure}
}

// Load returns the session named by the request cookie. Missing, unsigned,
// tampered, unknown and expired identifiers all yield a fresh session with a
// new identifier; Redis is only consulted for correctly signed cookies.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return sm.start(), nil
	}
	if err != nil {
		return nil, err
	}
	id, ok := sm.verify(cookie.Value)
	if !ok {
		return sm.start(), nil
	}

	fields, err := sm.client.HGetAll(ctx, sm.key(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return sm.start(), nil
	}

	sess := &Session{ID: id, data: make(map[string]string, len(fields))}
	for name, value := range fields {
		switch name {
		case fieldUser:
			sess.userID = value
		case fieldFlashes:
			if err := json.Unmarshal([]byte(value), &sess.flashes); err != nil {
				return nil, err
			}
		case fieldCreated:
			if ts, err := time.Parse(time.RFC3339, value); err == nil {
				sess.created = ts
			}
		default:
			sess.data[name] = value
		}
	}
	return sess, nil
}

// Commit writes the session to Redis and sets the cookie. A destroyed
// session is deleted and its cookie expired.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		keys := []string{sm.key(sess.ID)}
		if sess.staleID != "" {
			keys = append(keys, sm.key(sess.staleID))
		}
		if err := sm.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
		http.SetCookie(w, sm.cookie("", -1))
		return nil
	}

	if sess.changed || sess.fresh || sess.staleID != "" {
		fields, err := sess.fields()
		if err != nil {
			return err
		}
		key := sm.key(sess.ID)
		_, err = sm.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if sess.staleID != "" {
				pipe.Del(ctx, sm.key(sess.staleID))
			}
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, fields)
			pipe.Expire(ctx, key, sm.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		sess.staleID = ""
		sess.changed = false
		sess.fresh = false
	} else if err := sm.client.Expire(ctx, sm.key(sess.ID), sm.ttl).Err(); err != nil {
		return err
	}

	http.SetCookie(w, sm.cookie(sm.CookieValue(sess.ID), int(sm.ttl/time.Second)))
	return nil
}

// Destroy marks the session for deletion on commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// Regenerate moves the session data to a new identifier. The old key is
// removed on commit.
func (sm *SessionManager) Regenerate(sess *Session) {
	if sess == nil {
		return
	}
	if !sess.fresh {
		sess.staleID = sess.ID
	}
	sess.ID = uuid.NewString()
	sess.changed = true
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// CookieValue returns the signed cookie value that names session id.
func (sm *SessionManager) CookieValue(id string) string {
	return id + "." + sm.sign(id)
}

func (sm *SessionManager) sign(id string) string {
	mac := hmac.New(sha256.New, sm.secret)
	_, _ = mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verify returns the session id carried by a signed cookie value.
func (sm *SessionManager) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(sm.sign(id))) {
		return "", false
	}
	return id, true
}

func (sm *SessionManager) start() *Session {
	return &Session{
		ID:      uuid.NewString(),
		data:    make(map[string]string),
		created: time.Now().UTC(),
		fresh:   true,
	}
}

func (sm *SessionManager) key(id string) string {
	return sm.cookieName + ":" + id
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		// Lax keeps the cookie on the top-level redirect back from login.
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Session) fields() (map[string]any, error) {
	out := make(map[string]any, len(s.data)+3)
	for k, v := range s.data {
		out[k] = v
	}
	if s.created.IsZero() {
		s.created = time.Now().UTC()
	}
	out[fieldCreated] = s.created.Format(time.RFC3339)
	if s.userID != "" {
		out[fieldUser] = s.userID
	}
	if len(s.flashes) > 0 {
		raw, err := json.Marshal(s.flashes)
		if err != nil {
			return nil, err
		}
		out[fieldFlashes] = string(raw)
	}
	return out, nil
}

// Set stores a value. Keys starting with an underscore are reserved and
// ignored.
func (s *Session) Set(key, value string) {
	if strings.HasPrefix(key, "_") {
		return
	}
	if s.data == nil {
		s.data = make(map[string]string)
	}
	s.data[key] = value
	s.changed = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.data[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.changed = true
	}
}

// Pull returns a value and removes it from the session.
func (s *Session) Pull(key string) string {
	value := s.Get(key)
	s.Delete(key)
	return value
}

// SetUser associates the session with a user ID.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.changed = true
}

// User returns the current user ID, empty for guests.
func (s *Session) User() string {
	return s.userID
}

// CreatedAt reports when the session was first started.
func (s *Session) CreatedAt() time.Time {
	return s.created
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.changed = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.changed = true
	return &msg
}
