package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"car-showcase/internal/core/auth"
	"car-showcase/internal/identity"
)

// Provider 身份提供方操作面（identity.Client 实现）
type Provider interface {
	SignUp(ctx context.Context, email, password, role string) (*identity.Session, error)
	SignIn(ctx context.Context, email, password string) (*identity.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedUp  EventKind = "signed_up"
	EventSignedOut EventKind = "signed_out"
	EventRefreshed EventKind = "refreshed"
)

// Event 会话变更通知，登录/登出/刷新各发一次
type Event struct {
	SID     string
	Kind    EventKind
	Session *identity.Session
}

// Store 按浏览器 sid 维护身份会话。唯一会改会话状态的地方；
// 其它组件（API 客户端、页面）只读。
type Store struct {
	provider Provider
	backend  Backend
	ttl      time.Duration
	log      *zap.Logger
	verifier *auth.Verifier

	mu     sync.RWMutex
	subs   map[int]func(Event)
	nextID int

	// 同一 sid 的并发刷新合并成一次回源
	sf singleflight.Group
}

func NewStore(p Provider, b Backend, ttl time.Duration, log *zap.Logger) *Store {
	return &Store{
		provider: p,
		backend:  b,
		ttl:      ttl,
		log:      log,
		subs:     map[int]func(Event){},
	}
}

// WithVerifier 配置了 JWT secret 时启用：从后端读出的 access token
// 先验签，通不过的按过期处理走刷新
func (s *Store) WithVerifier(v *auth.Verifier) *Store {
	s.verifier = v
	return s
}

// Subscribe 注册变更回调，返回注销函数。调用方负责在自身销毁时注销。
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(e Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}

// Get 取当前会话；access token 过期时透明刷新。没有会话返回 (nil, nil)。
func (s *Store) Get(ctx context.Context, sid string) (*identity.Session, error) {
	if sid == "" {
		return nil, nil
	}
	sess, err := s.backend.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.AccessToken == "" {
		return nil, nil
	}
	if !sess.Expired(time.Now()) && s.tokenOK(sess.AccessToken) {
		return sess, nil
	}
	return s.refresh(ctx, sid)
}

// tokenOK 验签通过（或没配 verifier）才信任后端里的 token
func (s *Store) tokenOK(tok string) bool {
	if s.verifier == nil {
		return true
	}
	if _, err := s.verifier.Parse(tok); err != nil {
		s.log.Warn("stored access token failed verification", zap.Error(err))
		return false
	}
	return true
}

func (s *Store) refresh(ctx context.Context, sid string) (*identity.Session, error) {
	v, err, _ := s.sf.Do(sid, func() (any, error) {
		// 并发下可能已被别的请求刷新过，先复查
		cur, err := s.backend.Get(ctx, sid)
		if err != nil {
			return nil, err
		}
		if cur == nil || cur.AccessToken == "" {
			return (*identity.Session)(nil), nil
		}
		if !cur.Expired(time.Now()) && s.tokenOK(cur.AccessToken) {
			return cur, nil
		}
		fresh, err := s.provider.Refresh(ctx, cur.RefreshToken)
		if err != nil {
			if _, expected := identity.AsAuthError(err); expected {
				// refresh token 已失效：会话作废，当成未登录
				_ = s.backend.Del(ctx, sid)
				s.notify(Event{SID: sid, Kind: EventSignedOut})
				return (*identity.Session)(nil), nil
			}
			return nil, err
		}
		if err := s.backend.Put(ctx, sid, fresh, s.ttl); err != nil {
			return nil, err
		}
		s.notify(Event{SID: sid, Kind: EventRefreshed, Session: fresh})
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	sess, _ := v.(*identity.Session)
	return sess, nil
}

// SignIn 密码登录成功后落库并通知。预期失败（坏凭据）原样返回 *identity.AuthError。
func (s *Store) SignIn(ctx context.Context, sid, email, password string) (*identity.Session, error) {
	sess, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.backend.Put(ctx, sid, sess, s.ttl); err != nil {
		return nil, err
	}
	s.notify(Event{SID: sid, Kind: EventSignedIn, Session: sess})
	return sess, nil
}

// SignUp 注册；开启邮箱确认时对端不返回 token，此时不落会话
func (s *Store) SignUp(ctx context.Context, sid, email, password, role string) (*identity.Session, error) {
	sess, err := s.provider.SignUp(ctx, email, password, role)
	if err != nil {
		return nil, err
	}
	if sess.AccessToken != "" {
		if err := s.backend.Put(ctx, sid, sess, s.ttl); err != nil {
			return nil, err
		}
		s.notify(Event{SID: sid, Kind: EventSignedUp, Session: sess})
	}
	return sess, nil
}

// SignOut 通知对端注销并清掉本地会话。完成后 Role 回到未登录缺省值。
func (s *Store) SignOut(ctx context.Context, sid string) error {
	sess, err := s.backend.Get(ctx, sid)
	if err != nil {
		return err
	}
	if sess != nil && sess.AccessToken != "" {
		// 对端注销失败不阻断本地登出
		if err := s.provider.SignOut(ctx, sess.AccessToken); err != nil {
			s.log.Warn("provider sign-out failed", zap.Error(err))
		}
	}
	if err := s.backend.Del(ctx, sid); err != nil {
		return err
	}
	s.notify(Event{SID: sid, Kind: EventSignedOut})
	return nil
}

// Role 读当前会话角色，未登录为 "user"
func (s *Store) Role(ctx context.Context, sid string) string {
	sess, err := s.Get(ctx, sid)
	if err != nil {
		return "user"
	}
	return sess.Role()
}
