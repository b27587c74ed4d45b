package proxy

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/auth"
	"github.com/xenoncommunity/xenon/pkg/netmc"
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/cookie"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/proxy/message"
	"github.com/xenoncommunity/xenon/pkg/util/netutil"
	"github.com/xenoncommunity/xenon/pkg/util/profile"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
	"github.com/xenoncommunity/xenon/pkg/util/validation"
)

// next returns the phase following p on the login path.
// Encryption only happens in online mode.
func (p loginPhase) next(onlineMode bool) loginPhase {
	switch p {
	case phaseHandshake:
		return phaseUsername
	case phaseUsername:
		if onlineMode {
			return phaseEncrypt
		}
		return phaseFinishing
	case phaseEncrypt:
		return phaseFinishing
	}
	return p
}

type loginSessionHandler struct {
	ps  *pendingSession
	log logr.Logger

	verifyToken []byte

	nopSessionHandler
}

func newLoginSessionHandler(ps *pendingSession) netmc.SessionHandler {
	return &loginSessionHandler{
		ps:  ps,
		log: logr.FromContextOrDiscard(ps.conn.Context()).WithName("login"),
	}
}

func (l *loginSessionHandler) proxy() *Proxy { return l.ps.proxy }

func (l *loginSessionHandler) HandlePacket(pc *proto.PacketContext) {
	if netmc.Closed(l.ps.conn) {
		return
	}
	switch p := pc.Packet.(type) {
	case *packet.ServerLogin:
		if l.ps.phase != phaseUsername || l.ps.username != "" {
			l.violation("not expecting username")
			return
		}
		l.handleServerLogin(p)
	case *packet.EncryptionResponse:
		if l.ps.phase != phaseEncrypt || l.verifyToken == nil {
			l.violation("not expecting encryption response")
			return
		}
		l.handleEncryptionResponse(p)
	case *cookie.Response:
		// The proxy requests no cookies before a player exists.
	default:
		l.violation("unexpected packet")
	}
}

// violation kicks a login connection that sent a packet invalid for its phase.
func (l *loginSessionHandler) violation(reason string) {
	l.log.V(1).Info("protocol violation", "phase", l.ps.phase, "reason", reason)
	l.disconnect(message.InternalConnectionError)
}

func (l *loginSessionHandler) disconnect(key message.Key, args ...any) {
	l.disconnectWith(l.proxy().messages.Component("", key, args...))
}

func (l *loginSessionHandler) disconnectWith(reason component.Component) {
	_ = netmc.CloseWith(l.ps.conn, packet.NewLoginDisconnect(reason))
}

func (l *loginSessionHandler) handleServerLogin(login *packet.ServerLogin) {
	p := l.proxy()
	cfg := p.config()
	l.ps.username = login.Username
	l.ps.onlineMode = cfg.OnlineMode
	l.ps.playerKey = login.PlayerKey
	l.ps.holderID = login.HolderID

	if !validation.ValidUsername(login.Username, cfg.OnlineMode) {
		l.disconnect(message.NameInvalid)
		return
	}

	protocol := l.ps.protocol
	if cfg.EnforceSecureProfile && protocol.Lower(version.Minecraft_1_19_3) {
		if protocol.Lower(version.Minecraft_1_19) {
			l.disconnect(message.SecureProfileUnsupport)
			return
		}
		key := login.PlayerKey
		if key == nil {
			l.disconnect(message.SecureProfileRequired)
			return
		}
		if key.Expired() {
			l.disconnect(message.SecureProfileExpired)
			return
		}
		if protocol.Lower(version.Minecraft_1_19_1) {
			// Fetching the signers may block.
			go func() {
				signers, err := p.signers.Signers(l.ps.conn.Context())
				_ = l.ps.conn.Executor().Post(func() {
					if err != nil || !key.Verify(uuid.Nil, signers...) {
						if err != nil {
							l.log.Error(err, "could not fetch profile key signers")
						}
						l.disconnect(message.SecureProfileInvalid)
						return
					}
					l.checkCapacity()
				})
			}()
			return
		}
	}
	l.checkCapacity()
}

func (l *loginSessionHandler) checkCapacity() {
	p := l.proxy()
	cfg := p.config()
	if limit := cfg.PlayerLimit; limit > 0 && p.PlayerCount() >= limit {
		l.disconnect(message.ProxyFull)
		return
	}
	// Offline ids derive from the name so the id check covers both.
	if !cfg.OnlineMode && p.PlayerByID(uuid.OfflinePlayerUUID(l.ps.username)) != nil {
		l.disconnect(message.AlreadyConnectedProxy)
		return
	}
	l.firePreLogin()
}

func (l *loginSessionHandler) firePreLogin() {
	p := l.proxy()
	e := &PreLoginEvent{
		inbound:    l.ps,
		username:   l.ps.username,
		onlineMode: l.ps.onlineMode,
	}
	go func() {
		p.event.Fire(e)
		_ = l.ps.conn.Executor().Post(func() {
			if netmc.Closed(l.ps.conn) {
				return
			}
			if e.Cancelled() {
				l.denied(e.Reason())
				return
			}
			l.ps.onlineMode = e.OnlineMode()
			l.ps.phase = l.ps.phase.next(l.ps.onlineMode)
			if l.ps.phase == phaseEncrypt {
				l.sendEncryptionRequest()
				return
			}
			l.ps.profile = profile.NewOffline(l.ps.username)
			l.finish()
		})
	}()
}

func (l *loginSessionHandler) denied(reason component.Component) {
	if reason == nil {
		reason = l.proxy().messages.Component("", message.KickMessage)
	}
	l.disconnectWith(reason)
}

func (l *loginSessionHandler) sendEncryptionRequest() {
	l.verifyToken = make([]byte, 4)
	_, _ = rand.Read(l.verifyToken)
	_ = l.ps.conn.WritePacket(&packet.EncryptionRequest{
		PublicKey:          l.proxy().authenticator.PublicKey(),
		VerifyToken:        l.verifyToken,
		ShouldAuthenticate: true,
	})
}

func (l *loginSessionHandler) handleEncryptionResponse(res *packet.EncryptionResponse) {
	p := l.proxy()
	authn := p.authenticator

	if !l.verify(res) {
		_ = l.ps.conn.Close()
		return
	}
	l.ps.phase = l.ps.phase.next(true)

	secret, err := authn.DecryptSharedSecret(res.SharedSecret)
	if err != nil || len(secret) != 16 {
		l.log.V(1).Info("invalid shared secret", "error", err, "length", len(secret))
		_ = l.ps.conn.Close()
		return
	}
	if err = l.ps.conn.EnableEncryption(secret); err != nil {
		l.log.Error(err, "error enabling encryption")
		_ = l.ps.conn.Close()
		return
	}
	hash, err := authn.GenerateServerID("", secret)
	if err != nil {
		l.log.Error(err, "error generating server id")
		_ = l.ps.conn.Close()
		return
	}

	var ip string
	if p.config().PreventProxyConnections {
		ip = netutil.Host(l.ps.RemoteAddr())
	}

	username := l.ps.username
	ctx := l.ps.conn.Context()
	go func() {
		gp, err := authn.AuthenticateJoin(ctx, hash, username, ip)
		_ = l.ps.conn.Executor().Post(func() {
			if netmc.Closed(l.ps.conn) {
				return
			}
			switch {
			case errors.Is(err, auth.ErrNotFound):
				l.disconnect(message.OfflineModePlayer)
			case err != nil:
				if !errors.Is(err, context.Canceled) {
					l.log.Error(err, "error authenticating player with session server", "username", username)
				}
				l.disconnect(message.MojangFail)
			case gp == nil || gp.ID == uuid.Nil:
				l.disconnect(message.OfflineModePlayer)
			default:
				l.ps.username = gp.Name
				l.ps.profile = gp
				l.finish()
			}
		})
	}()
}

// verify checks the verify token of res, or the nonce signature of 1.19 clients
// signing with their profile key.
func (l *loginSessionHandler) verify(res *packet.EncryptionResponse) bool {
	if res.Salt != nil {
		return l.ps.playerKey.VerifyNonce(l.verifyToken, *res.Salt, res.VerifyToken)
	}
	ok, err := l.proxy().authenticator.Verify(res.VerifyToken, l.verifyToken)
	if err != nil {
		l.log.V(1).Info("could not verify token", "error", err)
		return false
	}
	return ok
}

// identities returns the offline, authenticated and rewrite id of a login.
func identities(name string, gp *profile.GameProfile, ipForward bool) (offline, authID, rewrite uuid.UUID) {
	offline = uuid.OfflinePlayerUUID(name)
	authID = offline
	if gp != nil && gp.ID != uuid.Nil {
		authID = gp.ID
	}
	rewrite = offline
	if ipForward {
		rewrite = authID
	}
	return
}

func (l *loginSessionHandler) finish() {
	p := l.proxy()
	cfg := p.config()
	if l.ps.profile == nil {
		l.ps.profile = profile.NewOffline(l.ps.username)
	}
	offlineID, authID, rewriteID := identities(l.ps.username, l.ps.profile, cfg.IPForward)
	l.ps.profile.ID = authID
	checkKey := cfg.EnforceSecureProfile && l.ps.protocol.Between(version.Minecraft_1_19_1, version.Minecraft_1_19_3)
	ctx := l.ps.conn.Context()

	// Key signers, hooks and the reconnect lookup may block.
	go func() {
		var keyErr error
		if checkKey {
			keyErr = l.verifyLinkedKey(ctx, authID)
		}
		var (
			e          *LoginEvent
			lastServer *RegisteredServer
			duplicate  = keyErr == nil && p.duplicate(l.ps.username, authID, l.ps.onlineMode)
		)
		if keyErr == nil && !duplicate {
			e = &LoginEvent{inbound: l.ps, profile: l.ps.profile}
			p.event.Fire(e)
			lastServer = p.lastServer(ctx, authID)
		}
		_ = l.ps.conn.Executor().Post(func() {
			if netmc.Closed(l.ps.conn) {
				return
			}
			switch {
			case keyErr != nil:
				l.log.V(1).Info("invalid profile key", "error", keyErr)
				l.disconnect(message.SecureProfileInvalid)
			case duplicate:
				l.disconnect(message.AlreadyConnectedProxy)
			case e.Cancelled():
				l.denied(e.Reason())
			default:
				l.initSession(offlineID, rewriteID, lastServer)
			}
		})
	}()
}

// verifyLinkedKey checks the key of a 1.19.1 or 1.19.2 client against the
// id it was issued for.
func (l *loginSessionHandler) verifyLinkedKey(ctx context.Context, authID uuid.UUID) error {
	key := l.ps.playerKey
	if key == nil {
		return errors.New("missing profile key")
	}
	if l.ps.holderID != uuid.Nil && l.ps.holderID != authID {
		return errors.New("profile key holder mismatch")
	}
	signers, err := l.proxy().signers.Signers(ctx)
	if err != nil {
		return fmt.Errorf("error fetching profile key signers: %w", err)
	}
	if !key.Verify(authID, signers...) {
		return errors.New("profile key signature mismatch")
	}
	return nil
}

func (l *loginSessionHandler) initSession(offlineID, rewriteID uuid.UUID, lastServer *RegisteredServer) {
	p := l.proxy()
	cfg := p.config()

	s := newSession(l.ps, offlineID, rewriteID)
	if !p.registerPlayer(s) {
		l.disconnect(message.AlreadyConnectedProxy)
		return
	}
	// From here on the session tears itself down when the connection closes.
	s.activate()

	if threshold := cfg.CompressionThreshold; threshold >= 0 && s.setCompression(threshold) {
		if err := l.ps.conn.WritePacket(&packet.SetCompression{Threshold: threshold}); err != nil {
			return
		}
		if err := l.ps.conn.SetCompressionThreshold(threshold); err != nil {
			l.log.Error(err, "error setting compression threshold")
			_ = l.ps.conn.Close()
			return
		}
	}

	if err := l.ps.conn.WritePacket(&packet.ServerLoginSuccess{
		UUID:       rewriteID,
		Username:   s.Username(),
		Properties: l.ps.profile.Properties,
	}); err != nil {
		return
	}
	if l.ps.protocol.Lower(version.Minecraft_1_20_2) {
		l.ps.conn.SetState(state.Play)
	}

	target := lastServer
	if target == nil {
		target = p.initialServer(l.ps.virtualHost)
	}

	e := &PostLoginEvent{player: s, target: target}
	go func() {
		p.event.Fire(e)
		_ = s.exec().Post(func() {
			if s.Closed() {
				return
			}
			if e.Target() == nil {
				s.Disconnect(p.messages.Component(s.Locale(), message.FallbackKick,
					p.messages.Sprintf(s.Locale(), message.NoServer)))
				return
			}
			s.Connect(&ConnectRequest{
				Target: e.Target(),
				Retry:  true,
				Reason: JoinProxy,
			})
		})
	}()
}
