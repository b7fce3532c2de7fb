package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/DingWH03/uchat-sub000/config"
	"github.com/DingWH03/uchat-sub000/internal/adapter/pubsub"
	"github.com/DingWH03/uchat-sub000/internal/domain/model"
	"github.com/DingWH03/uchat-sub000/internal/domain/registry"
	"github.com/DingWH03/uchat-sub000/internal/handler/ws"
	"github.com/DingWH03/uchat-sub000/internal/media"
	"github.com/DingWH03/uchat-sub000/internal/metrics"
	"github.com/DingWH03/uchat-sub000/internal/roster"
	"github.com/DingWH03/uchat-sub000/internal/service"
	"github.com/DingWH03/uchat-sub000/internal/store"
)

type restFixture struct {
	st       *store.MemoryStore
	reg      *registry.MemoryRegistry
	senders  *registry.SenderStore
	auth     *service.AuthService
	mediaDir string
	srv      *httptest.Server
}

func newRESTFixture(t *testing.T) *restFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	noop := metrics.NoopCollector{}

	st := store.NewMemoryStore()
	reg := registry.NewMemoryRegistry()
	senders := registry.NewSenderStore()
	resolver := roster.NewRoster(roster.NewLRUCache(), st, st, logger, noop)

	b := pubsub.NewBus(watermill.NopLogger{})
	t.Cleanup(func() { _ = b.Close() })
	presence := service.NewPresenceService(pubsub.NewEventDispatcher(b.Publisher()), logger, noop)

	delivery := service.NewDeliveryService(reg, senders, resolver, logger, noop)
	pipeline := service.NewMessagePipeline(reg, st, delivery, pubsub.NewDisabledExporter(), logger, noop)
	auth := service.NewAuthService(st, st, st, reg, senders, resolver, presence, logger, noop)

	mediaDir := t.TempDir()
	objects, err := media.NewLocalStore(mediaDir, "/static")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Server.MailboxSize = 16

	mw := NewMiddleware(reg, logger)
	router := NewRouter(
		cfg,
		mw,
		NewAuthHandler(auth, logger),
		NewFriendHandler(st, st, reg, resolver, logger),
		NewGroupHandler(st, resolver, logger),
		NewMessageHandler(st, logger),
		NewManagerHandler(st, st, reg, auth, logger),
		NewAvatarHandler(st, objects, logger),
		ws.NewWSHandler(reg, senders, pipeline, auth, logger, noop, cfg.Server.MailboxSize),
		prometheus.NewRegistry(),
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &restFixture{st: st, reg: reg, senders: senders, auth: auth, mediaDir: mediaDir, srv: srv}
}

// request performs one round trip and decodes the envelope every endpoint
// answers with.
func (f *restFixture) request(t *testing.T, method, target, sid, contentType string, body io.Reader) (*http.Response, Envelope) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+target, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: ws.SessionCookie, Value: sid})
	}

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func (f *restFixture) doJSON(t *testing.T, method, target, sid string, payload any) (*http.Response, Envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return f.request(t, method, target, sid, "application/json", body)
}

func (f *restFixture) registerAndLogin(t *testing.T, name string) (uint32, string) {
	t.Helper()
	ctx := context.Background()
	id, err := f.auth.Register(ctx, name, "pw")
	require.NoError(t, err)
	sid, err := f.auth.Login(ctx, id, "pw", "")
	require.NoError(t, err)
	return id, sid
}

// loginAdmin seeds an admin row directly; registration only hands out the
// user role.
func (f *restFixture) loginAdmin(t *testing.T) (uint32, string) {
	t.Helper()
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	id, err := f.st.CreateUser(ctx, "root", string(hash), model.RoleAdmin)
	require.NoError(t, err)
	sid, err := f.auth.Login(ctx, id, "pw", "")
	require.NoError(t, err)
	return id, sid
}

// dataAs reprojects the envelope's data field onto a concrete type.
func dataAs(t *testing.T, env Envelope, out any) {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func requireOK(t *testing.T, resp *http.Response, env Envelope) {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Status)
	require.Equal(t, uint16(http.StatusOK), env.Code)
}

func requireEnvelopeError(t *testing.T, resp *http.Response, env Envelope, code int) {
	t.Helper()
	assert.Equal(t, code, resp.StatusCode)
	assert.False(t, env.Status)
	assert.Equal(t, uint16(code), env.Code)
}

func TestHealthz(t *testing.T) {
	f := newRESTFixture(t)
	resp, env := f.request(t, http.MethodGet, "/healthz", "", "", nil)
	requireOK(t, resp, env)
}

func TestRegisterLoginCheckSession(t *testing.T) {
	f := newRESTFixture(t)

	resp, env := f.doJSON(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice",
		"password": "secret",
	})
	requireOK(t, resp, env)
	var id uint32
	dataAs(t, env, &id)
	require.NotZero(t, id)

	resp, env = f.doJSON(t, http.MethodPost, "/auth/login", "", map[string]any{
		"userid":   id,
		"password": "secret",
	})
	requireOK(t, resp, env)
	var sid string
	dataAs(t, env, &sid)
	require.NotEmpty(t, sid)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == ws.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "login must set the session cookie")
	assert.Equal(t, sid, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	resp, env = f.request(t, http.MethodGet, "/auth/check_session", sid, "", nil)
	requireOK(t, resp, env)
	var check struct {
		Role model.Role `json:"role"`
	}
	dataAs(t, env, &check)
	assert.Equal(t, model.RoleUser, check.Role)
}

func TestLoginFailuresWearTheEnvelope(t *testing.T) {
	f := newRESTFixture(t)
	id, _ := f.registerAndLogin(t, "alice")

	resp, env := f.doJSON(t, http.MethodPost, "/auth/login", "", map[string]any{
		"userid":   id,
		"password": "wrong",
	})
	requireEnvelopeError(t, resp, env, http.StatusUnauthorized)
	assert.Equal(t, "unauthenticated", env.Message)

	resp, env = f.doJSON(t, http.MethodPost, "/auth/login", "", map[string]any{
		"userid":   uint32(4242),
		"password": "pw",
	})
	requireEnvelopeError(t, resp, env, http.StatusNotFound)
}

func TestSessionGateRejectsAnonymous(t *testing.T) {
	f := newRESTFixture(t)

	resp, env := f.request(t, http.MethodGet, "/friend/list", "", "", nil)
	requireEnvelopeError(t, resp, env, http.StatusUnauthorized)

	resp, env = f.request(t, http.MethodGet, "/friend/list", "stale-session", "", nil)
	requireEnvelopeError(t, resp, env, http.StatusUnauthorized)
}

func TestLogoutEndsTheSession(t *testing.T) {
	f := newRESTFixture(t)
	_, sid := f.registerAndLogin(t, "alice")

	resp, env := f.doJSON(t, http.MethodPost, "/auth/logout", sid, nil)
	requireOK(t, resp, env)

	var cleared *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == ws.SessionCookie {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	resp, env = f.request(t, http.MethodGet, "/auth/check_session", sid, "", nil)
	requireEnvelopeError(t, resp, env, http.StatusUnauthorized)
}

func TestChangeOwnPassword(t *testing.T) {
	f := newRESTFixture(t)
	id, sid := f.registerAndLogin(t, "alice")

	resp, env := f.doJSON(t, http.MethodPost, "/auth/password", sid, map[string]any{
		"old_password": "pw",
		"new_password": "better",
	})
	requireOK(t, resp, env)

	_, err := f.auth.Login(context.Background(), id, "pw", "")
	require.ErrorIs(t, err, model.ErrUnauthenticated)
	_, err = f.auth.Login(context.Background(), id, "better", "")
	require.NoError(t, err)
}

func TestFriendLifecycle(t *testing.T) {
	f := newRESTFixture(t)
	_, sidA := f.registerAndLogin(t, "alice")
	bob, _ := f.registerAndLogin(t, "bob")

	resp, env := f.doJSON(t, http.MethodPost, "/friend/add", sidA, map[string]uint32{"id": bob})
	requireOK(t, resp, env)

	resp, env = f.request(t, http.MethodGet, "/friend/list", sidA, "", nil)
	requireOK(t, resp, env)
	var friends []model.UserSummary
	dataAs(t, env, &friends)
	require.Len(t, friends, 1)
	assert.Equal(t, bob, friends[0].ID)
	assert.Equal(t, "bob", friends[0].Username)

	resp, env = f.request(t, http.MethodGet, fmt.Sprintf("/friend/info?id=%d", bob), sidA, "", nil)
	requireOK(t, resp, env)
	var info model.UserSummary
	dataAs(t, env, &info)
	assert.Equal(t, "bob", info.Username)

	resp, env = f.doJSON(t, http.MethodPost, "/friend/delete", sidA, map[string]uint32{"id": bob})
	requireOK(t, resp, env)

	resp, env = f.request(t, http.MethodGet, "/friend/list", sidA, "", nil)
	requireOK(t, resp, env)
	friends = nil
	dataAs(t, env, &friends)
	assert.Empty(t, friends)
}

func TestFriendAddValidation(t *testing.T) {
	f := newRESTFixture(t)
	alice, sid := f.registerAndLogin(t, "alice")

	resp, env := f.doJSON(t, http.MethodPost, "/friend/add", sid, map[string]uint32{"id": alice})
	requireEnvelopeError(t, resp, env, http.StatusBadRequest)

	resp, env = f.doJSON(t, http.MethodPost, "/friend/add", sid, map[string]uint32{"id": 9999})
	requireEnvelopeError(t, resp, env, http.StatusNotFound)
}

func TestFriendStatusReportsRegistryPresence(t *testing.T) {
	f := newRESTFixture(t)
	_, sidA := f.registerAndLogin(t, "alice")
	bob, _ := f.registerAndLogin(t, "bob")
	carol, err := f.auth.Register(context.Background(), "carol", "pw")
	require.NoError(t, err)

	resp, env := f.doJSON(t, http.MethodPost, "/friend/status", sidA, map[string][]uint32{
		"user_ids": {bob, carol},
	})
	requireOK(t, resp, env)

	var statuses []struct {
		UserID uint32 `json:"user_id"`
		Online bool   `json:"online"`
	}
	dataAs(t, env, &statuses)
	require.Len(t, statuses, 2)
	assert.Equal(t, bob, statuses[0].UserID)
	assert.True(t, statuses[0].Online, "bob holds a session")
	assert.Equal(t, carol, statuses[1].UserID)
	assert.False(t, statuses[1].Online, "carol never logged in")
}

func TestGroupLifecycle(t *testing.T) {
	f := newRESTFixture(t)
	alice, sidA := f.registerAndLogin(t, "alice")
	bob, sidB := f.registerAndLogin(t, "bob")

	resp, env := f.doJSON(t, http.MethodPost, "/group/new", sidA, map[string]string{"name": "room"})
	requireOK(t, resp, env)
	var gid uint32
	dataAs(t, env, &gid)
	require.NotZero(t, gid)

	resp, env = f.doJSON(t, http.MethodPost, "/group/join", sidB, map[string]uint32{"id": gid})
	requireOK(t, resp, env)

	resp, env = f.request(t, http.MethodGet, fmt.Sprintf("/group/members?id=%d", gid), sidA, "", nil)
	requireOK(t, resp, env)
	var members []uint32
	dataAs(t, env, &members)
	assert.ElementsMatch(t, []uint32{alice, bob}, members)

	resp, env = f.request(t, http.MethodGet, "/group/list", sidB, "", nil)
	requireOK(t, resp, env)
	var groups []model.Group
	dataAs(t, env, &groups)
	require.Len(t, groups, 1)
	assert.Equal(t, "room", groups[0].Name)
	assert.Equal(t, alice, groups[0].CreatorID)

	resp, env = f.doJSON(t, http.MethodPost, "/group/leave", sidB, map[string]uint32{"id": gid})
	requireOK(t, resp, env)

	resp, env = f.request(t, http.MethodGet, fmt.Sprintf("/group/members?id=%d", gid), sidA, "", nil)
	requireOK(t, resp, env)
	members = nil
	dataAs(t, env, &members)
	assert.Equal(t, []uint32{alice}, members)
}

func TestGroupJoinUnknownGroup(t *testing.T) {
	f := newRESTFixture(t)
	_, sid := f.registerAndLogin(t, "alice")

	resp, env := f.doJSON(t, http.MethodPost, "/group/join", sid, map[string]uint32{"id": 777})
	requireEnvelopeError(t, resp, env, http.StatusNotFound)
}

func TestPrivateHistoryEndpoints(t *testing.T) {
	f := newRESTFixture(t)
	ctx := context.Background()
	alice, sid := f.registerAndLogin(t, "alice")
	bob, _ := f.registerAndLogin(t, "bob")

	_, ts1, err := f.st.InsertPrivateMessage(ctx, alice, bob, model.MessageText, "first")
	require.NoError(t, err)
	_, ts2, err := f.st.InsertPrivateMessage(ctx, bob, alice, model.MessageText, "second")
	require.NoError(t, err)

	resp, env := f.request(t, http.MethodGet, fmt.Sprintf("/message/user?id=%d", bob), sid, "", nil)
	requireOK(t, resp, env)
	var page []model.PrivateMessage
	dataAs(t, env, &page)
	require.Len(t, page, 2)
	assert.Equal(t, "first", page[0].Body)
	assert.Equal(t, "second", page[1].Body)

	resp, env = f.request(t, http.MethodGet, fmt.Sprintf("/message/user/latest?id=%d", bob), sid, "", nil)
	requireOK(t, resp, env)
	var latest int64
	dataAs(t, env, &latest)
	assert.Equal(t, ts2, latest)

	resp, env = f.request(t, http.MethodGet, fmt.Sprintf("/message/user/after?id=%d&timestamp=%d", bob, ts1), sid, "", nil)
	requireOK(t, resp, env)
	var tail []model.PrivateMessage
	dataAs(t, env, &tail)
	require.Len(t, tail, 1)
	assert.Equal(t, "second", tail[0].Body)

	// Missing peer parameter is a client error.
	resp, env = f.request(t, http.MethodGet, "/message/user", sid, "", nil)
	requireEnvelopeError(t, resp, env, http.StatusBadRequest)
}

func TestGroupHistoryEndpoints(t *testing.T) {
	f := newRESTFixture(t)
	ctx := context.Background()
	alice, sid := f.registerAndLogin(t, "alice")
	gid, err := f.st.CreateGroup(ctx, "room", alice)
	require.NoError(t, err)

	_, ts, err := f.st.InsertGroupMessage(ctx, gid, alice, model.MessageText, "hello room")
	require.NoError(t, err)

	resp, env := f.request(t, http.MethodGet, fmt.Sprintf("/message/group?id=%d", gid), sid, "", nil)
	requireOK(t, resp, env)
	var page []model.GroupMessage
	dataAs(t, env, &page)
	require.Len(t, page, 1)
	assert.Equal(t, "hello room", page[0].Body)

	resp, env = f.request(t, http.MethodGet, fmt.Sprintf("/message/group/latest?id=%d", gid), sid, "", nil)
	requireOK(t, resp, env)
	var latest int64
	dataAs(t, env, &latest)
	assert.Equal(t, ts, latest)
}

func TestManagerRequiresAdminRole(t *testing.T) {
	f := newRESTFixture(t)
	_, sid := f.registerAndLogin(t, "alice")

	resp, env := f.request(t, http.MethodGet, "/manager/users", sid, "", nil)
	requireEnvelopeError(t, resp, env, http.StatusForbidden)

	_, adminSID := f.loginAdmin(t)
	resp, env = f.request(t, http.MethodGet, "/manager/users", adminSID, "", nil)
	requireOK(t, resp, env)
	var users []model.User
	dataAs(t, env, &users)
	require.Len(t, users, 2)
}

func TestManagerPrivateMessageLookupAndDelete(t *testing.T) {
	f := newRESTFixture(t)
	ctx := context.Background()
	alice, _ := f.registerAndLogin(t, "alice")
	bob, _ := f.registerAndLogin(t, "bob")
	_, adminSID := f.loginAdmin(t)

	id, _, err := f.st.InsertPrivateMessage(ctx, alice, bob, model.MessageText, "evidence")
	require.NoError(t, err)

	resp, env := f.request(t, http.MethodGet, fmt.Sprintf("/manager/message/privite?message_id=%d", id), adminSID, "", nil)
	requireOK(t, resp, env)
	var msg model.PrivateMessage
	dataAs(t, env, &msg)
	assert.Equal(t, "evidence", msg.Body)
	assert.Equal(t, alice, msg.SenderID)

	resp, env = f.request(t, http.MethodDelete, fmt.Sprintf("/manager/message/privite?message_id=%d", id), adminSID, "", nil)
	requireOK(t, resp, env)

	resp, env = f.request(t, http.MethodGet, fmt.Sprintf("/manager/message/privite?message_id=%d", id), adminSID, "", nil)
	requireEnvelopeError(t, resp, env, http.StatusNotFound)
}

func TestManagerOnlineTree(t *testing.T) {
	f := newRESTFixture(t)
	alice, _ := f.registerAndLogin(t, "alice")
	_, adminSID := f.loginAdmin(t)

	resp, env := f.request(t, http.MethodGet, "/manager/online", adminSID, "", nil)
	requireOK(t, resp, env)
	var tree map[uint32][]model.SessionEntry
	dataAs(t, env, &tree)
	require.Contains(t, tree, alice)
	assert.Len(t, tree[alice], 1)
}

func TestManagerClearSessions(t *testing.T) {
	f := newRESTFixture(t)
	_, sid := f.registerAndLogin(t, "alice")
	_, adminSID := f.loginAdmin(t)

	resp, env := f.request(t, http.MethodDelete, "/manager/sessions", adminSID, "", nil)
	requireOK(t, resp, env)

	resp, env = f.request(t, http.MethodGet, "/auth/check_session", sid, "", nil)
	requireEnvelopeError(t, resp, env, http.StatusUnauthorized)
	assert.Zero(t, f.senders.Len())
}

func TestManagerDeleteUserCascades(t *testing.T) {
	f := newRESTFixture(t)
	ctx := context.Background()
	alice, sidA := f.registerAndLogin(t, "alice")
	_, adminSID := f.loginAdmin(t)

	resp, env := f.request(t, http.MethodDelete, fmt.Sprintf("/manager/user?user_id=%d", alice), adminSID, "", nil)
	requireOK(t, resp, env)

	_, err := f.st.UserByID(ctx, alice)
	require.ErrorIs(t, err, model.ErrNotFound)

	// The victim's session died with the account.
	resp, env = f.request(t, http.MethodGet, "/auth/check_session", sidA, "", nil)
	requireEnvelopeError(t, resp, env, http.StatusUnauthorized)
}

func multipartFile(t *testing.T, field, filename, contentType string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAvatarUploadRoundTrip(t *testing.T) {
	f := newRESTFixture(t)
	alice, sid := f.registerAndLogin(t, "alice")

	payload := []byte("png-bytes")
	body, contentType := multipartFile(t, "file", "me.png", "image/png", payload)
	resp, env := f.request(t, http.MethodPost, "/user/avatar", sid, contentType, body)
	requireOK(t, resp, env)

	var data struct {
		AvatarURL string `json:"avatar_url"`
	}
	dataAs(t, env, &data)
	prefix := fmt.Sprintf("/static/avatars/%d/", alice)
	require.True(t, strings.HasPrefix(data.AvatarURL, prefix), "got %q", data.AvatarURL)
	assert.True(t, strings.HasSuffix(data.AvatarURL, ".png"))

	// The object landed on disk and the account row points at it.
	rel := strings.TrimPrefix(data.AvatarURL, "/static/")
	stored, err := os.ReadFile(filepath.Join(f.mediaDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, payload, stored)

	u, err := f.st.UserByID(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, data.AvatarURL, u.AvatarURL)
}

func TestAvatarUploadRejectsUnknownType(t *testing.T) {
	f := newRESTFixture(t)
	_, sid := f.registerAndLogin(t, "alice")

	body, contentType := multipartFile(t, "file", "notes.txt", "text/plain", []byte("hi"))
	resp, env := f.request(t, http.MethodPost, "/user/avatar", sid, contentType, body)
	requireEnvelopeError(t, resp, env, http.StatusBadRequest)
}
