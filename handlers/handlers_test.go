package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"picshelf/auth"
	"picshelf/integrity"
	"picshelf/models"
	"picshelf/query"
	"picshelf/storage"
	"picshelf/store"
	"picshelf/store/memstore"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProvider struct{}

func (fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (fakeProvider) Exchange(ctx context.Context, code string) (*auth.Profile, error) {
	return &auth.Profile{ID: "google-" + code, Email: code + "@example.com", Name: code}, nil
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	api    *API
	tokens *auth.Tokens
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := memstore.New()
	objects := storage.NewDiskStorage(&storage.Bucket{Name: "test", StorageType: storage.StorageTypeFile, Path: t.TempDir()})
	tokens, err := auth.NewTokens("handler tests", time.Hour)
	require.NoError(t, err)
	api := &API{
		Engine:         integrity.New(s, objects, zerolog.Nop()),
		Queries:        query.New(s),
		Objects:        objects,
		Gateway:        &auth.Gateway{Provider: fakeProvider{}, Owners: s.Owners(), Tokens: tokens},
		FrontendURL:    "http://frontend.test",
		MaxUploadBytes: 1 << 20,
		Log:            zerolog.Nop(),
	}
	engine := gin.New()
	engine.Use(sessions.Sessions("picshelf", cookie.NewStore([]byte("test key"))))
	api.Register(engine, &auth.Router{Base: engine, Tokens: tokens, Owners: s.Owners()})
	return &testServer{t: t, engine: engine, api: api, tokens: tokens}
}

// login goes through the OAuth flow and returns the issued token
func (s *testServer) login(name string) string {
	s.t.Helper()
	w := s.do(http.MethodGet, "/auth/google", "", nil, "")
	require.Equal(s.t, http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(s.t, err)
	state := location.Query().Get("state")
	require.NotEmpty(s.t, state)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code="+name+"&state="+state, nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(s.t, http.StatusFound, w.Code)
	redirect, err := url.Parse(w.Header().Get("Location"))
	require.NoError(s.t, err)
	assert.Equal(s.t, "/register", redirect.Path)
	token := redirect.Query().Get("token")
	require.NotEmpty(s.t, token)
	return token
}

func (s *testServer) do(method, path, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(method, path, token string, payload any, out any) int {
	s.t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		body = &bytes.Buffer{}
		require.NoError(s.t, json.NewEncoder(body).Encode(payload))
	}
	w := s.do(method, path, token, body, "application/json")
	if out != nil && w.Code == http.StatusOK {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w.Code
}

func (s *testServer) upload(token string, albumID models.ID, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(s.t, mw.WriteField(k, v))
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="image"; filename="photo.png"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := mw.CreatePart(h)
	require.NoError(s.t, err)
	_, err = part.Write(content)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())
	return s.do(http.MethodPost, "/albums/"+albumID.String()+"/images", token, body, mw.FormDataContentType())
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (s *testServer) createAlbum(token, name string) *models.Album {
	s.t.Helper()
	var album models.Album
	require.Equal(s.t, http.StatusOK, s.doJSON(http.MethodPost, "/albums", token, AlbumCreateRequest{Name: name}, &album))
	return &album
}

func (s *testServer) addImage(token string, albumID models.ID, tags string) *models.Image {
	s.t.Helper()
	w := s.upload(token, albumID, pngBytes(s.t), map[string]string{"tags": tags})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var r ImageUploadResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &r))
	return r.Image
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/profile", "/albums", "/images", "/users"} {
		var body Response
		w := s.do(http.MethodGet, path, "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Message)
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	token := s.login("alice")

	var profile ProfileResponse
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/profile", token, nil, &profile))
	assert.Equal(t, "alice@example.com", profile.User.Email)
	assert.Equal(t, "google-alice", profile.User.GoogleID)

	// Logging in again keeps the same owner
	again := s.login("alice")
	claims, err := s.tokens.Verify(again)
	require.NoError(t, err)
	assert.Equal(t, profile.User.OwnerID, claims.OwnerID)

	var owners []models.Owner
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/users", token, nil, &owners))
	assert.Len(t, owners, 1)
}

func TestLoginCallback_BadRequests(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/auth/google/callback", "", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/auth/google/callback?code=x&state=forged", "", nil, "").Code)
}

func TestAlbumLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice")
	bob := s.login("bob")

	album := s.createAlbum(alice, "Trip")
	assert.Equal(t, "Trip", album.Name)
	assert.Equal(t, http.StatusBadRequest, s.doJSON(http.MethodPost, "/albums", alice, map[string]string{}, nil))

	name := "Trip 2024"
	var updated models.Album
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodPost, "/albums/"+album.ID.String(), alice, AlbumUpdateRequest{Name: &name}, &updated))
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, http.StatusNotFound, s.doJSON(http.MethodPost, "/albums/"+album.ID.String(), bob, AlbumUpdateRequest{Name: &name}, nil))
	assert.Equal(t, http.StatusBadRequest, s.doJSON(http.MethodPost, "/albums/not-a-uuid", alice, AlbumUpdateRequest{Name: &name}, nil))

	// Bob only sees the album once it is shared with him
	var bobAlbums []query.AlbumView
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/albums", bob, nil, &bobAlbums))
	assert.Empty(t, bobAlbums)
	var shared models.Album
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodPost, "/albums/"+album.ID.String()+"/share", alice, AlbumShareRequest{Emails: []string{"bob@example.com"}}, &shared))
	assert.Equal(t, models.StringSet{"bob@example.com"}, shared.SharedWith)
	assert.Equal(t, http.StatusBadRequest, s.doJSON(http.MethodPost, "/albums/"+album.ID.String()+"/share", alice, AlbumShareRequest{Emails: []string{"alice@example.com"}}, nil))
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/albums", bob, nil, &bobAlbums))
	require.Len(t, bobAlbums, 1)
	assert.Equal(t, album.ID, bobAlbums[0].ID)

	// The unfiltered listing includes albums bob neither owns nor was shared
	bobOwn := s.createAlbum(bob, "Bob's")
	var all []query.AlbumView
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/albums/all", alice, nil, &all))
	ids := []models.ID{}
	for _, v := range all {
		ids = append(ids, v.ID)
	}
	assert.ElementsMatch(t, []models.ID{album.ID, bobOwn.ID}, ids)
	assert.Equal(t, http.StatusUnauthorized, s.doJSON(http.MethodGet, "/albums/all", "", nil, nil))

	// Only the owner deletes
	assert.Equal(t, http.StatusNotFound, s.doJSON(http.MethodDelete, "/albums/"+album.ID.String(), bob, nil, nil))
	assert.Equal(t, http.StatusOK, s.doJSON(http.MethodDelete, "/albums/"+album.ID.String(), alice, nil, nil))
	assert.Equal(t, http.StatusNotFound, s.doJSON(http.MethodDelete, "/albums/"+album.ID.String(), alice, nil, nil))
}

func TestRespondError(t *testing.T) {
	api := &API{Log: zerolog.Nop()}
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"UpdateFailedFromMissingDocument", &integrity.Error{Op: "addImage", Kind: integrity.UpdateFailed, Err: store.ErrNotFound}, http.StatusInternalServerError, "update failed"},
		{"OrphanFromMissingDocument", &integrity.Error{Op: "deleteImage", Kind: integrity.OrphanDetected, Err: store.ErrNotFound}, http.StatusInternalServerError, "orphan detected"},
		{"WrappedEngineError", errors.Wrap(&integrity.Error{Op: "deleteAlbum", Kind: integrity.UpdateFailed, Err: store.ErrNotFound}, "handler"), http.StatusInternalServerError, "update failed"},
		{"NotFound", &integrity.Error{Op: "updateAlbum", Kind: integrity.NotFound, Err: store.ErrNotFound}, http.StatusNotFound, ""},
		{"Forbidden", &integrity.Error{Op: "updateAlbum", Kind: integrity.Forbidden}, http.StatusNotFound, "not found"},
		{"InvalidInput", &integrity.Error{Op: "createAlbum", Kind: integrity.InvalidInput}, http.StatusBadRequest, ""},
		{"StoreNotFound", errors.Wrap(store.ErrNotFound, "loading image"), http.StatusNotFound, "not found"},
		{"Other", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			api.respondError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tc.message != "" {
				assert.Equal(t, tc.message, body.Message)
			}
		})
	}
}

func TestImages(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice")
	bob := s.login("bob")
	album := s.createAlbum(alice, "Trip")

	beach := s.addImage(alice, album.ID, "beach")
	city := s.addImage(alice, album.ID, "city")
	assert.Equal(t, "image/png", beach.MimeType)
	assert.Equal(t, album.ID, beach.AlbumID)

	var images []models.Image
	path := "/albums/" + album.ID.String() + "/images"
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, path+"?tags=beach,sunset", alice, nil, &images))
	require.Len(t, images, 1)
	assert.Equal(t, beach.ID, images[0].ID)
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, path, alice, nil, &images))
	assert.Len(t, images, 2)

	var albums []query.AlbumView
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/albums", alice, nil, &albums))
	require.Len(t, albums, 1)
	assert.Equal(t, []query.ImageRef{{ID: beach.ID, StorageRef: beach.StorageRef}, {ID: city.ID, StorageRef: city.StorageRef}}, albums[0].Images)

	favourite := true
	var updated models.Image
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodPost, path+"/"+beach.ID.String(), alice,
		ImageUpdateRequest{Favourite: &favourite, AddComments: []string{"lovely"}}, &updated))
	assert.True(t, updated.Favourite)
	assert.Equal(t, models.StringList{"lovely"}, updated.Comments)
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/images/favourites", alice, nil, &images))
	require.Len(t, images, 1)
	assert.Equal(t, beach.ID, images[0].ID)

	var single models.Image
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/images/"+city.ID.String(), alice, nil, &single))
	assert.Equal(t, city.StorageRef, single.StorageRef)
	assert.Equal(t, http.StatusNotFound, s.doJSON(http.MethodGet, "/images/"+models.NewID().String(), alice, nil, nil))

	w := s.do(http.MethodGet, "/images/"+city.ID.String()+"/thumb?size=16", alice, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	thumb, _, err := image.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 16, thumb.Bounds().Dx())

	// Deleting needs the album owner and the right album
	other := s.createAlbum(alice, "Other")
	assert.Equal(t, http.StatusNotFound, s.doJSON(http.MethodDelete, path+"/"+city.ID.String(), bob, nil, nil))
	assert.Equal(t, http.StatusNotFound, s.doJSON(http.MethodDelete, "/albums/"+other.ID.String()+"/images/"+city.ID.String(), alice, nil, nil))
	assert.Equal(t, http.StatusOK, s.doJSON(http.MethodDelete, path+"/"+city.ID.String(), alice, nil, nil))
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/images", alice, nil, &images))
	require.Len(t, images, 1)
	assert.Equal(t, beach.ID, images[0].ID)
}

func TestImageUpload_Rejected(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice")
	album := s.createAlbum(alice, "Trip")

	w := s.upload(alice, album.ID, []byte("just some text"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.upload(alice, album.ID, bytes.Repeat([]byte{0xFF}, 2<<20), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.upload(alice, models.NewID(), pngBytes(t), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("name", "nothing attached"))
	require.NoError(t, mw.Close())
	w = s.do(http.MethodPost, "/albums/"+album.ID.String()+"/images", alice, body, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "Image not added"))
}

func TestImageList_NotModified(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice")
	album := s.createAlbum(alice, "Trip")
	s.addImage(alice, album.ID, "")

	w := s.do(http.MethodGet, "/images", alice, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/images", nil)
	req.Header.Set("Authorization", alice)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
}
