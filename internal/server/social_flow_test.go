package server

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"odinbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairEnvelope struct {
	CurrentUser  models.User `json:"currentUser"`
	TargetUser   models.User `json:"targetUser"`
	Requester    models.User `json:"requester"`
	FormerFriend models.User `json:"formerFriend"`
}

type postEnvelope struct {
	Message string         `json:"message"`
	Post    models.Post    `json:"post"`
	Comment models.Comment `json:"comment"`
}

type postsEnvelope struct {
	Posts []models.Post `json:"posts"`
}

func TestSocialFlow_FriendsPostLikeComment(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	app := s.App()

	alice, aliceToken := signupAndLogin(t, app, "Alice", "alice")
	bob, bobToken := signupAndLogin(t, app, "Bob", "bob")

	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/users/%d/friend-requests", bob.ID), nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sent := decode[pairEnvelope](t, resp)
	assert.Equal(t, models.IDList{bob.ID}, sent.CurrentUser.FriendRequestsSent)
	assert.Equal(t, models.IDList{alice.ID}, sent.TargetUser.FriendRequestsReceived)

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/users/%d/friend-requests", bob.ID), nil, aliceToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeAlreadyRequested, decode[models.ErrorResponse](t, resp).Code)

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/users/%d/friend-requests/accept", alice.ID), nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accepted := decode[pairEnvelope](t, resp)
	assert.Equal(t, models.IDList{alice.ID}, accepted.CurrentUser.Friends)
	assert.Empty(t, accepted.CurrentUser.FriendRequestsReceived)
	assert.Equal(t, models.IDList{bob.ID}, accepted.Requester.Friends)
	assert.Empty(t, accepted.Requester.FriendRequestsSent)

	resp = doJSON(t, app, http.MethodPost, "/api/posts", map[string]string{"content": "  Hello, Bob  "}, aliceToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[postEnvelope](t, resp).Post
	assert.Equal(t, "Hello, Bob", post.Content)
	assert.Equal(t, alice.ID, post.UserID)

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/likes", post.ID), nil, bobToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.IDList{bob.ID}, decode[postEnvelope](t, resp).Post.Likes)

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/likes", post.ID), nil, bobToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeAlreadyLiked, decode[models.ErrorResponse](t, resp).Code)

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d/likes", post.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	likers := decode[struct {
		Users []models.UserSummary `json:"users"`
	}](t, resp)
	require.Len(t, likers.Users, 1)
	assert.Equal(t, "bob", likers.Users[0].Username)

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID),
		map[string]string{"content": "Hi Alice"}, bobToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	commented := decode[postEnvelope](t, resp)
	assert.Equal(t, "Hi Alice", commented.Comment.Content)
	assert.Equal(t, models.IDList{commented.Comment.ID}, commented.Post.Comments)

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d/comments", post.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	comments := decode[struct {
		Comments []models.Comment `json:"comments"`
	}](t, resp)
	require.Len(t, comments.Comments, 1)
	assert.Equal(t, bob.ID, comments.Comments[0].UserID)

	resp = doJSON(t, app, http.MethodGet, "/api/me/feed", nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	feed := decode[postsEnvelope](t, resp)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, post.ID, feed.Posts[0].ID)

	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/posts/%d/likes", post.ID), nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[postEnvelope](t, resp).Post.Likes)

	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/users/%d/friendship", alice.ID), nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	unfriended := decode[pairEnvelope](t, resp)
	assert.Empty(t, unfriended.CurrentUser.Friends)
	assert.Empty(t, unfriended.FormerFriend.Friends)

	resp = doJSON(t, app, http.MethodGet, "/api/me/friends-posts", nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[postsEnvelope](t, resp).Posts)
}

func TestSocialFlow_ErrorStatuses(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	app := s.App()
	alice, token := signupAndLogin(t, app, "Alice", "alice")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		token  string
		status int
		code   string
	}{
		{"duplicate signup", http.MethodPost, "/api/auth/signup",
			map[string]string{"name": "A", "username": "alice", "password": "secret1"}, "", http.StatusBadRequest, models.CodeDuplicateUsername},
		{"invalid signup", http.MethodPost, "/api/auth/signup",
			map[string]string{"name": "", "username": "", "password": "x"}, "", http.StatusBadRequest, models.CodeValidation},
		{"wrong password", http.MethodPost, "/api/auth/login",
			map[string]string{"username": "alice", "password": "wrong-pass"}, "", http.StatusUnauthorized, models.CodeInvalidCredentials},
		{"unknown user login", http.MethodPost, "/api/auth/login",
			map[string]string{"username": "nobody", "password": "secret1"}, "", http.StatusUnauthorized, models.CodeInvalidCredentials},
		{"anonymous post", http.MethodPost, "/api/posts", map[string]string{"content": "x"}, "", http.StatusUnauthorized, models.CodeUnauthorized},
		{"garbage token", http.MethodGet, "/api/protected", nil, "not-a-jwt", http.StatusUnauthorized, models.CodeUnauthorized},
		{"blank post", http.MethodPost, "/api/posts", map[string]string{"content": "   "}, token, http.StatusBadRequest, models.CodeValidation},
		{"request missing user", http.MethodPost, "/api/users/999/friend-requests", nil, token, http.StatusNotFound, models.CodeNotFound},
		{"request self", http.MethodPost, fmt.Sprintf("/api/users/%d/friend-requests", alice.ID), nil, token, http.StatusBadRequest, models.CodeValidation},
		{"unfriend stranger", http.MethodDelete, "/api/users/999/friendship", nil, token, http.StatusNotFound, models.CodeNotFound},
		{"like missing post", http.MethodPost, "/api/posts/42/likes", nil, token, http.StatusNotFound, models.CodeNotFound},
		{"unlike unliked", http.MethodDelete, "/api/posts/42/likes", nil, token, http.StatusNotFound, models.CodeNotFound},
		{"comment missing post", http.MethodPost, "/api/posts/42/comments", map[string]string{"content": ""}, token, http.StatusNotFound, models.CodeNotFound},
		{"invalid id", http.MethodGet, "/api/users/abc", nil, "", http.StatusBadRequest, models.CodeValidation},
		{"invalid cursor", http.MethodGet, "/api/posts?startId=-1", nil, "", http.StatusBadRequest, models.CodeValidation},
		{"missing image", http.MethodGet, "/api/images/5", nil, "", http.StatusNotFound, models.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, tt.method, tt.path, tt.body, tt.token)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decode[models.ErrorResponse](t, resp).Code)
		})
	}
}

func TestProtected_ReturnsIdentity(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	app := s.App()
	alice, token := signupAndLogin(t, app, "Alice", "alice")

	resp := doJSON(t, app, http.MethodGet, "/api/protected", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		User struct {
			UserID   uint   `json:"user_id"`
			Username string `json:"username"`
		} `json:"user"`
	}](t, resp)
	assert.Equal(t, alice.ID, body.User.UserID)
	assert.Equal(t, "alice", body.User.Username)
}

func TestEditProfile(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	app := s.App()
	_, token := signupAndLogin(t, app, "Alice", "alice")

	resp := doJSON(t, app, http.MethodPut, "/api/me",
		map[string]string{"name": "Alice Liddell", "profilePictureUrl": "https://example.com/a.jpg"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := decode[userEnvelope](t, resp).User
	assert.Equal(t, "Alice Liddell", user.Name)
	assert.Equal(t, "https://example.com/a.jpg", user.ProfilePicURL)

	resp = doJSON(t, app, http.MethodPut, "/api/me", map[string]string{"name": " "}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The password hash survives a profile edit.
	resp = doJSON(t, app, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "alice", "password": "secret1"}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostPagination_StartID(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	app := s.App()
	alice, token := signupAndLogin(t, app, "Alice", "alice")

	for i := 0; i < 12; i++ {
		resp := doJSON(t, app, http.MethodPost, "/api/posts", map[string]string{"content": fmt.Sprintf("post %d", i)}, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/users/%d/posts", alice.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[postsEnvelope](t, resp).Posts
	require.Len(t, first, models.PostPageSize)
	assert.Equal(t, "post 11", first[0].Content)

	last := first[len(first)-1].ID
	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/me/posts?startId=%d", last), nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[postsEnvelope](t, resp).Posts
	require.Len(t, second, 2)
	for _, p := range second {
		assert.Less(t, p.ID, last)
	}

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/users/%d", alice.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[userEnvelope](t, resp).User.Posts, 12)
}

func TestCreatePost_MultipartImage(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	app := s.App()
	_, token := signupAndLogin(t, app, "Alice", "alice")

	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 64)...)

	send := func(contentType string, data []byte) *http.Response {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("content", "with picture"))
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="image"; filename="pic.jpg"`}
		h["Content-Type"] = []string{contentType}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/posts", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := send("image/jpeg", jpeg)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[postEnvelope](t, resp).Post
	require.NotNil(t, post.ImageID)

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/images/%d", *post.ImageID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	resp = send("image/png", []byte("\x89PNG\r\n\x1a\n0000"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = send("image/jpeg", append(jpeg, make([]byte, 1<<20)...))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
