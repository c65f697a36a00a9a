package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/karmapulse/internal/domain"
	apperrors "github.com/pscheid92/karmapulse/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(srv *Server, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func decodeReplies(t *testing.T, rec *httptest.ResponseRecorder) []domain.Reply {
	t.Helper()
	var resp dispatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Replies
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandlePrivmsg(t *testing.T) {
	var got domain.Message
	svc := &mockKarmaService{
		handleMessageFn: func(_ context.Context, msg domain.Message) []domain.Reply {
			got = msg
			return []domain.Reply{{Text: "alice increased the karma of vim to 1"}}
		},
	}
	srv := newTestServer(t, svc)

	rec := postJSON(srv, "/dispatch/privmsg", `{"network":"libera","sender":"alice","channel":"#editors","message":"[vim]++"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Message{Network: "libera", Sender: "alice", Channel: "#editors", Text: "[vim]++"}, got)
	assert.JSONEq(t, `{"replies":[{"text":"alice increased the karma of vim to 1","highlight":false}]}`, rec.Body.String())
}

func TestHandlePrivmsg_NoRepliesIsEmptyList(t *testing.T) {
	srv := newTestServer(t, &mockKarmaService{})

	rec := postJSON(srv, "/dispatch/privmsg", `{"network":"libera","sender":"alice","channel":"#c","message":"vim++"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"replies":[]}`, rec.Body.String())
}

func TestHandlePrivmsg_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing network", `{"sender":"alice","message":"vim++"}`, "network is required"},
		{"blank sender", `{"network":"libera","sender":"  ","message":"vim++"}`, "sender is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			srv := newTestServer(t, &mockKarmaService{
				handleMessageFn: func(context.Context, domain.Message) []domain.Reply {
					called = true
					return nil
				},
			})

			rec := postJSON(srv, "/dispatch/privmsg", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, apperrors.TypeValidation, resp.Type)
			assert.Equal(t, tt.wantMsg, resp.Error)
			assert.False(t, called)
		})
	}
}

func TestHandlePrivmsg_MalformedJSON(t *testing.T) {
	srv := newTestServer(t, &mockKarmaService{})

	rec := postJSON(srv, "/dispatch/privmsg", `{"network":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.TypeValidation, decodeError(t, rec).Type)
}

func TestHandleCommand(t *testing.T) {
	var got domain.Command
	svc := &mockKarmaService{
		handleCommandFn: func(_ context.Context, cmd domain.Command) ([]domain.Reply, error) {
			got = cmd
			return []domain.Reply{{Text: "vim has a karma of 3 (+3, -0)"}}, nil
		},
	}
	srv := newTestServer(t, svc)

	rec := postJSON(srv, "/dispatch/commands/karma", `{"network":"libera","sender":"alice","channel":"#c","raw":"vim","args":["vim"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "karma", got.Name)
	assert.Equal(t, "vim", got.Raw)
	assert.Equal(t, []string{"vim"}, got.Args)
	assert.Equal(t, []domain.Reply{{Text: "vim has a karma of 3 (+3, -0)"}}, decodeReplies(t, rec))
}

func TestHandleCommand_FillsMissingArgForms(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantRaw  string
		wantArgs []string
	}{
		{"raw only", `{"network":"n","sender":"s","raw":"vim  emacs"}`, "vim  emacs", []string{"vim", "emacs"}},
		{"args only", `{"network":"n","sender":"s","args":["vim","emacs"]}`, "vim emacs", []string{"vim", "emacs"}},
		{"neither", `{"network":"n","sender":"s"}`, "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.Command
			srv := newTestServer(t, &mockKarmaService{
				handleCommandFn: func(_ context.Context, cmd domain.Command) ([]domain.Reply, error) {
					got = cmd
					return nil, nil
				},
			})

			rec := postJSON(srv, "/dispatch/commands/karmafight", tt.body)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantRaw, got.Raw)
			assert.Equal(t, tt.wantArgs, got.Args)
		})
	}
}

func TestHandleCommand_NameIsLowercased(t *testing.T) {
	var got string
	srv := newTestServer(t, &mockKarmaService{
		handleCommandFn: func(_ context.Context, cmd domain.Command) ([]domain.Reply, error) {
			got = cmd.Name
			return nil, nil
		},
	})

	rec := postJSON(srv, "/dispatch/commands/KarmaLink", `{"network":"n","sender":"s"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "karmalink", got)
}

func TestHandleCommand_Unknown(t *testing.T) {
	srv := newTestServer(t, &mockKarmaService{})

	rec := postJSON(srv, "/dispatch/commands/hug", `{"network":"n","sender":"s"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, apperrors.TypeNotFound, resp.Type)
	assert.Equal(t, `unknown command "hug"`, resp.Error)
	assert.Equal(t, "hug", resp.Context["command"])
}

func TestHandleCommand_ServiceError(t *testing.T) {
	srv := newTestServer(t, &mockKarmaService{
		handleCommandFn: func(context.Context, domain.Command) ([]domain.Reply, error) {
			return nil, errors.New("boom")
		},
	})

	rec := postJSON(srv, "/dispatch/commands/karma", `{"network":"n","sender":"s","raw":"vim"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperrors.TypeInternal, decodeError(t, rec).Type)
}

func TestDispatch_RequiresToken(t *testing.T) {
	srv := newTestServer(t, &mockKarmaService{}, withDispatchToken("s3cret"))
	body := `{"network":"n","sender":"s","message":"vim++"}`

	rec := postJSON(srv, "/dispatch/privmsg", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.TypeUnauthorized, decodeError(t, rec).Type)

	rec = postJSON(srv, "/dispatch/privmsg", body, echo.HeaderAuthorization, "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(srv, "/dispatch/privmsg", body, echo.HeaderAuthorization, "s3cret")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(srv, "/dispatch/privmsg", body, echo.HeaderAuthorization, "Bearer s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDispatch_HealthNeedsNoToken(t *testing.T) {
	srv := newTestServer(t, &mockKarmaService{}, withDispatchToken("s3cret"))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDispatch_RateLimited(t *testing.T) {
	srv := newTestServer(t, &mockKarmaService{}, withRateLimit(0.01, 1))
	body := `{"network":"n","sender":"s","message":"vim++"}`

	rec := postJSON(srv, "/dispatch/privmsg", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(srv, "/dispatch/privmsg", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestDispatch_CorrelationIDPropagates(t *testing.T) {
	srv := newTestServer(t, &mockKarmaService{})

	rec := postJSON(srv, "/dispatch/privmsg", `{"network":"n","sender":"s","message":"x"}`, "X-Correlation-ID", "gw-1234")
	assert.Equal(t, "gw-1234", rec.Header().Get("X-Correlation-ID"))

	rec = postJSON(srv, "/dispatch/privmsg", `{"network":"n","sender":"s","message":"x"}`, "X-Correlation-ID", "bad id!")
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	assert.NotEqual(t, "bad id!", rec.Header().Get("X-Correlation-ID"))
}
