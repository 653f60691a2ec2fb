package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iurnickita/washportal/internal/model"
)

func TestAdvanceAttempt(t *testing.T) {
	b := newBackend()
	srv := b.serve(t)
	ctx := context.Background()

	t.Run("success finishes", func(t *testing.T) {
		gw, _ := newTestGateway(t, srv, model.Credentials{Access: freshToken})
		c := &call{req: Request{URL: "/place/list/"}, method: http.MethodGet}

		next := gw.advance(ctx, c, stepAttempt)
		require.Equal(t, stepDone, next)
		require.NoError(t, c.err)
		require.Equal(t, http.StatusOK, c.resp.StatusCode)
	})

	t.Run("unauthorized goes to refresh", func(t *testing.T) {
		gw, _ := newTestGateway(t, srv, model.Credentials{Access: staleToken})
		c := &call{req: Request{URL: "/place/list/"}, method: http.MethodGet}

		next := gw.advance(ctx, c, stepAttempt)
		require.Equal(t, stepRefresh, next)
		require.Equal(t, http.StatusUnauthorized, c.resp.StatusCode)
	})
}

func TestAdvanceRefresh(t *testing.T) {
	ctx := context.Background()
	unauthorized := &Response{StatusCode: http.StatusUnauthorized}

	t.Run("new token goes to retry", func(t *testing.T) {
		b := newBackend()
		srv := b.serve(t)
		gw, _ := newTestGateway(t, srv, model.Credentials{Access: staleToken, Refresh: refreshToken})
		c := &call{req: Request{URL: "/place/list/"}, method: http.MethodGet, resp: unauthorized}

		next := gw.advance(ctx, c, stepRefresh)
		require.Equal(t, stepRetry, next)
		require.Equal(t, freshToken, c.token)
		require.Same(t, unauthorized, c.resp)
	})

	t.Run("failed refresh keeps original response", func(t *testing.T) {
		b := newBackend()
		b.refreshStatus = http.StatusInternalServerError
		srv := b.serve(t)
		gw, _ := newTestGateway(t, srv, model.Credentials{Access: staleToken, Refresh: refreshToken})
		c := &call{req: Request{URL: "/place/list/"}, method: http.MethodGet, resp: unauthorized}

		next := gw.advance(ctx, c, stepRefresh)
		require.Equal(t, stepDone, next)
		require.Same(t, unauthorized, c.resp)
		require.NoError(t, c.err)
		require.Empty(t, c.token)
	})
}

func TestAdvanceRetry(t *testing.T) {
	b := newBackend()
	srv := b.serve(t)
	gw, _ := newTestGateway(t, srv, model.Credentials{Access: staleToken})
	c := &call{
		req:    Request{URL: "/place/list/"},
		method: http.MethodGet,
		token:  freshToken,
		resp:   &Response{StatusCode: http.StatusUnauthorized},
	}

	next := gw.advance(context.Background(), c, stepRetry)
	require.Equal(t, stepDone, next)
	require.Equal(t, http.StatusOK, c.resp.StatusCode)
	require.Equal(t, "Bearer "+freshToken, b.header().Get("Authorization"))
}

func TestStepString(t *testing.T) {
	require.Equal(t, "attempt", stepAttempt.String())
	require.Equal(t, "refresh", stepRefresh.String())
	require.Equal(t, "retry", stepRetry.String())
	require.Equal(t, "done", stepDone.String())
}

func TestBuildHeader(t *testing.T) {
	tests := []struct {
		name        string
		req         Request
		method      string
		token       string
		contentType string
		auth        string
	}{
		{
			name:   "get has no content type",
			method: http.MethodGet,
			token:  "t",
			auth:   "Bearer t",
		},
		{
			name:        "post defaults to json",
			method:      http.MethodPost,
			token:       "t",
			contentType: "application/json",
			auth:        "Bearer t",
		},
		{
			name:   "head has no content type",
			method: http.MethodHead,
		},
		{
			name:        "caller content type wins",
			req:         Request{Header: http.Header{"Content-Type": {"text/csv"}}},
			method:      http.MethodPut,
			contentType: "text/csv",
		},
		{
			name:   "multipart leaves content type to transport",
			req:    Request{Header: http.Header{"Content-Type": {"application/json"}}, Multipart: &Multipart{}},
			method: http.MethodPost,
			token:  "t",
			auth:   "Bearer t",
		},
		{
			name:   "token replaces caller authorization",
			req:    Request{Header: http.Header{"Authorization": {"Basic abc"}}},
			method: http.MethodGet,
			token:  "t",
			auth:   "Bearer t",
		},
		{
			name:   "anonymous keeps caller authorization",
			req:    Request{Header: http.Header{"Authorization": {"Basic abc"}}},
			method: http.MethodGet,
			auth:   "Basic abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := buildHeader(tt.req, tt.method, tt.token)
			require.Equal(t, tt.contentType, header.Get("Content-Type"))
			require.Equal(t, tt.auth, header.Get("Authorization"))
		})
	}
}

func TestEffectiveMethod(t *testing.T) {
	require.Equal(t, http.MethodGet, effectiveMethod(""))
	require.Equal(t, http.MethodDelete, effectiveMethod("delete"))
}
