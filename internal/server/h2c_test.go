package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"bank-ledger-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

func protoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.Proto)
	})
}

func TestNew_H2C(t *testing.T) {
	srv := New(models.ServerConfig{Port: "0", H2C: true}, protoHandler())
	ts := httptest.NewServer(srv.http.Handler)
	defer ts.Close()

	// Prior-knowledge HTTP/2 over a plain TCP connection.
	client := &http.Client{Transport: &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}}

	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/2.0", string(body))

	// Plain HTTP/1.1 clients keep working.
	resp, err = ts.Client().Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "HTTP/1.1", string(body))
}

func TestNew_WithoutH2C(t *testing.T) {
	srv := New(models.ServerConfig{Port: "9090"}, protoHandler())
	assert.Equal(t, ":9090", srv.http.Addr)

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "HTTP/1.1", rec.Body.String())
}
