package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestGatewayCheckerMatched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/ord-1", r.URL.Path)
		fmt.Fprint(w, `{"matched":true,"proof":"0xabc"}`)
	}))
	defer srv.Close()

	checker := NewGatewayChecker(srv.URL, zerolog.Nop())
	matched, proof, err := checker.CheckPaymentStatus(context.Background(), "ord-1")
	require.NoError(t, err)
	require.True(t, matched)
	require.Equal(t, "0xabc", proof)
}

func TestGatewayCheckerNotMatched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"matched":false}`)
	}))
	defer srv.Close()

	checker := NewGatewayChecker(srv.URL, zerolog.Nop())
	matched, _, err := checker.CheckPaymentStatus(context.Background(), "ord-2")
	require.NoError(t, err)
	require.False(t, matched)
}

func TestGatewayCheckerGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	checker := NewGatewayChecker(srv.URL, zerolog.Nop())
	_, _, err := checker.CheckPaymentStatus(context.Background(), "ord-3")
	require.Error(t, err)
}
