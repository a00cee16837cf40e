package proxy

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "mediacrawl/pkg/errors"
)

func TestStaticPoolRoundRobin(t *testing.T) {
	pool := NewStaticPool([]Lease{
		{Protocol: "http", Host: "proxy-a", Port: 8080},
		{Protocol: "http", Host: "proxy-b", Port: 8080},
	}, nil)

	first, err := pool.Lease(context.Background(), 1, false)
	require.NoError(t, err)
	second, err := pool.Lease(context.Background(), 1, false)
	require.NoError(t, err)

	assert.Equal(t, "proxy-a", first[0].Host)
	assert.Equal(t, "proxy-b", second[0].Host)
}

func TestStaticPoolExhausted(t *testing.T) {
	pool := NewStaticPool([]Lease{
		{Protocol: "http", Host: "proxy-a", Port: 8080},
	}, nil)

	_, err := pool.Lease(context.Background(), 2, false)
	require.Error(t, err)

	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.KindPoolExhausted, apiErr.Kind)
}

func TestStaticPoolEmptyRequest(t *testing.T) {
	pool := NewStaticPool(nil, nil)

	leases, err := pool.Lease(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Empty(t, leases)
}

func TestStaticPoolValidateSkipsUnreachable(t *testing.T) {
	// A listener we control is reachable; a closed port is not.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	dead, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadHost, deadPortStr, err := net.SplitHostPort(dead.Addr().String())
	require.NoError(t, err)
	deadPort, err := strconv.Atoi(deadPortStr)
	require.NoError(t, err)
	dead.Close()

	pool := NewStaticPool([]Lease{
		{Protocol: "http", Host: deadHost, Port: deadPort},
		{Protocol: "http", Host: host, Port: port},
	}, nil)

	leases, err := pool.Lease(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Equal(t, port, leases[0].Port)
}

func TestLeaseURL(t *testing.T) {
	l := Lease{Protocol: "http", Host: "10.0.0.1", Port: 3128, User: "u", Password: "p"}
	u := l.URL()
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "10.0.0.1:3128", u.Host)
	assert.Equal(t, "u", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "p", pw)

	anon := Lease{Protocol: "socks5", Host: "10.0.0.2", Port: 1080}
	assert.Nil(t, anon.URL().User)
}
