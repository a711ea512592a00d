// ABOUTME: Tests for tailnet exposure mode selection and listener setup
// ABOUTME: Uses a fake node backed by loopback listeners instead of a real tsnet server

package gateway

import (
	"bytes"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/shelf-gateway/internal/config"
)

// fakeNode records which listen call was made and serves it on loopback.
type fakeNode struct {
	calls []string
	err   error
}

func (n *fakeNode) listen(kind, addr string) (net.Listener, error) {
	n.calls = append(n.calls, kind+" "+addr)
	if n.err != nil {
		return nil, n.err
	}
	return net.Listen("tcp", "127.0.0.1:0")
}

func (n *fakeNode) Listen(network, addr string) (net.Listener, error) {
	return n.listen("listen", addr)
}

func (n *fakeNode) ListenFunnel(network, addr string, opts ...tsnet.FunnelOption) (net.Listener, error) {
	return n.listen("funnel", addr)
}

func TestTailnetModeFor(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.TailscaleConfig
		want tailnetMode
		port string
	}{
		{"plain", config.TailscaleConfig{}, tailnetHTTP, ":80"},
		{"https", config.TailscaleConfig{HTTPS: true}, tailnetHTTPS, ":443"},
		{"funnel", config.TailscaleConfig{Funnel: true}, tailnetFunnel, ":443"},
		{"funnel wins over https", config.TailscaleConfig{Funnel: true, HTTPS: true}, tailnetFunnel, ":443"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode := tailnetModeFor(tt.cfg)
			assert.Equal(t, tt.want, mode)
			assert.Equal(t, tt.port, mode.port())
		})
	}
}

func TestListenTailnet_HTTP(t *testing.T) {
	node := &fakeNode{}
	ln, err := listenTailnet(node, tailnetHTTP, nil)
	require.NoError(t, err)
	defer ln.Close()

	assert.Equal(t, []string{"listen :80"}, node.calls)
	_, plain := ln.(*net.TCPListener)
	assert.True(t, plain, "plain http must not wrap the listener")
}

func TestListenTailnet_Funnel(t *testing.T) {
	node := &fakeNode{}
	ln, err := listenTailnet(node, tailnetFunnel, nil)
	require.NoError(t, err)
	defer ln.Close()

	assert.Equal(t, []string{"funnel :443"}, node.calls)
}

func TestListenTailnet_HTTPS(t *testing.T) {
	node := &fakeNode{}
	certRequested := make(chan struct{}, 1)
	getCert := func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		certRequested <- struct{}{}
		return nil, errors.New("no certificate in tests")
	}

	ln, err := listenTailnet(node, tailnetHTTPS, getCert)
	require.NoError(t, err)
	defer ln.Close()
	assert.Equal(t, []string{"listen :443"}, node.calls)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = conn.(*tls.Conn).Handshake()
		conn.Close()
	}()

	conn, err := tls.Dial("tcp", ln.Addr().String(), &tls.Config{InsecureSkipVerify: true})
	if err == nil {
		conn.Close()
	}
	assert.Error(t, err, "handshake should fail without a certificate")
	select {
	case <-certRequested:
	default:
		t.Error("TLS listener did not ask the certificate source")
	}
}

func TestListenTailnet_Errors(t *testing.T) {
	_, err := listenTailnet(&fakeNode{}, tailnetHTTPS, nil)
	assert.ErrorContains(t, err, "certificate source")

	_, err = listenTailnet(&fakeNode{err: errors.New("port busy")}, tailnetHTTP, nil)
	assert.ErrorContains(t, err, "port busy")

	_, err = listenTailnet(&fakeNode{err: errors.New("funnel not allowed")}, tailnetFunnel, nil)
	assert.ErrorContains(t, err, "funnel not allowed")
}

func TestLogTailscaleStatus(t *testing.T) {
	var buf bytes.Buffer
	gw := &Gateway{logger: slog.New(slog.NewTextHandler(&buf, nil))}

	gw.logTailscaleStatus("shelf", &ipnstate.Status{
		TailscaleIPs: []netip.Addr{netip.MustParseAddr("100.64.0.7")},
		Self:         &ipnstate.PeerStatus{DNSName: "shelf.tail1234.ts.net."},
	})
	assert.Contains(t, buf.String(), "100.64.0.7")
	assert.Contains(t, buf.String(), "shelf.tail1234.ts.net.")

	buf.Reset()
	gw.logTailscaleStatus("shelf", &ipnstate.Status{})
	assert.Contains(t, buf.String(), "no IP addresses")
}
