package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"github.com/saylorsolutions/ringbus/patterns/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math/big"
	"net"
	"testing"
	"time"
)

func listenAndAccept[T any](t *testing.T, opts ...Option) (*Listener, <-chan *Channel[T]) {
	t.Helper()
	l, err := Listen("127.0.0.1:0", opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = l.Close()
	})
	accepted := make(chan *Channel[T], 1)
	go func() {
		ch, err := Accept[T](l)
		if !assert.NoError(t, err) {
			close(accepted)
			return
		}
		t.Cleanup(func() {
			_ = ch.Close()
		})
		accepted <- ch
	}()
	return l, accepted
}

func exchange(t *testing.T, client *Channel[string], accepted <-chan *Channel[string]) {
	t.Helper()
	ctx := testContext(t)
	var server *Channel[string]
	select {
	case server = <-accepted:
		require.NotNil(t, server)
	case <-ctx.Done():
		t.Fatal("Connection wasn't accepted")
	}
	require.NoError(t, client.Send(ctx, "hello"))
	val, err := server.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", val)

	require.NoError(t, server.Send(ctx, "hi"))
	val, err = client.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hi", val)
}

func TestDial_TCP(t *testing.T) {
	l, accepted := listenAndAccept[string](t)
	client, err := Dial[string](testContext(t), l.Addr().String())
	require.NoError(t, err)
	defer func() {
		_ = client.Close()
	}()
	exchange(t, client, accepted)
}

func TestDial_Retries(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = Dial[string](testContext(t), addr, DialRetry(retry.Settings{
		TimeBetweenRetries: time.Millisecond,
		BackoffFactor:      1,
		MaxTries:           3,
	}))
	assert.ErrorIs(t, err, retry.ErrMaxRetries)
}

func selfSignedConfig(t *testing.T) (server *tls.Config, client *tls.Config) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "ringbus test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		IsCA:         true,

		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	pool := x509.NewCertPool()
	pool.AddCert(cert)
	server = &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key, Leaf: cert}},
		MinVersion:   tls.VersionTLS12,
	}
	client = &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
	return server, client
}

func TestDial_TLS(t *testing.T) {
	serverConf, clientConf := selfSignedConfig(t)
	l, accepted := listenAndAccept[string](t, TLS(serverConf))
	client, err := Dial[string](testContext(t), l.Addr().String(), TLS(clientConf))
	require.NoError(t, err)
	defer func() {
		_ = client.Close()
	}()
	exchange(t, client, accepted)
}
