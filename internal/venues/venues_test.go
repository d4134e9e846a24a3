package venues

import (
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestVenueA_AuthHeader_CarriesQueryHash(t *testing.T) {
	c := newVenueAClient(Credentials{AccessKey: "ak", SecretKey: "sk"})
	params := url.Values{"market": {"KRW-BTC"}}
	header, err := c.authHeader(params)
	if err != nil {
		t.Fatal(err)
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		t.Fatalf("header missing Bearer prefix: %q", header)
	}
	raw := header[len(prefix):]

	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return []byte("sk"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("token did not verify: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["access_key"] != "ak" {
		t.Errorf("access_key = %v, want ak", claims["access_key"])
	}
	if claims["query_hash_alg"] != "SHA512" {
		t.Errorf("query_hash_alg = %v, want SHA512", claims["query_hash_alg"])
	}
	if claims["query_hash"] == nil || claims["query_hash"] == "" {
		t.Error("query_hash missing")
	}
	if claims["nonce"] == nil || claims["nonce"] == "" {
		t.Error("nonce missing")
	}
}

func TestVenueA_AuthHeader_NoQueryHashWithoutParams(t *testing.T) {
	c := newVenueAClient(Credentials{AccessKey: "ak", SecretKey: "sk"})
	header, err := c.authHeader(nil)
	if err != nil {
		t.Fatal(err)
	}
	token, _ := jwt.Parse(header[len("Bearer "):], func(*jwt.Token) (interface{}, error) {
		return []byte("sk"), nil
	})
	claims := token.Claims.(jwt.MapClaims)
	if _, ok := claims["query_hash"]; ok {
		t.Error("query_hash should be absent when no params are signed")
	}
}

func TestVenueB_Sign_Deterministic(t *testing.T) {
	c := &venueBClient{creds: Credentials{AccessKey: "ak", SecretKey: "sk"}}
	params := url.Values{"symbol": {"BTCUSDT"}, "timestamp": {"1000"}}
	sig1 := c.sign(params)
	sig2 := c.sign(params)
	if sig1 != sig2 {
		t.Errorf("signature not deterministic: %s vs %s", sig1, sig2)
	}
	if len(sig1) != 64 {
		t.Errorf("hex sha256 signature should be 64 chars, got %d", len(sig1))
	}
}

func TestVenueB_Sign_ChangesWithSecret(t *testing.T) {
	params := url.Values{"symbol": {"BTCUSDT"}}
	c1 := &venueBClient{creds: Credentials{SecretKey: "sk1"}}
	c2 := &venueBClient{creds: Credentials{SecretKey: "sk2"}}
	if c1.sign(params) == c2.sign(params) {
		t.Error("different secrets should produce different signatures")
	}
}

func TestVenueAOrdType_Translation(t *testing.T) {
	cases := []struct {
		side OrderType
		s    Side
		want string
	}{
		{OrderTypeLimit, SideBuy, "limit"},
		{OrderTypeLimit, SideSell, "limit"},
		{OrderTypeMarket, SideBuy, "price"},
		{OrderTypeMarket, SideSell, "market"},
	}
	for _, c := range cases {
		if got := venueAOrdType(c.s, c.side); got != c.want {
			t.Errorf("venueAOrdType(%v,%v) = %s, want %s", c.s, c.side, got, c.want)
		}
	}
}

func TestVenueBOrdType_Translation(t *testing.T) {
	if venueBOrdType(OrderTypeLimit) != "LIMIT" {
		t.Error("expected LIMIT")
	}
	if venueBOrdType(OrderTypeMarket) != "MARKET" {
		t.Error("expected MARKET")
	}
}

func TestThrottle_EnforcesMinimumGap(t *testing.T) {
	th := newThrottle(20 * time.Millisecond)
	th.wait()
	start := time.Now()
	th.wait()
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("second wait returned after %v, want >= ~20ms", elapsed)
	}
}

func TestNewClient_UnknownVenue(t *testing.T) {
	if _, err := NewClient(Name("bogus"), Credentials{}); err == nil {
		t.Error("expected error for unknown venue")
	}
}

func TestNewClient_KnownVenues(t *testing.T) {
	if _, err := NewClient(VenueA, Credentials{AccessKey: "a", SecretKey: "b"}); err != nil {
		t.Errorf("VenueA: %v", err)
	}
	if _, err := NewClient(VenueB, Credentials{AccessKey: "a", SecretKey: "b"}); err != nil {
		t.Errorf("VenueB: %v", err)
	}
}
