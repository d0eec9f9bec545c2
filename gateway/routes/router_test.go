package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"staychain/core"
	"staychain/crypto"
	"staychain/gateway/idempotency"
	"staychain/gateway/middleware"
	"staychain/rpc"
	"staychain/storage"
)

const (
	gatewayTestSecret = "gateway-jwt-secret"
	nodeTestToken     = "node-rpc-secret"
)

type gatewayFixture struct {
	t        *testing.T
	gateway  *httptest.Server
	node     *httptest.Server
	now      int64
	admin    [20]byte
	guest    [20]byte
	hotelier [20]byte
	checkIn  uint64
	checkOut uint64
}

func gwAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func gwBech(addr [20]byte) string {
	return crypto.AddressFromArray(addr).String()
}

func newGatewayFixture(t *testing.T, mutate func(*Config)) *gatewayFixture {
	t.Helper()
	fx := &gatewayFixture{
		t:        t,
		now:      1_700_000_000,
		admin:    gwAddr(0xA1),
		guest:    gwAddr(0xB2),
		hotelier: gwAddr(0xC3),
	}
	fx.checkIn = uint64(fx.now) + 86_400
	fx.checkOut = fx.checkIn + 172_800

	spec := fmt.Sprintf(`{
  "genesisTime": "2024-01-01T00:00:00Z",
  "params": {
    "commissionPercent": 5,
    "treasury": %q,
    "protocolWallet": %q,
    "ledgerDeployer": %q,
    "utilityDeployer": %q
  },
  "alloc": {%q: "1000000"},
  "roles": {"ROLE_BOOKING_ADMIN": [%q]},
  "suppliers": [{"name": "Seaside Resort", "owner": %q, "metadataURI": "ipfs://seaside"}]
}`,
		gwBech(gwAddr(0xD4)), gwBech(gwAddr(0xE5)),
		gwBech(gwAddr(0x11)), gwBech(gwAddr(0x12)),
		gwBech(fx.guest), gwBech(fx.admin), gwBech(fx.hotelier))
	genesisPath := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(genesisPath, []byte(spec), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}

	node, err := core.NewNode(storage.NewMemDB())
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	node.SetNowFunc(func() int64 { return fx.now })
	if err := node.ApplyGenesis(genesisPath); err != nil {
		t.Fatalf("apply genesis: %v", err)
	}
	rpcServer := rpc.NewServer(node, rpc.Options{AuthToken: nodeTestToken})
	fx.node = httptest.NewServer(rpcServer.Handler())
	t.Cleanup(fx.node.Close)

	target, err := url.Parse(fx.node.URL)
	if err != nil {
		t.Fatalf("parse node url: %v", err)
	}
	client, err := NewClient(target, 5*time.Second, nodeTestToken)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cfg := Config{
		Client: client,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled: true,
			Secret:  gatewayTestSecret,
			Issuer:  "staychain",
		}, nil),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	handler, err := New(cfg)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	fx.gateway = httptest.NewServer(handler)
	t.Cleanup(fx.gateway.Close)
	return fx
}

func (fx *gatewayFixture) token(subject [20]byte, scope string) string {
	fx.t.Helper()
	claims := jwt.MapClaims{
		"iss":   "staychain",
		"sub":   gwBech(subject),
		"scope": scope,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(gatewayTestSecret))
	if err != nil {
		fx.t.Fatalf("sign token: %v", err)
	}
	return token
}

func (fx *gatewayFixture) request(method, path, token string, body interface{}, headers map[string]string) (*http.Response, []byte) {
	fx.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			fx.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, fx.gateway.URL+path, reader)
	if err != nil {
		fx.t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fx.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		fx.t.Fatalf("read response: %v", err)
	}
	return resp, buf.Bytes()
}

func decodeJSON(t *testing.T, data []byte, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode %s: %v", string(data), err)
	}
}

func TestGatewayBookingLifecycle(t *testing.T) {
	fx := newGatewayFixture(t, nil)
	guestToken := fx.token(fx.guest, "booking.write")
	hotelToken := fx.token(fx.hotelier, "booking.write")

	resp, body := fx.request(http.MethodPost, "/v1/bookings", guestToken, map[string]interface{}{
		"supplierId": 1,
		"totals":     []string{"500", "700"},
		"baseRates":  []string{"100", "200"},
		"checkIn":    fx.checkIn,
		"checkOut":   fx.checkOut,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("book: %d %s", resp.StatusCode, body)
	}
	var booked struct {
		BookingIDs []uint64 `json:"bookingIds"`
	}
	decodeJSON(t, body, &booked)
	if len(booked.BookingIDs) != 2 {
		t.Fatalf("booking ids = %v", booked.BookingIDs)
	}

	resp, body = fx.request(http.MethodPost, "/v1/bookings/confirm", hotelToken, map[string]interface{}{
		"supplierId":   1,
		"bookingIds":   booked.BookingIDs,
		"uris":         []string{"ipfs://room/1", "ipfs://room/2"},
		"transferable": true,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: %d %s", resp.StatusCode, body)
	}

	resp, body = fx.request(http.MethodGet, fmt.Sprintf("/v1/bookings/%d", booked.BookingIDs[0]), "", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get booking: %d %s", resp.StatusCode, body)
	}
	var record struct {
		Status  string `json:"status"`
		TokenID uint64 `json:"tokenId"`
	}
	decodeJSON(t, body, &record)
	if record.Status != "confirmed" || record.TokenID == 0 {
		t.Fatalf("after confirm: %+v", record)
	}

	resp, body = fx.request(http.MethodPost, "/v1/bookings/checkout", hotelToken, map[string]interface{}{
		"supplierId": 1,
		"bookingIds": booked.BookingIDs,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("checkout: %d %s", resp.StatusCode, body)
	}

	path := fmt.Sprintf("/v1/tokens/1/balance?account=%s&tokenId=%d&utility=true", gwBech(fx.guest), record.TokenID)
	resp, body = fx.request(http.MethodGet, path, "", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("utility balance: %d %s", resp.StatusCode, body)
	}
	var balance struct {
		Balance string `json:"balance"`
	}
	decodeJSON(t, body, &balance)
	if balance.Balance != "1" {
		t.Fatalf("utility balance = %q", balance.Balance)
	}

	resp, body = fx.request(http.MethodGet, "/v1/balances/"+gwBech(fx.guest), "", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("currency balance: %d %s", resp.StatusCode, body)
	}
	var funds struct {
		Balance string `json:"balance"`
	}
	decodeJSON(t, body, &funds)
	if funds.Balance != "998785" {
		t.Fatalf("guest balance = %q", funds.Balance)
	}
}

func TestGatewayAuthBoundaries(t *testing.T) {
	fx := newGatewayFixture(t, nil)

	resp, _ := fx.request(http.MethodPost, "/v1/bookings", "", map[string]interface{}{"supplierId": 1}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", resp.StatusCode)
	}

	wrongScope := fx.token(fx.guest, "token.write")
	resp, _ = fx.request(http.MethodPost, "/v1/bookings", wrongScope, map[string]interface{}{"supplierId": 1}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong scope: %d", resp.StatusCode)
	}

	resp, body := fx.request(http.MethodGet, "/v1/suppliers/1", "", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("open read blocked: %d %s", resp.StatusCode, body)
	}
	var record struct {
		Name string `json:"name"`
	}
	decodeJSON(t, body, &record)
	if record.Name != "Seaside Resort" {
		t.Fatalf("supplier name = %q", record.Name)
	}

	adminToken := fx.token(fx.admin, "admin")
	resp, body = fx.request(http.MethodPost, "/v1/admin/commission", adminToken, map[string]interface{}{"percent": 7}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin commission: %d %s", resp.StatusCode, body)
	}

	guestAdmin := fx.token(fx.guest, "admin")
	resp, body = fx.request(http.MethodPost, "/v1/admin/commission", guestAdmin, map[string]interface{}{"percent": 9}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("node should reject non-admin caller: %d %s", resp.StatusCode, body)
	}
}

func TestGatewayErrorMapping(t *testing.T) {
	fx := newGatewayFixture(t, nil)

	resp, _ := fx.request(http.MethodGet, "/v1/bookings/404", "", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing booking: %d", resp.StatusCode)
	}

	resp, _ = fx.request(http.MethodGet, "/v1/bookings/not-a-number", "", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id: %d", resp.StatusCode)
	}

	resp, _ = fx.request(http.MethodGet, "/v1/balances/nonsense", "", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad address: %d", resp.StatusCode)
	}

	guestToken := fx.token(fx.guest, "booking.write")
	resp, body := fx.request(http.MethodPost, "/v1/bookings", guestToken, map[string]interface{}{
		"supplierId": 99,
		"totals":     []string{"500"},
		"baseRates":  []string{"100"},
		"checkIn":    fx.checkIn,
		"checkOut":   fx.checkOut,
	}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown supplier: %d %s", resp.StatusCode, body)
	}
	var failure struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	decodeJSON(t, body, &failure)
	if failure.Error == "" || failure.Code == 0 {
		t.Fatalf("error body not forwarded: %s", body)
	}
}

func TestGatewayIdempotentBooking(t *testing.T) {
	fx := newGatewayFixture(t, func(cfg *Config) {
		store, err := idempotency.NewStore(filepath.Join(t.TempDir(), "idem.db"), time.Hour)
		if err != nil {
			t.Fatalf("open idempotency store: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		cfg.Idempotency = store
	})
	guestToken := fx.token(fx.guest, "booking.write")
	payload := map[string]interface{}{
		"supplierId": 1,
		"totals":     []string{"500"},
		"baseRates":  []string{"100"},
		"checkIn":    fx.checkIn,
		"checkOut":   fx.checkOut,
	}
	headers := map[string]string{idempotency.HeaderKey: "booking-retry-1"}

	resp, first := fx.request(http.MethodPost, "/v1/bookings", guestToken, payload, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first booking: %d %s", resp.StatusCode, first)
	}
	resp, second := fx.request(http.MethodPost, "/v1/bookings", guestToken, payload, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replayed booking: %d %s", resp.StatusCode, second)
	}
	if resp.Header.Get(idempotency.HeaderCache) != "hit" {
		t.Fatal("expected replay marker on second response")
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("replay body mismatch: %s vs %s", first, second)
	}

	resp, fresh := fx.request(http.MethodPost, "/v1/bookings", guestToken, payload, map[string]string{
		idempotency.HeaderKey: "booking-retry-2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("new key booking: %d %s", resp.StatusCode, fresh)
	}
	if bytes.Equal(first, fresh) {
		t.Fatal("new key must create a new booking")
	}
}

func TestGatewayRateLimit(t *testing.T) {
	fx := newGatewayFixture(t, func(cfg *Config) {
		cfg.RateLimiter = middleware.NewRateLimiter(map[string]middleware.RateLimit{
			"query": {RatePerSecond: 0.001, Burst: 2},
		}, nil)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := fx.request(http.MethodGet, "/v1/events/head", "", nil, nil)
		statuses = append(statuses, resp.StatusCode)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("first two requests should pass: %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("third request should be limited: %v", statuses)
	}
}

func TestGatewayEventsQuery(t *testing.T) {
	fx := newGatewayFixture(t, nil)

	resp, body := fx.request(http.MethodGet, "/v1/events/head", "", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events head: %d %s", resp.StatusCode, body)
	}
	var head struct {
		Head uint64 `json:"head"`
	}
	decodeJSON(t, body, &head)
	if head.Head == 0 {
		t.Fatal("genesis should have emitted events")
	}

	resp, body = fx.request(http.MethodGet, "/v1/events?from=1&limit=2", "", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events range: %d %s", resp.StatusCode, body)
	}
	var page struct {
		Events []struct {
			Sequence uint64 `json:"sequence"`
		} `json:"events"`
	}
	decodeJSON(t, body, &page)
	if len(page.Events) != 2 || page.Events[0].Sequence != 1 {
		t.Fatalf("unexpected events page: %s", body)
	}

	if resp, _ := fx.request(http.MethodGet, "/healthz", "", nil, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
}
