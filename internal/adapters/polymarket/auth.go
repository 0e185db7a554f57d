package polymarket

// auth.go — Polymarket CLOB authenticated client.
//
// Implements two-level authentication:
//   L1: EIP-712 signature with wallet private key → derive API credentials
//   L2: HMAC-SHA256 signing of every authenticated request

import (
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/config"
	gomodel "github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"
)

const (
	// PolygonChainID is the Polygon mainnet chain id.
	PolygonChainID = int64(137)

	// CLOB EIP-712 auth domain
	clobDomainName    = "ClobAuthDomain"
	clobDomainVersion = "1"
	// Message signed for deriving API keys
	clobAuthMessage = "This message attests that I control the given wallet"

	// Taker address — zero address = public order
	zeroAddress = "0x0000000000000000000000000000000000000000"
)

// Signature types accepted by the exchange.
const (
	SignatureEOA        = 0
	SignaturePolyProxy  = 1
	SignatureGnosisSafe = 2
)

// AuthConfig configures the wallet behind an AuthClient.
type AuthConfig struct {
	PrivateKey    string // hex, 0x prefix optional
	ChainID       int64
	SignatureType int
	Funder        string // proxy wallet holding the funds; empty = signer
}

// AuthClient wraps the base Client with L1/L2 auth capabilities.
type AuthClient struct {
	*Client
	privateKey    *ecdsa.PrivateKey
	address       common.Address
	funder        common.Address
	chainID       int64
	signatureType gomodel.SignatureType
	contracts     *config.Contracts
	orderBuilder  builder.ExchangeOrderBuilder

	mu    sync.Mutex
	creds *apiCredentials
}

// NewAuthClient creates an authenticated trading client on top of client.
func NewAuthClient(client *Client, cfg AuthConfig) (*AuthClient, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("auth: invalid private key: %w", err)
	}

	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = PolygonChainID
	}
	contracts, err := config.GetContracts(chainID)
	if err != nil {
		return nil, fmt.Errorf("auth: get contracts: %w", err)
	}

	var sigType gomodel.SignatureType
	switch cfg.SignatureType {
	case SignatureEOA:
		sigType = gomodel.EOA
	case SignaturePolyProxy:
		sigType = gomodel.POLY_PROXY
	case SignatureGnosisSafe:
		sigType = gomodel.POLY_GNOSIS_SAFE
	default:
		return nil, fmt.Errorf("auth: unknown signature type %d", cfg.SignatureType)
	}

	addr := crypto.PubkeyToAddress(key.PublicKey)
	funder := addr
	if cfg.Funder != "" {
		if !common.IsHexAddress(cfg.Funder) {
			return nil, fmt.Errorf("auth: invalid funder address %q", cfg.Funder)
		}
		funder = common.HexToAddress(cfg.Funder)
	}
	if sigType != gomodel.EOA && funder == addr {
		return nil, fmt.Errorf("auth: signature type %d requires a proxy address", cfg.SignatureType)
	}

	return &AuthClient{
		Client:        client,
		privateKey:    key,
		address:       addr,
		funder:        funder,
		chainID:       chainID,
		signatureType: sigType,
		contracts:     contracts,
		orderBuilder:  builder.NewExchangeOrderBuilderImpl(big.NewInt(chainID), nil),
	}, nil
}

// Address returns the address holding the funds.
func (ac *AuthClient) Address() string {
	return ac.funder.Hex()
}

// SignerAddress returns the address of the signing key.
func (ac *AuthClient) SignerAddress() string {
	return ac.address.Hex()
}

// EnsureCreds derives API credentials via L1 auth, creating them when the
// wallet has none yet. Credentials are cached.
func (ac *AuthClient) EnsureCreds(ctx context.Context) error {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	if ac.creds != nil {
		return nil
	}

	creds, err := ac.l1Creds(ctx, http.MethodGet, "/auth/derive-api-key")
	if err != nil {
		slog.Warn("auth: derive-api-key failed, creating a new key", "err", err)
		creds, err = ac.l1Creds(ctx, http.MethodPost, "/auth/api-key")
		if err != nil {
			return fmt.Errorf("auth: create api key: %w", err)
		}
	}
	ac.creds = creds
	slog.Info("auth: api credentials ready", "address", ac.address.Hex())
	return nil
}

// l1Creds calls an L1-authenticated credentials endpoint.
func (ac *AuthClient) l1Creds(ctx context.Context, method, path string) (*apiCredentials, error) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig, err := ac.signClobAuth(ts, "0")
	if err != nil {
		return nil, fmt.Errorf("sign l1: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, ac.clobBase+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", path, err)
	}
	req.Header.Set("POLY_ADDRESS", ac.address.Hex())
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", ts)
	req.Header.Set("POLY_NONCE", "0")

	if err := ac.clobLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	resp, err := ac.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var creds apiCredentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return nil, fmt.Errorf("parse creds: %w", err)
	}
	if creds.APIKey == "" || creds.Secret == "" {
		return nil, fmt.Errorf("%s: empty credentials", path)
	}
	return &creds, nil
}

// EIP-712 type hashes (computed once).
var (
	eip712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId)",
	))
	clobAuthTypeHash = crypto.Keccak256Hash([]byte(
		"ClobAuth(address address,string timestamp,uint256 nonce,string message)",
	))
)

// clobAuthDomainSeparator computes the EIP-712 domain separator for ClobAuthDomain.
func clobAuthDomainSeparator(chainID int64) common.Hash {
	var buf []byte
	buf = append(buf, eip712DomainTypeHash.Bytes()...)
	buf = append(buf, crypto.Keccak256Hash([]byte(clobDomainName)).Bytes()...)
	buf = append(buf, crypto.Keccak256Hash([]byte(clobDomainVersion)).Bytes()...)
	buf = append(buf, common.LeftPadBytes(big.NewInt(chainID).Bytes(), 32)...)
	return crypto.Keccak256Hash(buf)
}

// signClobAuth signs the ClobAuth EIP-712 typed data for L1 auth.
func (ac *AuthClient) signClobAuth(timestamp, nonce string) (string, error) {
	nonceInt, ok := new(big.Int).SetString(nonce, 10)
	if !ok {
		return "", fmt.Errorf("invalid nonce: %s", nonce)
	}

	var structBuf []byte
	structBuf = append(structBuf, clobAuthTypeHash.Bytes()...)
	structBuf = append(structBuf, common.LeftPadBytes(ac.address.Bytes(), 32)...)
	structBuf = append(structBuf, crypto.Keccak256Hash([]byte(timestamp)).Bytes()...)
	structBuf = append(structBuf, common.LeftPadBytes(nonceInt.Bytes(), 32)...)
	structBuf = append(structBuf, crypto.Keccak256Hash([]byte(clobAuthMessage)).Bytes()...)
	structHash := crypto.Keccak256Hash(structBuf)

	var rawBuf []byte
	rawBuf = append(rawBuf, 0x19, 0x01)
	rawBuf = append(rawBuf, clobAuthDomainSeparator(ac.chainID).Bytes()...)
	rawBuf = append(rawBuf, structHash.Bytes()...)
	msgHash := crypto.Keccak256Hash(rawBuf)

	sig, err := crypto.Sign(msgHash.Bytes(), ac.privateKey)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return "0x" + fmt.Sprintf("%x", sig), nil
}

// l2Headers returns the authenticated headers for L2 API calls.
func (ac *AuthClient) l2Headers(method, path, body string) (map[string]string, error) {
	ac.mu.Lock()
	creds := ac.creds
	ac.mu.Unlock()
	if creds == nil {
		return nil, fmt.Errorf("auth: credentials not derived yet")
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	msg := ts + strings.ToUpper(method) + path + body

	secretBytes, err := base64.URLEncoding.DecodeString(creds.Secret)
	if err != nil {
		return nil, fmt.Errorf("auth: decode secret: %w", err)
	}

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(msg))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"POLY_ADDRESS":    ac.address.Hex(),
		"POLY_SIGNATURE":  sig,
		"POLY_TIMESTAMP":  ts,
		"POLY_API_KEY":    creds.APIKey,
		"POLY_PASSPHRASE": creds.Passphrase,
	}, nil
}

func (ac *AuthClient) apiKey() string {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.creds == nil {
		return ""
	}
	return ac.creds.APIKey
}

// doL2 executes an authenticated L2 HTTP request with rate limiting.
// HMAC headers are regenerated on every attempt so the timestamp stays fresh.
// Order posts are not retried on transport errors to avoid double submission.
func (ac *AuthClient) doL2(ctx context.Context, method, path string, reqBody, out any) error {
	var bodyStr string
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		bodyStr = string(b)
	}

	fullURL := ac.clobBase + path
	idempotent := method == http.MethodGet

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ac.clobLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		headers, err := ac.l2Headers(method, path, bodyStr)
		if err != nil {
			return err
		}

		var bodyReader io.Reader
		if bodyStr != "" {
			bodyReader = strings.NewReader(bodyStr)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := ac.http.Do(req)
		if err != nil {
			if !idempotent || attempt == maxRetries {
				return fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			ac.sleep(ctx, attempt)
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			ac.sleep(ctx, attempt)
			continue
		}
		if resp.StatusCode >= 500 {
			if !idempotent || attempt == maxRetries {
				return fmt.Errorf("server error %d: %s", resp.StatusCode, respBody)
			}
			ac.sleep(ctx, attempt)
			continue
		}
		if resp.StatusCode >= 400 {
			return &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// orderAmounts computes exact on-chain amounts for a BUY of size shares at
// price. The price is rounded to tick; shares are rounded down to cents.
// makerAmount is USDC and takerAmount is shares, both in 1e6 units.
func orderAmounts(price, size float64, tick decimal.Decimal) (maker, taker decimal.Decimal, err error) {
	if !tick.IsPositive() {
		tick = defaultTickSize
	}
	p := decimal.NewFromFloat(price).Div(tick).Round(0).Mul(tick)
	if !p.IsPositive() || p.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("price %s outside (0,1) at tick %s", p, tick)
	}

	shares := decimal.NewFromFloat(size).RoundDown(2)
	if !shares.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("size %.4f rounds to zero shares", size)
	}

	usdc := shares.Mul(p).RoundDown(4)
	return usdc.Shift(6).Truncate(0), shares.Shift(6).Truncate(0), nil
}

// buildSignedOrder creates an EIP-712 signed GTC BUY order.
func (ac *AuthClient) buildSignedOrder(tokenID string, price, size float64, tick decimal.Decimal, negRisk bool) (*gomodel.SignedOrder, error) {
	maker, taker, err := orderAmounts(price, size, tick)
	if err != nil {
		return nil, fmt.Errorf("invalid amounts: %w", err)
	}

	verifyingContract := gomodel.CTFExchange
	if negRisk {
		verifyingContract = gomodel.NegRiskCTFExchange
	}

	orderData := &gomodel.OrderData{
		Maker:         ac.funder.Hex(),
		Taker:         zeroAddress,
		TokenId:       tokenID,
		MakerAmount:   maker.String(),
		TakerAmount:   taker.String(),
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        ac.address.Hex(),
		Expiration:    "0",
		Side:          gomodel.BUY,
		SignatureType: ac.signatureType,
	}

	signed, err := ac.orderBuilder.BuildSignedOrder(ac.privateKey, orderData, verifyingContract)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}
	return signed, nil
}
