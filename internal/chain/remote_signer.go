package chain

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// RemoteSignerConfig configures a RemoteSigner.
// Supports API key or mTLS authentication against a POPSigner RPC endpoint.
type RemoteSignerConfig struct {
	// Endpoint is the JSON-RPC endpoint exposing eth_signTransaction.
	Endpoint string

	// APIKey is sent as a bearer token (optional, mutually exclusive with mTLS).
	APIKey string

	// mTLS authentication (optional, mutually exclusive with APIKey)
	ClientCert string // PEM-encoded client certificate
	ClientKey  string // PEM-encoded client private key
	CACert     string // PEM-encoded CA certificate

	// ChainID is the chain ID for EIP-155 signing.
	ChainID *big.Int

	// Address is the key managed by the remote signer.
	Address common.Address

	MaxRetries     int           // default 3
	InitialBackoff time.Duration // default 1s
	MaxBackoff     time.Duration // default 10s
	Timeout        time.Duration // per request, default 30s
}

// RemoteSigner signs transactions through a remote eth_signTransaction endpoint.
// Only the signing request is retried; nothing here broadcasts.
type RemoteSigner struct {
	config     RemoteSignerConfig
	httpClient *http.Client
}

// NewRemoteSigner creates a RemoteSigner.
func NewRemoteSigner(cfg RemoteSignerConfig) (*RemoteSigner, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("remote signer endpoint is required")
	}
	if cfg.ChainID == nil {
		return nil, fmt.Errorf("remote signer chain id is required")
	}
	if cfg.Address == (common.Address{}) {
		return nil, fmt.Errorf("remote signer address is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	switch {
	case cfg.ClientCert != "" && cfg.ClientKey != "":
		tlsConfig, err := buildTLSConfig(cfg.ClientCert, cfg.ClientKey, cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
		httpClient.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	case cfg.APIKey != "":
	default:
		return nil, fmt.Errorf("either APIKey or ClientCert/ClientKey must be provided")
	}

	return &RemoteSigner{config: cfg, httpClient: httpClient}, nil
}

func buildTLSConfig(clientCert, clientKey, caCert string) (*tls.Config, error) {
	cert, err := tls.X509KeyPair([]byte(clientCert), []byte(clientKey))
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if caCert != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(caCert)) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// Address returns the signer's address.
func (s *RemoteSigner) Address() common.Address {
	return s.config.Address
}

// ChainID returns the chain ID for signing.
func (s *RemoteSigner) ChainID() *big.Int {
	return s.config.ChainID
}

// SignTransaction signs tx via eth_signTransaction, retrying transient failures
// with exponential backoff.
func (s *RemoteSigner) SignTransaction(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	rpcReq := rpcRequest{
		JSONRPC: "2.0",
		Method:  "eth_signTransaction",
		Params:  []any{s.buildTransactionArgs(tx)},
		ID:      1,
	}

	var lastErr error
	backoff := s.config.InitialBackoff

	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, s.config.MaxBackoff)
		}

		signedTxHex, err := s.doRPCCall(ctx, rpcReq)
		if err != nil {
			lastErr = err
			if !IsRetryable(err) {
				return nil, fmt.Errorf("signing failed: %w", err)
			}
			continue
		}

		signedTx, err := decodeSignedTransaction(signedTxHex)
		if err != nil {
			return nil, fmt.Errorf("decode signed transaction: %w", err)
		}
		if signedTx.Nonce() != tx.Nonce() {
			return nil, fmt.Errorf("remote signer returned a different transaction (nonce %d, want %d)", signedTx.Nonce(), tx.Nonce())
		}
		return signedTx, nil
	}

	return nil, fmt.Errorf("signing failed after %d attempts: %w", s.config.MaxRetries, lastErr)
}

func (s *RemoteSigner) buildTransactionArgs(tx *types.Transaction) txArgs {
	args := txArgs{
		From:    s.config.Address.Hex(),
		Gas:     hexutil.EncodeUint64(tx.Gas()),
		Value:   hexutil.EncodeBig(tx.Value()),
		Nonce:   hexutil.EncodeUint64(tx.Nonce()),
		ChainID: hexutil.EncodeBig(s.config.ChainID),
	}

	// nil recipient means contract creation
	if tx.To() != nil {
		to := tx.To().Hex()
		args.To = &to
	}
	if len(tx.Data()) > 0 {
		args.Data = hexutil.Encode(tx.Data())
	}

	switch tx.Type() {
	case types.DynamicFeeTxType:
		maxFee := hexutil.EncodeBig(tx.GasFeeCap())
		maxTip := hexutil.EncodeBig(tx.GasTipCap())
		args.MaxFeePerGas = &maxFee
		args.MaxPriorityFeePerGas = &maxTip
	default:
		gasPrice := hexutil.EncodeBig(tx.GasPrice())
		args.GasPrice = &gasPrice
	}

	return args
}

func (s *RemoteSigner) doRPCCall(ctx context.Context, rpcReq rpcRequest) (string, error) {
	reqBody, err := json.Marshal(rpcReq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", &RetryableError{Err: fmt.Errorf("http request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RetryableError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 500 {
		return "", &RetryableError{Err: fmt.Errorf("server error: %d %s", resp.StatusCode, string(body))}
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("client error: %d %s", resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		err := fmt.Errorf("JSON-RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
		// -32000 to -32099 are server errors that may be transient
		if rpcResp.Error.Code >= -32099 && rpcResp.Error.Code <= -32000 {
			return "", &RetryableError{Err: err}
		}
		return "", err
	}

	var signedTxHex string
	if err := json.Unmarshal(rpcResp.Result, &signedTxHex); err != nil {
		return "", fmt.Errorf("unmarshal result: %w", err)
	}
	return signedTxHex, nil
}

// decodeSignedTransaction decodes an RLP or typed-envelope signed transaction.
func decodeSignedTransaction(hexEncodedTx string) (*types.Transaction, error) {
	txBytes, err := hexutil.Decode("0x" + strings.TrimPrefix(hexEncodedTx, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}

	var tx types.Transaction
	if err := tx.UnmarshalBinary(txBytes); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &tx, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type txArgs struct {
	From                 string  `json:"from"`
	To                   *string `json:"to,omitempty"`
	Gas                  string  `json:"gas"`
	GasPrice             *string `json:"gasPrice,omitempty"`
	MaxFeePerGas         *string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *string `json:"maxPriorityFeePerGas,omitempty"`
	Value                string  `json:"value"`
	Nonce                string  `json:"nonce"`
	Data                 string  `json:"data,omitempty"`
	ChainID              string  `json:"chainId"`
}

// RetryableError marks a transient signer transport failure.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is or wraps a *RetryableError.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

var _ TransactionSigner = (*RemoteSigner)(nil)
